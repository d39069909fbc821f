package room

import (
	"crypto/rand"
	"errors"
	"time"
)

// ID é o identificador interno e estável de uma sala, distinto do
// código de 6 caracteres que os participantes digitam.
type ID string

func (id ID) String() string {
	return string(id)
}

func (id ID) IsEmpty() bool {
	return id == ""
}

// Code é o código público de 6 caracteres usado para entrar numa sala.
// O alfabeto exclui 0/O e 1/I para evitar ambiguidade na leitura.
type Code string

// DefaultCodeLength é usado quando NewRoom recebe 0 para length (ex.:
// nos testes, que montam a sala sem passar pela config).
const DefaultCodeLength = 6

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func (c Code) String() string {
	return string(c)
}

// Erros de domínio.
var (
	ErrRoomDeleted           = errors.New("room is closed")
	ErrRoomHasNoCurrentVideo = errors.New("room has no current video selected")
	ErrInvalidCode           = errors.New("invalid room code")
)

// Room é o agregado raiz do registro de salas. Mantém apenas o estado
// de reprodução compartilhado — não há dono, nome, tema ou assentos.
type Room struct {
	ID             ID
	Code           Code
	CurrentVideoID *string // id externo do vídeo atual; nil = nenhum selecionado
	IsPlaying      bool
	CurrentTime    float64 // segundos, apenas indicativo
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// PlayPauseAt marca o instante do último PLAY/PAUSE aceito e só
	// existe em memória: não é persistido, não é serializado no wire.
	// Durante os 3000ms seguintes a esse instante, um SYNC_TIME do host
	// não pode alterar IsPlaying (ver cooldown em app/room).
	PlayPauseAt *time.Time
}

// NewRoom cria uma sala recém-registrada, sem vídeo atual. O id é
// gerado pelo chamador (internal/infra/idgen) — o domínio não decide
// sua própria estratégia de identificação. codeLength de 0 cai em
// DefaultCodeLength.
func NewRoom(id ID, codeLength int) (*Room, error) {
	if codeLength <= 0 {
		codeLength = DefaultCodeLength
	}
	code, err := generateCode(codeLength)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Room{
		ID:          id,
		Code:        Code(code),
		IsPlaying:   false,
		CurrentTime: 0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// generateCode sorteia um código de length caracteres do alfabeto
// reduzido. O alfabeto tem 32 símbolos (potência de 2), então cada
// byte aleatório é mapeado para um símbolo com um simples módulo — sem
// viés porque 256 é múltiplo de 32.
func generateCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	out := make([]byte, length)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}

// HasCurrentVideo indica se a sala tem um vídeo atualmente selecionado.
func (r *Room) HasCurrentVideo() bool {
	return r.CurrentVideoID != nil && *r.CurrentVideoID != ""
}

// ClearCurrentVideo remove a seleção atual e força o estado de
// reprodução para o triplo de repouso (nenhum vídeo, pausado, tempo 0).
func (r *Room) ClearCurrentVideo() {
	r.CurrentVideoID = nil
	r.IsPlaying = false
	r.CurrentTime = 0
}

// SetCurrentVideo troca o vídeo atual e reinicia o tempo de reprodução.
// A reprodução não é retomada automaticamente — quem chama decide se
// deve iniciar tocando (auto-play do primeiro vídeo, por exemplo).
func (r *Room) SetCurrentVideo(externalID string) {
	id := externalID
	r.CurrentVideoID = &id
	r.CurrentTime = 0
}
