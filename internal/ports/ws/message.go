package ws

import (
	"encoding/json"
	"time"
)

// MessageType define os tipos de mensagens WebSocket.
type MessageType string

const (
	// Cliente → Servidor
	TypeJoin        MessageType = "JOIN"
	TypeAddVideo    MessageType = "ADD_VIDEO"
	TypeAddVideos   MessageType = "ADD_VIDEOS"
	TypePlay        MessageType = "PLAY"
	TypePause       MessageType = "PAUSE"
	TypeSyncTime    MessageType = "SYNC_TIME"
	TypeNextVideo   MessageType = "NEXT_VIDEO"
	TypeRemoveVideo MessageType = "REMOVE_VIDEO"
	TypeSelectVideo MessageType = "SELECT_VIDEO"
	TypePing        MessageType = "PING"

	// Servidor → Cliente
	TypeSyncState      MessageType = "SYNC_STATE"
	TypePlaylistUpdate MessageType = "PLAYLIST_UPDATE"
	TypePlayVideo      MessageType = "PLAY_VIDEO"
	TypePong           MessageType = "PONG"
	TypeError          MessageType = "ERROR"
)

// IncomingMessage é a estrutura de mensagens recebidas do cliente.
// RoomID carrega o código da sala a que a mensagem se aplica — toda
// mutação é roteada por este campo, não pela sala em que a conexão fez
// JOIN originalmente (ver Hub.getOrLoadRoom em client.go). PING não o
// carrega, já que não se aplica a nenhuma sala.
type IncomingMessage struct {
	Type    MessageType     `json:"type"`
	RoomID  string          `json:"roomId,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// OutgoingMessage é a estrutura de mensagens enviadas para o cliente.
type OutgoingMessage struct {
	Type      MessageType `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewOutgoingMessage cria uma nova mensagem de saída.
func NewOutgoingMessage(msgType MessageType, payload interface{}) *OutgoingMessage {
	return &OutgoingMessage{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// --- Payloads recebidos ---

// JoinPayload identifica o participante que quer entrar na sala. A
// sala em si vem do roomId de IncomingMessage, não deste payload —
// JOIN usa o mesmo campo de roteamento que toda mutação subsequente.
// Role é "host" ou "guest"; o primeiro JOIN de uma conexão é o único
// que pode ocorrer antes de qualquer outra mensagem (exceto PING).
type JoinPayload struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

const (
	RoleHost  = "host"
	RoleGuest = "guest"
)

// AddVideoPayload é um item adicionado à playlist. O nome do campo
// "youtubeId" é mantido por compatibilidade de protocolo mesmo que o
// provedor upstream não seja necessariamente o YouTube.
type AddVideoPayload struct {
	YoutubeID    string `json:"youtubeId"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// AddVideosPayload adiciona vários itens de uma vez.
type AddVideosPayload struct {
	Videos []AddVideoPayload `json:"videos"`
}

// SyncTimePayload é enviado periodicamente pelo host para reportar a
// posição de reprodução corrente, e opcionalmente o estado de play.
type SyncTimePayload struct {
	CurrentTime float64 `json:"currentTime"`
	IsPlaying   bool    `json:"isPlaying"`
}

// RemoveVideoPayload identifica uma entrada da playlist pelo seu id
// interno (não o youtubeId) — é o único identificador estável depois
// que a entrada pode ter sido reordenada.
type RemoveVideoPayload struct {
	VideoID string `json:"videoId"`
}

// SelectVideoPayload identifica o vídeo pelo youtubeId (id externo),
// não pelo id interno da playlist — é assim que o cliente o conhece,
// já que pode selecionar um vídeo que nunca renderizou com seu id
// interno (ex.: resultado de busca ainda não adicionado).
type SelectVideoPayload struct {
	YoutubeID string `json:"youtubeId"`
}

// --- Payloads enviados ---

// VideoInfo é a representação no fio de uma entrada de playlist.
type VideoInfo struct {
	ID           string `json:"id"`
	YoutubeID    string `json:"youtubeId"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnailUrl"`
	AddedBy      string `json:"addedBy"`
	IsPlayed     bool   `json:"isPlayed"`
	Order        int    `json:"order"`
}

// RoomStatePayload é o estado completo enviado ao cliente logo após
// JOIN, como payload de SYNC_STATE.
type RoomStatePayload struct {
	Code           string      `json:"code"`
	CurrentVideoID *string     `json:"currentVideoId"`
	IsPlaying      bool        `json:"isPlaying"`
	CurrentTime    float64     `json:"currentTime"`
	Playlist       []VideoInfo `json:"playlist"`
}

// PlaylistUpdatePayload é enviado a todos os clientes sempre que a
// playlist muda de conteúdo (adição ou remoção).
type PlaylistUpdatePayload struct {
	Playlist []VideoInfo `json:"playlist"`
}

// PlayPayload e PausePayload são fan-out de um comando PLAY/PAUSE
// aceito; carregam o tempo de reprodução da sala no momento do comando.
type PlayPayload struct {
	CurrentTime float64 `json:"currentTime"`
}

type PausePayload struct {
	CurrentTime float64 `json:"currentTime"`
}

// SyncTimeBroadcastPayload é o fan-out de SYNC_TIME para os demais
// clientes (o remetente nunca o recebe de volta).
type SyncTimeBroadcastPayload struct {
	CurrentTime float64 `json:"currentTime"`
	IsPlaying   bool    `json:"isPlaying"`
}

// PlayVideoPayload anuncia a troca do vídeo atual (SELECT_VIDEO ou
// NEXT_VIDEO aceitos, ou auto-start ao adicionar o primeiro vídeo).
type PlayVideoPayload struct {
	VideoID     string  `json:"videoId"`
	CurrentTime float64 `json:"currentTime"`
}

// ErrorPayload é enviado quando uma mensagem recebida não pode ser
// processada.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Códigos de erro do protocolo.
const (
	ErrCodeInvalidPayload = "INVALID_PAYLOAD"
	ErrCodeNotJoined      = "NOT_JOINED"
	ErrCodeRoomNotFound   = "ROOM_NOT_FOUND"
	ErrCodeVideoNotFound  = "VIDEO_NOT_FOUND"
	ErrCodeInternal       = "INTERNAL_ERROR"
	ErrCodeAlreadyJoined  = "ALREADY_JOINED"
	ErrCodeUnknownMessage = "UNKNOWN_MESSAGE_TYPE"
)
