package room

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/vinib1903/cineus-api/internal/domain/room"
	"github.com/vinib1903/cineus-api/internal/domain/video"
	"github.com/vinib1903/cineus-api/internal/infra/idgen"
)

// Erros do serviço de room.
var (
	ErrRoomNotFound = errors.New("room not found")
	ErrInvalidCode  = errors.New("invalid room code")
)

// DefaultPlayPauseCooldown é usado quando NewService recebe 0 para
// playPauseCooldown (ex.: nos testes, que montam o Service sem passar
// pela config). Exatamente esse valor decorrido conta como fora da
// janela (limite exclusivo) — ver InCooldown.
const DefaultPlayPauseCooldown = 3000 * time.Millisecond

// DefaultPositionThrottle é usado quando NewService recebe 0 para
// positionThrottle.
const DefaultPositionThrottle = 5 * time.Second

// Service contém a lógica de negócio do registro de salas: criação,
// playlist e transições de estado de reprodução. O estado em memória
// (quem está conectado, qual sala existe agora) é responsabilidade do
// gateway de sessões (internal/ports/ws); este serviço conhece apenas
// o domínio e a persistência durável.
type Service struct {
	roomRepo  room.Repository
	videoRepo video.Repository
	idGen     *idgen.IDGenerator

	// playPauseCooldown é a janela depois de um PLAY/PAUSE aceito
	// durante a qual um SYNC_TIME do host não pode alterar isPlaying —
	// evita que um SYNC_TIME já em trânsito reverta um comando mais
	// recente. Vem de config.RoomConfig.PlayPauseCooldownMS.
	playPauseCooldown time.Duration

	// positionThrottle limita a frequência de escritas duráveis
	// originadas de ReportPosition. Vem de
	// config.RoomConfig.PositionThrottleSeconds.
	positionThrottle time.Duration

	// codeLength é o tamanho do código público gerado para salas novas.
	// Vem de config.RoomConfig.CodeLength.
	codeLength int
}

// NewService cria uma nova instância do serviço. playPauseCooldown,
// positionThrottle e codeLength de 0 caem nos respectivos valores
// padrão.
func NewService(roomRepo room.Repository, videoRepo video.Repository, idGen *idgen.IDGenerator, playPauseCooldown, positionThrottle time.Duration, codeLength int) *Service {
	if playPauseCooldown <= 0 {
		playPauseCooldown = DefaultPlayPauseCooldown
	}
	if positionThrottle <= 0 {
		positionThrottle = DefaultPositionThrottle
	}
	return &Service{
		roomRepo:          roomRepo,
		videoRepo:         videoRepo,
		idGen:             idGen,
		playPauseCooldown: playPauseCooldown,
		positionThrottle:  positionThrottle,
		codeLength:        codeLength,
	}
}

// PositionThrottle expõe o intervalo mínimo entre persistências de
// posição configurado para este serviço.
func (s *Service) PositionThrottle() time.Duration {
	return s.positionThrottle
}

// CreateRoom cria e persiste uma sala nova, sem vídeo atual.
func (s *Service) CreateRoom(ctx context.Context) (*room.Room, error) {
	newRoom, err := room.NewRoom(room.ID(s.idGen.NewID()), s.codeLength)
	if err != nil {
		return nil, err
	}
	if err := s.roomRepo.Create(ctx, newRoom); err != nil {
		return nil, err
	}
	return newRoom, nil
}

// GetByCode busca uma sala e sua playlist atual pelo código público.
// É o caminho usado tanto por GET /api/v1/rooms/{code} quanto pela
// materialização de uma sala em memória no primeiro JOIN.
func (s *Service) GetByCode(ctx context.Context, code room.Code) (*room.Room, []*video.Video, error) {
	rm, err := s.roomRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return nil, nil, ErrRoomNotFound
		}
		return nil, nil, err
	}

	videos, err := s.videoRepo.ListByRoom(ctx, rm.ID)
	if err != nil {
		return nil, nil, err
	}

	return rm, videos, nil
}

// AddVideo adiciona um vídeo ao fim da playlist. Se a sala não tinha
// nenhum vídeo atual, o recém-adicionado é selecionado e a reprodução
// inicia automaticamente (auto-start no primeiro vídeo).
func (s *Service) AddVideo(ctx context.Context, rm *room.Room, playlistLen int, externalID, title, thumbnailURL, addedBy string) (*video.Video, error) {
	v, err := video.NewVideo(video.ID(s.idGen.NewID()), rm.ID, externalID, title, thumbnailURL, addedBy, playlistLen)
	if err != nil {
		return nil, err
	}

	if err := s.videoRepo.Create(ctx, v); err != nil {
		return nil, err
	}

	if !rm.HasCurrentVideo() {
		s.startVideo(rm, v.ExternalID)
		if err := s.roomRepo.Update(ctx, rm); err != nil {
			return nil, err
		}
	}

	return v, nil
}

// AddVideos adiciona vários vídeos de uma vez, preservando a ordem
// relativa dos itens recebidos. Igual a AddVideo, auto-inicia o
// primeiro item se a sala não tinha vídeo atual.
func (s *Service) AddVideos(ctx context.Context, rm *room.Room, playlistLen int, items []AddVideoInput) ([]*video.Video, error) {
	videos := make([]*video.Video, 0, len(items))
	for i, item := range items {
		v, err := video.NewVideo(video.ID(s.idGen.NewID()), rm.ID, item.ExternalID, item.Title, item.ThumbnailURL, item.AddedBy, playlistLen+i)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}

	if err := s.videoRepo.CreateBatch(ctx, videos); err != nil {
		return nil, err
	}

	if !rm.HasCurrentVideo() && len(videos) > 0 {
		s.startVideo(rm, videos[0].ExternalID)
		if err := s.roomRepo.Update(ctx, rm); err != nil {
			return nil, err
		}
	}

	return videos, nil
}

// AddVideoInput é um item de ADD_VIDEOS.
type AddVideoInput struct {
	ExternalID   string
	Title        string
	ThumbnailURL string
	AddedBy      string
}

// RemoveVideo remove uma entrada da playlist. Reproduz fielmente o
// comportamento assinalado: se o vídeo removido é o vídeo atual da
// sala, currentVideoId NÃO é limpo — a sala continua apontando para um
// id que não existe mais na playlist até a próxima SelectVideo ou
// NextVideo. Isso não é corrigido aqui por decisão explícita (ver
// DESIGN.md).
func (s *Service) RemoveVideo(ctx context.Context, id video.ID) error {
	if err := s.videoRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, video.ErrVideoNotFound) {
			return video.ErrVideoNotFound
		}
		return err
	}
	return nil
}

// SelectVideo troca explicitamente o vídeo atual da sala (qualquer
// participante pode fazer isso, não só o host) e inicia a reprodução
// do zero.
func (s *Service) SelectVideo(ctx context.Context, rm *room.Room, v *video.Video) error {
	s.startVideo(rm, v.ExternalID)
	return s.roomRepo.Update(ctx, rm)
}

// NextVideo avança para o sucessor posicional do vídeo atual na
// ordem total (Order, CreatedAt, ID) — não para o próximo vídeo não
// reproduzido mais antigo. Isso importa quando SelectVideo pulou à
// frente: com [v1,v2,v3,v4] todos não reproduzidos e o atual em v3,
// NextVideo deve pousar em v4, não voltar a v1. O vídeo atual é
// marcado como reproduzido independentemente do estado dos demais. Se
// não houver sucessor, a sala volta ao estado de repouso (nenhum
// vídeo, pausado, tempo zero).
func (s *Service) NextVideo(ctx context.Context, rm *room.Room, videos []*video.Video) error {
	ordered := make([]*video.Video, len(videos))
	copy(ordered, videos)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Before(ordered[j]) })

	var next *video.Video
	if rm.CurrentVideoID != nil {
		for i, v := range ordered {
			if v.ExternalID != *rm.CurrentVideoID {
				continue
			}
			if !v.IsPlayed {
				if err := s.videoRepo.MarkPlayed(ctx, v.ID); err != nil {
					return err
				}
				v.IsPlayed = true
			}
			if i+1 < len(ordered) {
				next = ordered[i+1]
			}
			break
		}
	}

	if next == nil {
		rm.ClearCurrentVideo()
	} else {
		s.startVideo(rm, next.ExternalID)
	}

	return s.roomRepo.Update(ctx, rm)
}

// SetPlaying aplica um comando PLAY/PAUSE explícito, atualizando o
// carimbo de cooldown usado para ignorar SYNC_TIME obsoletos.
func (s *Service) SetPlaying(ctx context.Context, rm *room.Room, playing bool, at time.Time) error {
	rm.IsPlaying = playing
	rm.PlayPauseAt = &at
	rm.UpdatedAt = at
	return s.roomRepo.Update(ctx, rm)
}

// InCooldown indica se at ainda está dentro da janela de cooldown do
// último PLAY/PAUSE aceito. Exatamente s.playPauseCooldown decorridos
// conta como fora da janela (limite exclusivo).
func (s *Service) InCooldown(rm *room.Room, at time.Time) bool {
	if rm.PlayPauseAt == nil {
		return false
	}
	return at.Sub(*rm.PlayPauseAt) < s.playPauseCooldown
}

// ReportPosition atualiza o tempo de reprodução corrente (apenas
// indicativo). A persistência durável é responsabilidade do chamador,
// que deve respeitar PositionThrottle por sala.
func (s *Service) ReportPosition(ctx context.Context, rm *room.Room, t float64, persist bool) error {
	rm.CurrentTime = t
	rm.UpdatedAt = time.Now()
	if !persist {
		return nil
	}
	return s.roomRepo.Update(ctx, rm)
}

// startVideo centraliza a troca de vídeo atual + reinício da
// reprodução, usada por AddVideo(s), SelectVideo e NextVideo. Não
// toca PlayPauseAt: o cooldown só é armado por um PLAY/PAUSE explícito
// (SetPlaying), nunca por uma transição de troca de vídeo.
func (s *Service) startVideo(rm *room.Room, externalID string) {
	rm.SetCurrentVideo(externalID)
	rm.IsPlaying = true
	rm.UpdatedAt = time.Now()
}
