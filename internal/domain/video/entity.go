package video

import (
	"errors"
	"strings"
	"time"

	"github.com/vinib1903/cineus-api/internal/domain/room"
)

// ID é o identificador único de uma entrada de playlist.
type ID string

func (id ID) String() string {
	return string(id)
}

// Erros de domínio.
var (
	ErrExternalIDEmpty = errors.New("external id cannot be empty")
	ErrTitleEmpty      = errors.New("title cannot be empty")
	ErrVideoNotFound   = errors.New("video not found")
)

const (
	// MaxTitleLength impede que metadados de proveniência duvidosa
	// estourem o payload de PLAYLIST_UPDATE.
	MaxTitleLength = 300
)

// Video é uma entrada da playlist de uma sala. ExternalID é opaco para
// este serviço — carimbado pelo provedor de metadados upstream e
// repassado pelo fio como "youtubeId" por compatibilidade de protocolo,
// mas nada aqui assume que seja de fato um id do YouTube.
type Video struct {
	ID           ID
	RoomID       room.ID
	ExternalID   string
	Title        string
	ThumbnailURL string
	AddedBy      string // userId opaco de quem adicionou
	IsPlayed     bool
	Order        int
	CreatedAt    time.Time
}

// NewVideo cria uma entrada de playlist validada. id e order são
// atribuídos pelo chamador (id via internal/infra/idgen; order
// tipicamente o comprimento atual da playlist).
func NewVideo(id ID, roomID room.ID, externalID, title, thumbnailURL, addedBy string, order int) (*Video, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, ErrExternalIDEmpty
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleEmpty
	}
	if len(title) > MaxTitleLength {
		title = title[:MaxTitleLength]
	}

	return &Video{
		ID:           id,
		RoomID:       roomID,
		ExternalID:   externalID,
		Title:        title,
		ThumbnailURL: thumbnailURL,
		AddedBy:      addedBy,
		IsPlayed:     false,
		Order:        order,
		CreatedAt:    time.Now(),
	}, nil
}

// Before define a ordem total da playlist: Order crescente, empates
// desfeitos por CreatedAt e, por fim, por ID — mantendo a ordenação
// estável mesmo quando dois vídeos são inseridos no mesmo instante.
func (v *Video) Before(other *Video) bool {
	if v.Order != other.Order {
		return v.Order < other.Order
	}
	if !v.CreatedAt.Equal(other.CreatedAt) {
		return v.CreatedAt.Before(other.CreatedAt)
	}
	return v.ID < other.ID
}
