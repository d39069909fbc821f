package video

import (
	"context"

	"github.com/vinib1903/cineus-api/internal/domain/room"
)

// Repository define as operações de persistência para a playlist de
// uma sala.
type Repository interface {
	// Create salva uma nova entrada de playlist.
	Create(ctx context.Context, v *Video) error

	// CreateBatch salva várias entradas de uma vez (ADD_VIDEOS),
	// preservando a ordem relativa da fatia recebida.
	CreateBatch(ctx context.Context, videos []*Video) error

	// Delete remove uma entrada pelo id.
	Delete(ctx context.Context, id ID) error

	// GetByID busca uma entrada pelo id. Retorna ErrVideoNotFound se
	// não existir.
	GetByID(ctx context.Context, id ID) (*Video, error)

	// ListByRoom retorna a playlist inteira de uma sala, ordenada por
	// Order crescente (empates por CreatedAt, depois ID).
	ListByRoom(ctx context.Context, roomID room.ID) ([]*Video, error)

	// MarkPlayed marca uma entrada como já reproduzida.
	MarkPlayed(ctx context.Context, id ID) error
}
