package room

import (
	"context"
	"errors"
)

// Erros de repositório.
var (
	ErrRoomNotFound = errors.New("room not found")
)

// Repository define as operações de persistência durável para Room.
// O estado em memória (mantido pelo gateway de sessões) é a fonte da
// verdade em tempo real; este repositório existe para sobreviver a
// reinícios do processo e para a leitura via REST.
type Repository interface {
	// Create salva uma sala recém-criada.
	Create(ctx context.Context, room *Room) error

	// GetByCode busca uma sala pelo código público de 6 caracteres.
	// Retorna ErrRoomNotFound se não existir.
	GetByCode(ctx context.Context, code Code) (*Room, error)

	// GetByID busca uma sala pelo id interno.
	// Retorna ErrRoomNotFound se não existir.
	GetByID(ctx context.Context, id ID) (*Room, error)

	// Update persiste o estado de reprodução atual de uma sala
	// (vídeo atual, isPlaying, currentTime, updatedAt).
	// Retorna ErrRoomNotFound se não existir.
	Update(ctx context.Context, room *Room) error
}
