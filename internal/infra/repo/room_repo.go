package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vinib1903/cineus-api/internal/domain/room"
)

// RoomRepository implementa room.Repository.
type RoomRepository struct {
	pool *pgxpool.Pool
}

// NewRoomRepository cria uma nova instância do repositório.
func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

// Create salva uma nova sala no banco.
func (r *RoomRepository) Create(ctx context.Context, rm *room.Room) error {
	query := `
		INSERT INTO rooms (id, code, current_video_id, is_playing, current_time_seconds, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		rm.ID,
		rm.Code,
		rm.CurrentVideoID,
		rm.IsPlaying,
		rm.CurrentTime,
		rm.CreatedAt,
		rm.UpdatedAt,
	)

	return err
}

// GetByCode busca uma sala pelo código público de 6 caracteres.
func (r *RoomRepository) GetByCode(ctx context.Context, code room.Code) (*room.Room, error) {
	query := `
		SELECT id, code, current_video_id, is_playing, current_time_seconds, created_at, updated_at
		FROM rooms
		WHERE UPPER(code) = UPPER($1)
	`

	return r.scanRoom(r.pool.QueryRow(ctx, query, code))
}

// GetByID busca uma sala pelo id interno.
func (r *RoomRepository) GetByID(ctx context.Context, id room.ID) (*room.Room, error) {
	query := `
		SELECT id, code, current_video_id, is_playing, current_time_seconds, created_at, updated_at
		FROM rooms
		WHERE id = $1
	`

	return r.scanRoom(r.pool.QueryRow(ctx, query, id))
}

// Update persiste o estado de reprodução atual de uma sala.
func (r *RoomRepository) Update(ctx context.Context, rm *room.Room) error {
	query := `
		UPDATE rooms
		SET current_video_id = $2,
		    is_playing = $3,
		    current_time_seconds = $4,
		    updated_at = $5
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		rm.ID,
		rm.CurrentVideoID,
		rm.IsPlaying,
		rm.CurrentTime,
		rm.UpdatedAt,
	)

	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return room.ErrRoomNotFound
	}

	return nil
}

// scanRoom converte uma linha do banco em um Room.
func (r *RoomRepository) scanRoom(row pgx.Row) (*room.Room, error) {
	var rm room.Room

	err := row.Scan(
		&rm.ID,
		&rm.Code,
		&rm.CurrentVideoID,
		&rm.IsPlaying,
		&rm.CurrentTime,
		&rm.CreatedAt,
		&rm.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, room.ErrRoomNotFound
		}
		return nil, err
	}

	return &rm, nil
}
