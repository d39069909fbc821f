package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vinib1903/cineus-api/internal/domain/room"
	"github.com/vinib1903/cineus-api/internal/domain/video"
)

// VideoRepository implementa video.Repository.
type VideoRepository struct {
	pool *pgxpool.Pool
}

// NewVideoRepository cria uma nova instância do repositório.
func NewVideoRepository(pool *pgxpool.Pool) *VideoRepository {
	return &VideoRepository{pool: pool}
}

// Create salva uma nova entrada de playlist.
func (r *VideoRepository) Create(ctx context.Context, v *video.Video) error {
	query := `
		INSERT INTO videos (id, room_id, external_id, title, thumbnail_url, added_by, is_played, "order", created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		v.ID, v.RoomID, v.ExternalID, v.Title, v.ThumbnailURL, v.AddedBy, v.IsPlayed, v.Order, v.CreatedAt,
	)
	return err
}

// CreateBatch salva várias entradas numa única transação, preservando
// a ordem relativa da fatia recebida.
func (r *VideoRepository) CreateBatch(ctx context.Context, videos []*video.Video) error {
	if len(videos) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO videos (id, room_id, external_id, title, thumbnail_url, added_by, is_played, "order", created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, v := range videos {
		if _, err := tx.Exec(ctx, query,
			v.ID, v.RoomID, v.ExternalID, v.Title, v.ThumbnailURL, v.AddedBy, v.IsPlayed, v.Order, v.CreatedAt,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Delete remove uma entrada pelo id.
func (r *VideoRepository) Delete(ctx context.Context, id video.ID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return video.ErrVideoNotFound
	}
	return nil
}

// GetByID busca uma entrada pelo id.
func (r *VideoRepository) GetByID(ctx context.Context, id video.ID) (*video.Video, error) {
	query := `
		SELECT id, room_id, external_id, title, thumbnail_url, added_by, is_played, "order", created_at
		FROM videos
		WHERE id = $1
	`
	return r.scanVideo(r.pool.QueryRow(ctx, query, id))
}

// ListByRoom retorna a playlist inteira de uma sala, ordenada por
// Order crescente (empates por created_at, depois id).
func (r *VideoRepository) ListByRoom(ctx context.Context, roomID room.ID) ([]*video.Video, error) {
	query := `
		SELECT id, room_id, external_id, title, thumbnail_url, added_by, is_played, "order", created_at
		FROM videos
		WHERE room_id = $1
		ORDER BY "order" ASC, created_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []*video.Video
	for rows.Next() {
		v, err := r.scanVideoRows(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return videos, nil
}

// MarkPlayed marca uma entrada como já reproduzida.
func (r *VideoRepository) MarkPlayed(ctx context.Context, id video.ID) error {
	result, err := r.pool.Exec(ctx, `UPDATE videos SET is_played = true WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return video.ErrVideoNotFound
	}
	return nil
}

func (r *VideoRepository) scanVideo(row pgx.Row) (*video.Video, error) {
	var v video.Video
	err := row.Scan(&v.ID, &v.RoomID, &v.ExternalID, &v.Title, &v.ThumbnailURL, &v.AddedBy, &v.IsPlayed, &v.Order, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, video.ErrVideoNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *VideoRepository) scanVideoRows(rows pgx.Rows) (*video.Video, error) {
	var v video.Video
	err := rows.Scan(&v.ID, &v.RoomID, &v.ExternalID, &v.Title, &v.ThumbnailURL, &v.AddedBy, &v.IsPlayed, &v.Order, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
