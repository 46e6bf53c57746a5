package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/samber/do"

	_ "github.com/lib/pq"
)

type PostgresRecorder struct {
	db *sql.DB
}

func NewPostgresRecorder(i *do.Injector) (Recorder, error) {
	return &PostgresRecorder{db: do.MustInvoke[*sql.DB](i)}, nil
}

func (r *PostgresRecorder) Create(ctx context.Context, rec Record) (int64, error) {
	query := `
		INSERT INTO generated_images
			(user_id, prompt, image_url, width, height, cfg_scale, steps, seed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		rec.UserID,
		rec.Prompt,
		rec.ImageURL,
		rec.Width,
		rec.Height,
		rec.CfgScale,
		rec.Steps,
		rec.Seed,
		time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *PostgresRecorder) ListRecent(ctx context.Context, userID string, limit int) ([]Record, error) {
	query := `
		SELECT id, user_id, prompt, image_url, width, height, cfg_scale, steps, seed, created_at
		FROM generated_images
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.Prompt,
			&rec.ImageURL,
			&rec.Width,
			&rec.Height,
			&rec.CfgScale,
			&rec.Steps,
			&rec.Seed,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
