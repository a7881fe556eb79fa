package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dispatch-worklist-service/internal/domain"
)

// SQLite-backed implementation of the WatermarkStore port.
type SqliteWatermarkStore struct{ DB *sql.DB }

func NewSqliteWatermarkStore(db *sql.DB) *SqliteWatermarkStore {
	return &SqliteWatermarkStore{DB: db}
}

func (s *SqliteWatermarkStore) Get(ctx context.Context, source string) (*domain.FeedWatermark, error) {
	if s.DB == nil {
		return nil, errors.New("watermark store: db is nil")
	}

	q := `
	SELECT source, last_count, last_hash, updated_at
	FROM feed_watermarks
	WHERE source = ?;
	`

	var (
		wm        domain.FeedWatermark
		updatedAt string
	)
	err := s.DB.QueryRowContext(ctx, q, source).Scan(&wm.Source, &wm.LastCount, &wm.LastHash, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get watermark %q: %w", source, err)
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		wm.UpdatedAt = t
	}
	return &wm, nil
}

func (s *SqliteWatermarkStore) Put(ctx context.Context, wm domain.FeedWatermark) error {
	if s.DB == nil {
		return errors.New("watermark store: db is nil")
	}
	if wm.Source == "" {
		return errors.New("put watermark: source is required")
	}

	q := `
	INSERT OR REPLACE INTO feed_watermarks (source, last_count, last_hash, updated_at)
	VALUES (?, ?, ?, ?);
	`

	if _, err := s.DB.ExecContext(ctx, q, wm.Source, wm.LastCount, wm.LastHash, wm.UpdatedAt.Format(time.RFC3339)); err != nil {
		return fmt.Errorf("put watermark %q: %w", wm.Source, err)
	}
	return nil
}
