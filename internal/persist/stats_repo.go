package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FrameRow is one persisted stats snapshot.
type FrameRow struct {
	Tick            uint32
	FrameMs         float32
	Watermark       uint32
	Released        uint32
	ReleasedTotal   uint32
	PendingBins     uint32
	PendingIDs      uint32
	LiveEntities    uint32
	DisposeFailures uint32
}

type StatsRepo struct {
	db *DB
}

func NewStatsRepo(db *DB) *StatsRepo {
	return &StatsRepo{db: db}
}

// BeginSession records a new simulation session.
func (r *StatsRepo) BeginSession(ctx context.Context, id uuid.UUID, name string, maxEntities int) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO sessions (id, name, max_entities) VALUES ($1, $2, $3)`,
		id, name, maxEntities,
	)
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}
	return nil
}

// EndSession stamps the session's end time.
func (r *StatsRepo) EndSession(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE sessions SET ended_at = $2 WHERE id = $1`, id, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// WriteFrames atomically writes a batch of frame rows in a single transaction.
// A tick already recorded for the session is left untouched.
func (r *StatsRepo) WriteFrames(ctx context.Context, session uuid.UUID, rows []FrameRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("frames begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, f := range rows {
		if _, err := tx.Exec(ctx,
			`INSERT INTO frame_stats (session_id, tick, frame_ms, watermark, released, released_total,
			                          pending_bins, pending_ids, live_entities, dispose_failures)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (session_id, tick) DO NOTHING`,
			session, int64(f.Tick), f.FrameMs, int64(f.Watermark), int32(f.Released), int64(f.ReleasedTotal),
			int32(f.PendingBins), int32(f.PendingIDs), int32(f.LiveEntities), int32(f.DisposeFailures),
		); err != nil {
			return fmt.Errorf("frames insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}
