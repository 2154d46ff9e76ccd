// Package aggregator persists analytics snapshots to PostgreSQL and saves
// them on a timer.
package aggregator

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Product-Search-Engine/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS analytics_snapshots (
    id             BIGSERIAL PRIMARY KEY,
    data           JSONB NOT NULL,
    total_searches BIGINT NOT NULL,
    zero_results   BIGINT NOT NULL,
    captured_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS analytics_snapshots_captured_at_idx
    ON analytics_snapshots (captured_at DESC);
CREATE TABLE IF NOT EXISTS analytics_snapshot_queries (
    snapshot_id BIGINT NOT NULL REFERENCES analytics_snapshots (id) ON DELETE CASCADE,
    query       TEXT NOT NULL,
    count       BIGINT NOT NULL,
    zero_result BOOLEAN NOT NULL,
    PRIMARY KEY (snapshot_id, query, zero_result)
);`

// Store writes each snapshot as one JSONB row plus one row per top and
// zero-result query, so query trends can be read with plain SQL.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "analytics-store"),
	}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating analytics schema: %w", err)
	}
	return nil
}

func (s *Store) SaveSnapshot(ctx context.Context, stats analytics.AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	capturedAt := stats.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now().UTC()
	}

	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO analytics_snapshots (data, total_searches, zero_results, captured_at)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			data, stats.TotalSearches, stats.ZeroResultCount, capturedAt,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("inserting snapshot: %w", err)
		}
		if err := insertQueries(ctx, tx, id, stats.TopQueries, false); err != nil {
			return err
		}
		return insertQueries(ctx, tx, id, stats.ZeroResultQueries, true)
	})
	if err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Info("analytics snapshot saved",
		"total_searches", stats.TotalSearches,
		"zero_results", stats.ZeroResultCount,
	)
	return nil
}

func insertQueries(ctx context.Context, tx *sql.Tx, snapshotID int64, queries []analytics.QueryCount, zeroResult bool) error {
	if len(queries) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO analytics_snapshot_queries (snapshot_id, query, count, zero_result)
		 VALUES ($1, $2, $3, $4)`,
	)
	if err != nil {
		return fmt.Errorf("preparing query insert: %w", err)
	}
	defer stmt.Close()
	for _, q := range queries {
		if _, err := stmt.ExecContext(ctx, snapshotID, q.Query, q.Count, zeroResult); err != nil {
			return fmt.Errorf("inserting query %q: %w", q.Query, err)
		}
	}
	return nil
}

// LatestSnapshot returns nil, nil when nothing has been saved yet.
func (s *Store) LatestSnapshot(ctx context.Context) (*analytics.AggregatedStats, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT data FROM analytics_snapshots ORDER BY captured_at DESC, id DESC LIMIT 1`,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}
	var stats analytics.AggregatedStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return &stats, nil
}

// ListSnapshots returns the last limit snapshots, newest first.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]analytics.AggregatedStats, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT data FROM analytics_snapshots ORDER BY captured_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []analytics.AggregatedStats
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		var stats analytics.AggregatedStats
		if err := json.Unmarshal(data, &stats); err != nil {
			s.logger.Warn("skipping corrupt snapshot", "error", err)
			continue
		}
		snapshots = append(snapshots, stats)
	}
	return snapshots, rows.Err()
}

// StartPeriodicSave snapshots agg every interval and once more when ctx is
// cancelled. The returned channel closes after the final save.
func (s *Store) StartPeriodicSave(ctx context.Context, agg *analytics.Aggregator, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.SaveSnapshot(ctx, agg.Stats()); err != nil {
					s.logger.Error("periodic snapshot failed", "error", err)
				}
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := s.SaveSnapshot(shutdownCtx, agg.Stats()); err != nil {
					s.logger.Error("final snapshot failed", "error", err)
				}
				return
			}
		}
	}()
	s.logger.Info("periodic snapshot started", "interval", interval)
	return done
}
