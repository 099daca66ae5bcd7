package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// TickRow is one persisted frame summary.
type TickRow struct {
	Tick       uint64
	Entities   int
	SystemsRun int
	Skipped    int
	Failed     int
	Destroyed  int
	Elapsed    time.Duration
	RecordedAt time.Time
}

type TickStatsRepo struct {
	db *DB
}

func NewTickStatsRepo(db *DB) *TickStatsRepo {
	return &TickStatsRepo{db: db}
}

const insertTickStats = `INSERT INTO tick_stats
	(world, tick, entities, systems_run, skipped, failed, destroyed, elapsed_us, recorded_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// InsertBatch writes rows in a single transaction. Either all rows land or none.
func (r *TickStatsRepo) InsertBatch(ctx context.Context, world string, rows []TickRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("tick stats begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(insertTickStats,
			world, int64(row.Tick), row.Entities, row.SystemsRun, row.Skipped,
			row.Failed, row.Destroyed, row.Elapsed.Microseconds(), row.RecordedAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("tick stats insert: %w", err)
	}

	return tx.Commit(ctx)
}

// Prune deletes rows of world older than cutoff and returns how many were removed.
func (r *TickStatsRepo) Prune(ctx context.Context, world string, cutoff time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM tick_stats WHERE world = $1 AND recorded_at < $2`, world, cutoff)
	if err != nil {
		return 0, fmt.Errorf("tick stats prune: %w", err)
	}
	return tag.RowsAffected(), nil
}
