// Package postgres persists the durable half of the matching engine: sync
// anchors per platform stream and the offered-workout registry.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/swimmatch/internal/domain"
)

const (
	streamWorkouts  = "workouts"
	streamHeartRate = "heart_rate"
)

// Repository provides Postgres-backed persistence for anchors and the
// offered registry. It implements ingest.AnchorStore and domain.StateStore.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LoadAnchors returns the stored anchors for a user and platform. Missing
// rows come back as empty tokens, which the adapters treat as a first run.
func (r *Repository) LoadAnchors(ctx context.Context, userID, platform string) (domain.Anchors, error) {
	const query = `SELECT stream, anchor FROM sync_anchors WHERE user_id=$1 AND platform=$2`

	rows, err := r.pool.Query(ctx, query, userID, platform)
	if err != nil {
		return domain.Anchors{}, err
	}
	defer rows.Close()

	var anchors domain.Anchors
	for rows.Next() {
		var stream, anchor string
		if err := rows.Scan(&stream, &anchor); err != nil {
			return domain.Anchors{}, err
		}
		switch stream {
		case streamWorkouts:
			anchors.Workouts = anchor
		case streamHeartRate:
			anchors.HeartRate = anchor
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Anchors{}, err
	}
	return anchors, nil
}

// SaveAnchors upserts both stream anchors in one transaction so a partial
// write cannot leave the streams at inconsistent positions.
func (r *Repository) SaveAnchors(ctx context.Context, userID, platform string, anchors domain.Anchors) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const stmt = `INSERT INTO sync_anchors (user_id, platform, stream, anchor, updated_at)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (user_id, platform, stream) DO UPDATE SET anchor=EXCLUDED.anchor, updated_at=EXCLUDED.updated_at`

	now := time.Now().UTC()
	for stream, anchor := range map[string]string{
		streamWorkouts:  anchors.Workouts,
		streamHeartRate: anchors.HeartRate,
	} {
		if _, err := tx.Exec(ctx, stmt, userID, platform, stream, anchor, now); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// OfferedIDs returns every workout id ever offered to the user.
func (r *Repository) OfferedIDs(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT workout_id FROM offered_workouts WHERE user_id=$1 ORDER BY offered_at`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddOffered records newly offered workout ids. Replays are harmless: the
// registry delta may be retried after a crash, so conflicts are ignored.
func (r *Repository) AddOffered(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const stmt = `INSERT INTO offered_workouts (user_id, workout_id, offered_at)
        VALUES ($1,$2,$3)
        ON CONFLICT (user_id, workout_id) DO NOTHING`

	now := time.Now().UTC()
	for _, id := range ids {
		if _, err := tx.Exec(ctx, stmt, userID, id, now); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Reset deletes the user's anchors and offered registry in one transaction.
// Anchors and offered ids reference the same ingestion history, so they must
// go together or offered ids would suppress matches from a fresh backfill.
func (r *Repository) Reset(ctx context.Context, userID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM sync_anchors WHERE user_id=$1`, userID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM offered_workouts WHERE user_id=$1`, userID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
