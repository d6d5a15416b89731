package usercontext

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.mau.fi/util/dbutil"
)

// Store persists one snapshot row per user with merge-upsert semantics.
type Store struct {
	db *dbutil.Database
}

func NewStore(db *dbutil.Database) *Store {
	return &Store{db: db}
}

// Read returns the user's snapshot, or a zero-value snapshot if none has
// been written yet. The zero snapshot is not persisted until the first
// upsert.
func (s *Store) Read(ctx context.Context, userID string) (*Snapshot, error) {
	var snap Snapshot
	row := s.db.QueryRow(ctx,
		`SELECT user_id, mood, energy, motivation, burnout, stress,
		        is_working, is_studying, is_exercising, focus_session, quiet_hours, updated_at
		 FROM user_context
		 WHERE user_id=$1`,
		userID,
	)
	err := row.Scan(
		&snap.UserID, &snap.Mood, &snap.Energy, &snap.Motivation, &snap.Burnout, &snap.Stress,
		&snap.Working, &snap.Studying, &snap.Exercising, &snap.FocusSession, &snap.QuietHours, &snap.UpdatedAtMs,
	)
	if err == sql.ErrNoRows {
		return &Snapshot{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read user context: %w", err)
	}
	return &snap, nil
}

// Upsert merges patch into the stored snapshot. Missing rows are created
// from the zero snapshot first, so a partial patch never clears other
// signals.
func (s *Store) Upsert(ctx context.Context, userID string, patch Patch) (*Snapshot, error) {
	snap, err := s.Read(ctx, userID)
	if err != nil {
		return nil, err
	}
	Merge(snap, patch)
	snap.UserID = userID
	snap.UpdatedAtMs = time.Now().UnixMilli()
	_, err = s.db.Exec(ctx,
		`INSERT INTO user_context
		   (user_id, mood, energy, motivation, burnout, stress,
		    is_working, is_studying, is_exercising, focus_session, quiet_hours, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (user_id)
		 DO UPDATE SET mood=excluded.mood, energy=excluded.energy, motivation=excluded.motivation,
		               burnout=excluded.burnout, stress=excluded.stress,
		               is_working=excluded.is_working, is_studying=excluded.is_studying,
		               is_exercising=excluded.is_exercising, focus_session=excluded.focus_session,
		               quiet_hours=excluded.quiet_hours, updated_at=excluded.updated_at`,
		snap.UserID, snap.Mood, snap.Energy, snap.Motivation, snap.Burnout, snap.Stress,
		snap.Working, snap.Studying, snap.Exercising, snap.FocusSession, snap.QuietHours, snap.UpdatedAtMs,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert user context: %w", err)
	}
	return snap, nil
}
