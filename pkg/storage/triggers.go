package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.mau.fi/util/dbutil"

	"github.com/solacehq/pulse/pkg/trigger"
)

// TriggerStore keeps triggers as JSON blobs with extracted columns for the
// due-check query path.
type TriggerStore struct {
	db *dbutil.Database
}

var _ trigger.Store = (*TriggerStore)(nil)

func NewTriggerStore(db *dbutil.Database) *TriggerStore {
	return &TriggerStore{db: db}
}

func (s *TriggerStore) Get(ctx context.Context, id string) (*trigger.Trigger, bool, error) {
	var data string
	row := s.db.QueryRow(ctx, `SELECT data FROM triggers WHERE id=$1`, id)
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get trigger: %w", err)
	}
	var trig trigger.Trigger
	if err := json.Unmarshal([]byte(data), &trig); err != nil {
		return nil, false, fmt.Errorf("decode trigger %s: %w", id, err)
	}
	return &trig, true, nil
}

func (s *TriggerStore) List(ctx context.Context) ([]trigger.Trigger, error) {
	rows, err := s.db.Query(ctx, `SELECT data FROM triggers ORDER BY next_trigger_at IS NULL, next_trigger_at`)
	if err != nil {
		return nil, fmt.Errorf("list triggers: %w", err)
	}
	defer rows.Close()
	var triggers []trigger.Trigger
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var trig trigger.Trigger
		if err := json.Unmarshal([]byte(data), &trig); err != nil {
			return nil, fmt.Errorf("decode trigger: %w", err)
		}
		triggers = append(triggers, trig)
	}
	return triggers, rows.Err()
}

func (s *TriggerStore) Put(ctx context.Context, trig trigger.Trigger) error {
	data, err := json.Marshal(trig)
	if err != nil {
		return fmt.Errorf("encode trigger: %w", err)
	}
	var nextAt any
	if trig.NextTriggerAtMs != nil {
		nextAt = *trig.NextTriggerAtMs
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO triggers (id, user_id, active, next_trigger_at, updated_at, data)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id)
		 DO UPDATE SET user_id=excluded.user_id, active=excluded.active,
		               next_trigger_at=excluded.next_trigger_at,
		               updated_at=excluded.updated_at, data=excluded.data`,
		trig.ID, trig.UserID, trig.Active, nextAt, trig.UpdatedAtMs, string(data),
	)
	if err != nil {
		return fmt.Errorf("put trigger: %w", err)
	}
	return nil
}

func (s *TriggerStore) Delete(ctx context.Context, id string) (bool, error) {
	result, err := s.db.Exec(ctx, `DELETE FROM triggers WHERE id=$1`, id)
	if err != nil {
		return false, fmt.Errorf("delete trigger: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, nil
	}
	return rows > 0, nil
}
