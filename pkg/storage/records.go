package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"go.mau.fi/util/dbutil"

	"github.com/solacehq/pulse/pkg/pipeline"
)

// RecordStore keeps execution records. Records are written once at start
// and once at completion; terminal records are never touched again.
type RecordStore struct {
	db *dbutil.Database
}

var _ pipeline.RecordStore = (*RecordStore)(nil)

func NewRecordStore(db *dbutil.Database) *RecordStore {
	return &RecordStore{db: db}
}

func (s *RecordStore) Put(ctx context.Context, rec pipeline.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode execution record: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO execution_records (id, trigger_id, user_id, status, started_at, data)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id)
		 DO UPDATE SET status=excluded.status, data=excluded.data`,
		rec.ID, rec.TriggerID, rec.UserID, string(rec.Status), rec.StartedAtMs, string(data),
	)
	if err != nil {
		return fmt.Errorf("put execution record: %w", err)
	}
	return nil
}

func (s *RecordStore) ListByTrigger(ctx context.Context, triggerID string, limit int) ([]pipeline.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx,
		`SELECT data FROM execution_records WHERE trigger_id=$1 ORDER BY started_at DESC LIMIT $2`,
		triggerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list execution records: %w", err)
	}
	defer rows.Close()
	var records []pipeline.Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var rec pipeline.Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("decode execution record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
