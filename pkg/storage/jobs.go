package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.mau.fi/util/dbutil"

	"github.com/solacehq/pulse/pkg/batch"
)

// JobStore keeps batch jobs. Progress is upserted after every recipient
// attempt, so a job survives interruption mid-run.
type JobStore struct {
	db *dbutil.Database
}

var _ batch.JobStore = (*JobStore)(nil)

func NewJobStore(db *dbutil.Database) *JobStore {
	return &JobStore{db: db}
}

func (s *JobStore) Get(ctx context.Context, id string) (*batch.Job, bool, error) {
	var data string
	row := s.db.QueryRow(ctx, `SELECT data FROM batch_jobs WHERE id=$1`, id)
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get batch job: %w", err)
	}
	var job batch.Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, false, fmt.Errorf("decode batch job %s: %w", id, err)
	}
	return &job, true, nil
}

func (s *JobStore) Put(ctx context.Context, job batch.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode batch job: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO batch_jobs (id, user_id, status, updated_at, data)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id)
		 DO UPDATE SET status=excluded.status, updated_at=excluded.updated_at, data=excluded.data`,
		job.ID, job.UserID, string(job.Status), job.UpdatedAtMs, string(data),
	)
	if err != nil {
		return fmt.Errorf("put batch job: %w", err)
	}
	return nil
}

func (s *JobStore) List(ctx context.Context, userID string) ([]batch.Job, error) {
	rows, err := s.db.Query(ctx,
		`SELECT data FROM batch_jobs WHERE user_id=$1 ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list batch jobs: %w", err)
	}
	defer rows.Close()
	var jobs []batch.Job
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var job batch.Job
		if err := json.Unmarshal([]byte(data), &job); err != nil {
			return nil, fmt.Errorf("decode batch job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
