package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/strategraph/backend/pkg/common"
	"github.com/strategraph/backend/pkg/logger"
)

const insertJobSQL = `
INSERT INTO query_jobs (id, query_text, document_id, raw_context, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, now(), now())`

const getJobSQL = `
SELECT id, query_text, document_id, raw_context, status,
       COALESCE(graph_id, ''), COALESCE(error, ''), created_at, updated_at
FROM query_jobs
WHERE id = $1`

const listJobsSQL = `
SELECT id, query_text, document_id, raw_context, status,
       COALESCE(graph_id, ''), COALESCE(error, ''), created_at, updated_at
FROM query_jobs
ORDER BY created_at DESC`

// claimJobSQL is the atomic pending-to-processing transition. The WHERE
// clause guarantees at most one worker wins a given job.
const claimJobSQL = `
UPDATE query_jobs
SET status = $2, updated_at = now()
WHERE id = $1 AND status = $3
RETURNING id, query_text, document_id, raw_context, status,
          COALESCE(graph_id, ''), COALESCE(error, ''), created_at, updated_at`

const completeJobSQL = `
UPDATE query_jobs
SET status = $2, graph_id = $3, updated_at = now()
WHERE id = $1 AND status = $4`

const failJobSQL = `
UPDATE query_jobs
SET status = $2, error = $3, updated_at = now()
WHERE id = $1 AND status = $4`

const cancelJobSQL = `
UPDATE query_jobs
SET status = $2, updated_at = now()
WHERE id = $1 AND status = $3`

func (s *GraphDBStorage) CreateJob(ctx context.Context, job *common.QueryJob) error {
	rawContext, err := json.Marshal(job.RawContext)
	if err != nil {
		return fmt.Errorf("failed to encode job context: %w", err)
	}
	_, err = s.conn.Exec(ctx, insertJobSQL,
		job.ID, job.QueryText, job.DocumentID, rawContext, common.JobStatusPending)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (s *GraphDBStorage) GetJob(ctx context.Context, id string) (*common.QueryJob, error) {
	job, err := scanJob(s.conn.QueryRow(ctx, getJobSQL, id))
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, fmt.Errorf("%w: job %s", common.ErrNotFound, id)
	}
	return job, err
}

func (s *GraphDBStorage) ListJobs(ctx context.Context) ([]common.QueryJob, error) {
	rows, err := s.conn.Query(ctx, listJobsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []common.QueryJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// ClaimJob moves a pending job to processing. Jobs in any other state,
// including ones another worker already claimed, yield
// ErrInvalidTransition.
func (s *GraphDBStorage) ClaimJob(ctx context.Context, id string) (*common.QueryJob, error) {
	row := s.conn.QueryRow(ctx, claimJobSQL, id, common.JobStatusProcessing, common.JobStatusPending)
	job, err := scanJob(row)
	if errors.Is(err, pgxv5.ErrNoRows) {
		if _, getErr := s.GetJob(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: job %s is not pending", common.ErrInvalidTransition, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	logger.Debug("[Store][ClaimJob] Job claimed", "job_id", id)
	return job, nil
}

func (s *GraphDBStorage) CompleteJob(ctx context.Context, id string, graphID string) error {
	return s.finishJob(ctx, completeJobSQL, id, common.JobStatusCompleted, graphID)
}

func (s *GraphDBStorage) FailJob(ctx context.Context, id string, errorDescriptor string) error {
	return s.finishJob(ctx, failJobSQL, id, common.JobStatusFailed, errorDescriptor)
}

// finishJob moves a processing job to a terminal state. Terminal states
// never transition again, which the processing guard enforces.
func (s *GraphDBStorage) finishJob(ctx context.Context, sql string, id string, status string, detail string) error {
	tag, err := s.conn.Exec(ctx, sql, id, status, detail, common.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to finish job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := s.GetJob(ctx, id); getErr != nil {
			return getErr
		}
		return fmt.Errorf("%w: job %s is not processing", common.ErrInvalidTransition, id)
	}
	return nil
}

// CancelJob cancels a job that has not been claimed yet. Once processing
// started the job runs to completion or failure.
func (s *GraphDBStorage) CancelJob(ctx context.Context, id string) error {
	tag, err := s.conn.Exec(ctx, cancelJobSQL, id, common.JobStatusCancelled, common.JobStatusPending)
	if err != nil {
		return fmt.Errorf("failed to cancel job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := s.GetJob(ctx, id); getErr != nil {
			return getErr
		}
		return fmt.Errorf("%w: job %s is not pending", common.ErrInvalidTransition, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*common.QueryJob, error) {
	var job common.QueryJob
	var rawContext []byte
	err := row.Scan(
		&job.ID, &job.QueryText, &job.DocumentID, &rawContext, &job.Status,
		&job.GraphID, &job.Error, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(rawContext) > 0 {
		if err := json.Unmarshal(rawContext, &job.RawContext); err != nil {
			return nil, fmt.Errorf("failed to decode job context: %w", err)
		}
	}
	return &job, nil
}
