package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"utes-backend/internal/apperr"
	"utes-backend/internal/models"
)

type JobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

const jobColumns = `id, user_id, request, status, questions, total_chunks,
	processing_time_ms, retry_count, max_retries, error_message, created_at, completed_at`

func (r *JobRepo) Create(ctx context.Context, userID uuid.UUID, request json.RawMessage, maxRetries int) (*models.GenerationJob, error) {
	query := fmt.Sprintf(`INSERT INTO generation_jobs (id, user_id, request, status, max_retries)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s`, jobColumns)

	job, err := scanJob(r.pool.QueryRow(ctx, query, uuid.New(), userID, request, models.JobStatusPending, maxRetries))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}
	return job, nil
}

func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.GenerationJob, error) {
	query := fmt.Sprintf(`SELECT %s FROM generation_jobs WHERE id = $1`, jobColumns)

	job, err := scanJob(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}
	return job, nil
}

func (r *JobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE generation_jobs SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}
	return nil
}

// CompleteWithResult moves a job to completed and stores the generated
// questions alongside the chunking and timing details the client echoes.
func (r *JobRepo) CompleteWithResult(ctx context.Context, id uuid.UUID, questions json.RawMessage, totalChunks int, processingMs int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE generation_jobs SET status = $2, questions = $3, total_chunks = $4,
			processing_time_ms = $5, completed_at = NOW()
		WHERE id = $1`,
		id, models.JobStatusCompleted, questions, totalChunks, processingMs)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}
	return nil
}

// Fail marks a job failed with a client-facing message. retryCount records
// how many attempts were burned before giving up.
func (r *JobRepo) Fail(ctx context.Context, id uuid.UUID, errMsg string, retryCount int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE generation_jobs SET status = $2, error_message = $3, retry_count = $4, completed_at = NOW()
		WHERE id = $1`,
		id, models.JobStatusFailed, errMsg, retryCount)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}
	return nil
}

func (r *JobRepo) IncrementRetry(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE generation_jobs SET retry_count = retry_count + 1, status = $2 WHERE id = $1`,
		id, models.JobStatusPending)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}
	return nil
}

func scanJob(row pgx.Row) (*models.GenerationJob, error) {
	job := &models.GenerationJob{}
	err := row.Scan(
		&job.ID, &job.UserID, &job.Request, &job.Status, &job.Questions,
		&job.TotalChunks, &job.ProcessingMs, &job.RetryCount, &job.MaxRetries,
		&job.ErrorMessage, &job.CreatedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}
