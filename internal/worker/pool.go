package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"utes-backend/internal/models"
	"utes-backend/internal/repository"
	"utes-backend/internal/services"
)

const GenerationQueue = "queue:question-generation"

// QueuedJob is the redis queue payload. The full job row lives in
// Postgres; the queue only carries enough to pick it up.
type QueuedJob struct {
	JobID  uuid.UUID `json:"job_id"`
	UserID uuid.UUID `json:"user_id"`
}

type Pool struct {
	redis       *redis.Client
	gemini      *services.GeminiService
	jobRepo     *repository.JobRepo
	workerCount int
	stopChan    chan struct{}
}

func NewPool(
	redisClient *redis.Client,
	gemini *services.GeminiService,
	jobRepo *repository.JobRepo,
	workerCount int,
) *Pool {
	return &Pool{
		redis:       redisClient,
		gemini:      gemini,
		jobRepo:     jobRepo,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

// Enqueue puts a job on the generation queue.
func (p *Pool) Enqueue(ctx context.Context, jobID, userID uuid.UUID) error {
	payload, err := json.Marshal(QueuedJob{JobID: jobID, UserID: userID})
	if err != nil {
		return err
	}
	return p.redis.LPush(ctx, GenerationQueue, string(payload)).Err()
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, GenerationQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var queued QueuedJob
		if err := json.Unmarshal([]byte(result[1]), &queued); err != nil {
			log.Printf("Worker %d: failed to parse job payload: %v", id, err)
			continue
		}

		// Try to acquire lock
		lockKey := fmt.Sprintf("job_lock:%s", queued.JobID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		p.process(ctx, id, &queued)

		p.redis.Del(ctx, lockKey)
	}
}

func (p *Pool) process(ctx context.Context, workerID int, queued *QueuedJob) {
	job, err := p.jobRepo.GetByID(ctx, queued.JobID)
	if err != nil {
		log.Printf("Worker %d: failed to load job %s: %v", workerID, queued.JobID, err)
		return
	}

	// Terminal jobs never run again; a stale requeue is a no-op.
	if job.Terminal() {
		return
	}

	log.Printf("Worker %d: processing job %s", workerID, job.ID)
	p.jobRepo.UpdateStatus(ctx, job.ID, models.JobStatusProcessing)

	var req models.GenerationRequest
	if err := json.Unmarshal(job.Request, &req); err != nil {
		p.jobRepo.Fail(ctx, job.ID, "invalid generation request", job.RetryCount)
		return
	}

	started := time.Now()
	questions, totalChunks, genErr := p.gemini.GenerateQuestions(ctx, &req)
	if genErr != nil {
		p.handleFailure(ctx, job, genErr)
		return
	}

	elapsed := time.Since(started).Milliseconds()
	if err := p.jobRepo.CompleteWithResult(ctx, job.ID, questions, totalChunks, elapsed); err != nil {
		log.Printf("Worker %d: failed to persist result for job %s: %v", workerID, job.ID, err)
		return
	}

	log.Printf("Job %s completed successfully (%d chunks, %dms)", job.ID, totalChunks, elapsed)
}

func (p *Pool) handleFailure(ctx context.Context, job *models.GenerationJob, err error) {
	retryCount := job.RetryCount + 1
	errMsg := err.Error()

	if retryCount < job.MaxRetries {
		log.Printf("Job %s failed (attempt %d): %s - retrying", job.ID, retryCount, errMsg)
		p.jobRepo.IncrementRetry(ctx, job.ID)

		// Re-queue after backoff
		payload, _ := json.Marshal(QueuedJob{JobID: job.ID, UserID: job.UserID})
		backoff := time.Duration(1<<uint(retryCount)) * time.Second
		time.AfterFunc(backoff, func() {
			p.redis.LPush(context.Background(), GenerationQueue, string(payload))
		})
		return
	}

	log.Printf("Job %s failed permanently: %s", job.ID, errMsg)
	p.jobRepo.Fail(ctx, job.ID, errMsg, retryCount)
}
