package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"utes-backend/internal/middleware"
	"utes-backend/internal/models"
	"utes-backend/internal/pending"
	"utes-backend/internal/repository"
	"utes-backend/internal/worker"
)

const maxRetries = 3

type GenerationHandler struct {
	jobRepo *repository.JobRepo
	pool    *worker.Pool
	tracker *pending.Tracker
}

func NewGenerationHandler(jobRepo *repository.JobRepo, pool *worker.Pool, tracker *pending.Tracker) *GenerationHandler {
	return &GenerationHandler{jobRepo: jobRepo, pool: pool, tracker: tracker}
}

// Generate validates a generation request, persists a pending job and puts
// it on the queue. The client polls /api/status/{jobId} for the outcome.
func (h *GenerationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fields := map[string]string{}
	if strings.TrimSpace(req.Transcript) == "" {
		fields["transcript"] = "transcript is required"
	}
	if req.NumberOfQuestions <= 0 {
		req.NumberOfQuestions = models.DefaultQuestionCount
		if req.QuizMode == models.QuizModeLegend {
			req.NumberOfQuestions = models.DefaultEssayCount
		}
	}
	if !models.ValidDifficulty(req.Difficulty) {
		fields["difficulty"] = "must be easy, medium or hard"
	}
	if !models.ValidLearningObjective(req.LearningObjective) {
		fields["learningObjective"] = "must be a Bloom taxonomy level"
	}
	if !models.ValidQuizMode(req.QuizMode) {
		fields["quizMode"] = "must be nob or legend"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	requestJSON, _ := json.Marshal(req)
	job, err := h.jobRepo.Create(r.Context(), userID, requestJSON, maxRetries)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	if err := h.pool.Enqueue(r.Context(), job.ID, userID); err != nil {
		writeJSON(w, http.StatusBadGateway, errorResp("GENERATION_START_ERROR", "Failed to start question generation", r))
		return
	}

	if userID != uuid.Nil {
		h.tracker.Set(r.Context(), userID, models.PendingJob{JobID: job.ID, StartedAt: time.Now()})
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{"jobId": job.ID})
}

// Status reports a job's current state. Terminal jobs never change, so
// polling a completed or failed job returns the same payload every time.
func (h *GenerationHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "jobId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid job ID", r))
		return
	}

	job, err := h.jobRepo.GetByID(r.Context(), jobID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	status := models.GenerationStatus{
		JobID:  job.ID.String(),
		Status: job.Status,
	}
	switch job.Status {
	case models.JobStatusCompleted:
		status.Result = &models.GenerationResult{
			Questions:      job.Questions,
			TotalChunks:    job.TotalChunks,
			ProcessingTime: job.ProcessingMs,
		}
	case models.JobStatusFailed:
		if job.ErrorMessage != nil {
			status.Error = *job.ErrorMessage
		}
	}

	// A terminal read from the job's owner ends the resumable-poll window.
	if job.Terminal() {
		if userID := middleware.GetUserID(r.Context()); userID == job.UserID && userID != uuid.Nil {
			h.tracker.Clear(r.Context(), userID)
		}
	}

	writeJSON(w, http.StatusOK, status)
}

// Pending returns the job a reloaded client should resume polling, if any.
func (h *GenerationHandler) Pending(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	job, err := h.tracker.Get(r.Context(), userID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"pending": job})
}

func (h *GenerationHandler) ClearPending(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.tracker.Clear(r.Context(), userID); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Pending job cleared"})
}
