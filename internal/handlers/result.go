package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"utes-backend/internal/middleware"
	"utes-backend/internal/models"
	"utes-backend/internal/repository"
)

type ResultHandler struct {
	resultRepo *repository.ResultRepo
}

func NewResultHandler(resultRepo *repository.ResultRepo) *ResultHandler {
	return &ResultHandler{resultRepo: resultRepo}
}

// Save appends one graded attempt. Attempts accumulate; they are never
// overwritten the way sessions are.
func (h *ResultHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req models.SaveResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fields := map[string]string{}
	if req.VideoID == "" {
		fields["video_id"] = "video_id is required"
	}
	if !models.ValidQuizMode(req.QuizMode) {
		fields["quiz_mode"] = "must be nob or legend"
	}
	if req.TotalQuestions <= 0 {
		fields["total_questions"] = "must be positive"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	result, err := h.resultRepo.Create(r.Context(), userID, &req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// Completion rolls every attempt for a video into per-mode best score and
// attempt count. Zero attempts yields the all-false shape, not an error.
func (h *ResultHandler) Completion(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	if videoID == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid video ID", r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	status, err := h.resultRepo.CompletionStatus(r.Context(), userID, videoID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}
