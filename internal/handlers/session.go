package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"utes-backend/internal/middleware"
	"utes-backend/internal/models"
	"utes-backend/internal/repository"
)

const defaultHistoryLimit = 10

type SessionHandler struct {
	sessionRepo *repository.SessionRepo
	resultRepo  *repository.ResultRepo
}

func NewSessionHandler(sessionRepo *repository.SessionRepo, resultRepo *repository.ResultRepo) *SessionHandler {
	return &SessionHandler{sessionRepo: sessionRepo, resultRepo: resultRepo}
}

// Save upserts the question set for a (video, mode) pair. Saving the same
// pair again replaces the questions instead of growing the history.
func (h *SessionHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req models.SaveSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fields := map[string]string{}
	if req.VideoID == "" {
		fields["video_id"] = "video_id is required"
	}
	if req.VideoTitle == "" {
		fields["video_title"] = "video_title is required"
	}
	if !models.ValidQuizMode(req.QuizMode) {
		fields["quiz_mode"] = "must be nob or legend"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	id, isNew, err := h.sessionRepo.Upsert(r.Context(), userID, &req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]interface{}{
		"session_id": id,
		"is_new":     isNew,
	})
}

// List returns the user's recent sessions, newest first, each with the
// latest result for its (video, mode) pair attached when one exists.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= defaultHistoryLimit {
			limit = n
		}
	}

	sessions, err := h.sessionRepo.ListByUser(r.Context(), userID, limit)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	for _, s := range sessions {
		result, err := h.resultRepo.LatestByKey(r.Context(), userID, s.VideoID, s.QuizMode)
		if err == nil {
			s.LatestResult = result
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	session, err := h.sessionRepo.GetByID(r.Context(), userID, id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	if result, err := h.resultRepo.LatestByKey(r.Context(), userID, session.VideoID, session.QuizMode); err == nil {
		session.LatestResult = result
	}

	writeJSON(w, http.StatusOK, session)
}
