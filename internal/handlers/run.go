package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"utes-backend/internal/middleware"
	"utes-backend/internal/models"
	"utes-backend/internal/repository"
	"utes-backend/internal/runstate"
	"utes-backend/internal/services"
)

type RunHandler struct {
	store       *runstate.Store
	sessionRepo *repository.SessionRepo
	resultRepo  *repository.ResultRepo
	gemini      *services.GeminiService
}

func NewRunHandler(store *runstate.Store, sessionRepo *repository.SessionRepo, resultRepo *repository.ResultRepo, gemini *services.GeminiService) *RunHandler {
	return &RunHandler{store: store, sessionRepo: sessionRepo, resultRepo: resultRepo, gemini: gemini}
}

// Start opens a run over a saved session's question set. The run lives in
// Redis with a TTL; walking away abandons it without leaving a result.
func (h *RunHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID uuid.UUID `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	session, err := h.sessionRepo.GetByID(r.Context(), userID, req.SessionID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	var run *runstate.Run
	if session.QuizMode == models.QuizModeLegend {
		var questions []models.EssayQuestion
		if err := json.Unmarshal(session.Questions, &questions); err != nil || len(questions) == 0 {
			writeJSON(w, http.StatusConflict, errorResp("RUN_STATE", "Session has no questions", r))
			return
		}
		run = runstate.NewEssayRun(userID, session.ID, questions)
	} else {
		var questions []models.QuizQuestion
		if err := json.Unmarshal(session.Questions, &questions); err != nil || len(questions) == 0 {
			writeJSON(w, http.StatusConflict, errorResp("RUN_STATE", "Session has no questions", r))
			return
		}
		run = runstate.NewQuizRun(userID, session.ID, questions)
	}

	if err := h.store.Save(r.Context(), run); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, run)
}

func (h *RunHandler) Get(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// SelectOption locks in the user's choice for the current question. The
// first selection is final.
func (h *RunHandler) SelectOption(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Option int `json:"option"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}

	if err := run.SelectOption(req.Option); err != nil {
		writeRunError(w, r, err)
		return
	}

	if err := h.store.Save(r.Context(), run); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// Advance moves a multiple-choice run forward. Completing the last
// question persists the attempt.
func (h *RunHandler) Advance(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}

	if err := run.Advance(); err != nil {
		writeRunError(w, r, err)
		return
	}

	h.finishAndSave(w, r, run)
}

// SubmitEssay grades the answer synchronously and enters the feedback
// phase. A grading failure leaves the run untouched so the user can
// submit again.
func (h *RunHandler) SubmitEssay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answer string `json:"answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}

	if run.QuizMode != models.QuizModeLegend {
		writeRunError(w, r, runstate.ErrWrongMode)
		return
	}
	if run.Phase == runstate.PhaseCompleted {
		writeRunError(w, r, runstate.ErrRunCompleted)
		return
	}
	if run.Phase == runstate.PhaseFeedback {
		writeRunError(w, r, runstate.ErrInFeedback)
		return
	}
	if req.Answer == "" {
		writeRunError(w, r, runstate.ErrEmptyAnswer)
		return
	}

	q := run.EssayQuestions[run.CurrentIndex]
	grade, err := h.gemini.GradeEssay(r.Context(), q.Question, q.ReferenceContext, q.KeyPoints, req.Answer)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	if err := run.SubmitEssay(req.Answer, grade); err != nil {
		writeRunError(w, r, err)
		return
	}

	if err := h.store.Save(r.Context(), run); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// AdvanceFeedback leaves the feedback phase. Completing the last essay
// persists the attempt with the averaged score.
func (h *RunHandler) AdvanceFeedback(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}

	if err := run.AdvanceFromFeedback(); err != nil {
		writeRunError(w, r, err)
		return
	}

	h.finishAndSave(w, r, run)
}

// Retake resets the run over the same question set. Prior persisted
// attempts are untouched.
func (h *RunHandler) Retake(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}

	run.Retake()

	if err := h.store.Save(r.Context(), run); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *RunHandler) loadRun(w http.ResponseWriter, r *http.Request) (*runstate.Run, bool) {
	runID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid run ID", r))
		return nil, false
	}

	userID := middleware.GetUserID(r.Context())

	run, err := h.store.Get(r.Context(), userID, runID)
	if err != nil {
		writeAppError(w, r, err)
		return nil, false
	}
	return run, true
}

// finishAndSave stores the advanced run and, when the advance completed
// it, records the attempt as a quiz result.
func (h *RunHandler) finishAndSave(w http.ResponseWriter, r *http.Request, run *runstate.Run) {
	if err := h.store.Save(r.Context(), run); err != nil {
		writeAppError(w, r, err)
		return
	}

	if run.Phase == runstate.PhaseCompleted {
		if err := h.persistResult(r, run); err != nil {
			log.Printf("Failed to persist result for run %s: %v", run.ID, err)
		}
	}

	writeJSON(w, http.StatusOK, run)
}

func (h *RunHandler) persistResult(r *http.Request, run *runstate.Run) error {
	session, err := h.sessionRepo.GetByID(r.Context(), run.UserID, run.SessionID)
	if err != nil {
		return err
	}

	req := &models.SaveResultRequest{
		VideoID:        session.VideoID,
		VideoTitle:     session.VideoTitle,
		VideoURL:       session.VideoURL,
		QuizMode:       run.QuizMode,
		Score:          run.FinalScore(),
		TotalQuestions: run.TotalQuestions(),
		Questions:      session.Questions,
	}

	if run.QuizMode == models.QuizModeLegend {
		req.UserAnswers, _ = json.Marshal(run.EssayAnswers)
		req.EssayScores, _ = json.Marshal(run.EssayScores)
		req.EssayFeedbacks, _ = json.Marshal(run.EssayFeedbacks)
	} else {
		req.UserAnswers, _ = json.Marshal(run.SelectedAnswers)
	}

	_, err = h.resultRepo.Create(r.Context(), run.UserID, req)
	return err
}

func writeRunError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, runstate.ErrEmptyAnswer), errors.Is(err, runstate.ErrBadOption):
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", err.Error(), r))
	case errors.Is(err, runstate.ErrRunCompleted),
		errors.Is(err, runstate.ErrAlreadyAnswered),
		errors.Is(err, runstate.ErrNotInFeedback),
		errors.Is(err, runstate.ErrInFeedback),
		errors.Is(err, runstate.ErrWrongMode):
		writeJSON(w, http.StatusConflict, errorResp("RUN_STATE", err.Error(), r))
	default:
		writeAppError(w, r, err)
	}
}
