package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"utes-backend/internal/models"
	"utes-backend/internal/services"
)

type RecommendHandler struct {
	svc *services.RecommendService
}

func NewRecommendHandler(svc *services.RecommendService) *RecommendHandler {
	return &RecommendHandler{svc: svc}
}

// Recommend analyzes a transcript and suggests a question count. Callers
// that only need a rough number can set "quick" to skip the full analysis.
func (h *RecommendHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req models.RecommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.Transcript == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "transcript is required", r))
		return
	}
	if req.Difficulty == "" {
		req.Difficulty = "medium"
	}
	if !models.ValidDifficulty(req.Difficulty) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "difficulty must be easy, medium or hard", r))
		return
	}

	var result *models.RecommendationResult
	if req.Quick {
		result = h.svc.QuickRecommend(len(strings.Fields(req.Transcript)), req.Difficulty)
	} else {
		result = h.svc.Recommend(req.Transcript, req.Difficulty)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"data": result})
}

// Quick estimates from a word count alone, for callers that haven't
// fetched the transcript yet.
func (h *RecommendHandler) Quick(w http.ResponseWriter, r *http.Request) {
	wordCount, err := strconv.Atoi(r.URL.Query().Get("word_count"))
	if err != nil || wordCount <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "word_count must be a positive integer", r))
		return
	}
	difficulty := r.URL.Query().Get("difficulty")
	if difficulty == "" {
		difficulty = "medium"
	}
	if !models.ValidDifficulty(difficulty) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "difficulty must be easy, medium or hard", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"data": h.svc.QuickRecommend(wordCount, difficulty)})
}
