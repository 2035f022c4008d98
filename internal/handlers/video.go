package handlers

import (
	"encoding/json"
	"net/http"

	"utes-backend/internal/services"
)

type VideoHandler struct {
	youtube *services.YouTubeService
}

func NewVideoHandler(youtube *services.YouTubeService) *VideoHandler {
	return &VideoHandler{youtube: youtube}
}

// Resolve turns a YouTube URL into metadata plus transcript. A video
// without captions still resolves; the transcript field is just absent.
func (h *VideoHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "url is required", r))
		return
	}

	result, err := h.youtube.Resolve(r.Context(), req.URL)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
