// Package apperr defines the error taxonomy shared by services, repositories
// and handlers. Callers wrap these sentinels with fmt.Errorf("...: %w", ...)
// and handlers map them to HTTP codes via Code.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidURL            = errors.New("invalid YouTube URL")
	ErrMetadataUnavailable   = errors.New("video metadata unavailable")
	ErrTranscriptUnavailable = errors.New("no transcript available for this video")
	ErrGenerationStart       = errors.New("failed to start question generation")
	ErrGenerationFailed      = errors.New("question generation failed")
	ErrGrading               = errors.New("essay grading failed")
	ErrPersistence           = errors.New("persistence operation failed")
	ErrUnauthenticated       = errors.New("not authenticated")
	ErrNotFound              = errors.New("not found")
)

// Code maps a taxonomy error to the error-code string and HTTP status used
// in the response envelope. Unknown errors map to INTERNAL_ERROR/500.
func Code(err error) (string, int) {
	switch {
	case errors.Is(err, ErrInvalidURL):
		return "INVALID_URL", http.StatusBadRequest
	case errors.Is(err, ErrMetadataUnavailable):
		return "METADATA_UNAVAILABLE", http.StatusBadGateway
	case errors.Is(err, ErrTranscriptUnavailable):
		return "TRANSCRIPT_UNAVAILABLE", http.StatusNotFound
	case errors.Is(err, ErrGenerationStart):
		return "GENERATION_START_ERROR", http.StatusBadGateway
	case errors.Is(err, ErrGenerationFailed):
		return "GENERATION_FAILED", http.StatusBadGateway
	case errors.Is(err, ErrGrading):
		return "GRADING_ERROR", http.StatusBadGateway
	case errors.Is(err, ErrPersistence):
		return "PERSISTENCE_ERROR", http.StatusInternalServerError
	case errors.Is(err, ErrUnauthenticated):
		return "UNAUTHORIZED", http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND", http.StatusNotFound
	}
	return "INTERNAL_ERROR", http.StatusInternalServerError
}
