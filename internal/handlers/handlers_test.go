package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"utes-backend/internal/apperr"
	"utes-backend/internal/models"
	"utes-backend/internal/runstate"
	"utes-backend/internal/services"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Response is not the error envelope: %v (%s)", err, rec.Body.String())
	}
	return body
}

func TestWriteAppError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode string
		expectedHTTP int
	}{
		{"invalid url", apperr.ErrInvalidURL, "INVALID_URL", http.StatusBadRequest},
		{"wrapped transcript", errors.New("x: " + apperr.ErrTranscriptUnavailable.Error()), "INTERNAL_ERROR", http.StatusInternalServerError},
		{"transcript sentinel", apperr.ErrTranscriptUnavailable, "TRANSCRIPT_UNAVAILABLE", http.StatusNotFound},
		{"not found", apperr.ErrNotFound, "NOT_FOUND", http.StatusNotFound},
		{"persistence", apperr.ErrPersistence, "PERSISTENCE_ERROR", http.StatusInternalServerError},
		{"unknown", errors.New("boom"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()

			writeAppError(rec, req, tc.err)

			if rec.Code != tc.expectedHTTP {
				t.Errorf("Expected %d, got %d", tc.expectedHTTP, rec.Code)
			}
			if body := decodeError(t, rec); body.Error.Code != tc.expectedCode {
				t.Errorf("Expected code %q, got %q", tc.expectedCode, body.Error.Code)
			}
		})
	}
}

func TestWriteRunError(t *testing.T) {
	tests := []struct {
		err          error
		expectedHTTP int
		expectedCode string
	}{
		{runstate.ErrAlreadyAnswered, http.StatusConflict, "RUN_STATE"},
		{runstate.ErrRunCompleted, http.StatusConflict, "RUN_STATE"},
		{runstate.ErrInFeedback, http.StatusConflict, "RUN_STATE"},
		{runstate.ErrNotInFeedback, http.StatusConflict, "RUN_STATE"},
		{runstate.ErrWrongMode, http.StatusConflict, "RUN_STATE"},
		{runstate.ErrEmptyAnswer, http.StatusBadRequest, "VALIDATION_ERROR"},
		{runstate.ErrBadOption, http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		rec := httptest.NewRecorder()

		writeRunError(rec, req, tc.err)

		if rec.Code != tc.expectedHTTP {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.expectedHTTP, rec.Code)
		}
		if body := decodeError(t, rec); body.Error.Code != tc.expectedCode {
			t.Errorf("%v: expected code %q, got %q", tc.err, tc.expectedCode, body.Error.Code)
		}
	}
}

func TestGenerate_Validation(t *testing.T) {
	h := NewGenerationHandler(nil, nil, nil)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"bad json", `{`, ""},
		{"empty transcript", `{"transcript":"","difficulty":"easy","learningObjective":"remember","quizMode":"nob"}`, "transcript"},
		{"bad difficulty", `{"transcript":"text","difficulty":"brutal","learningObjective":"remember","quizMode":"nob"}`, "difficulty"},
		{"bad objective", `{"transcript":"text","difficulty":"easy","learningObjective":"memorize","quizMode":"nob"}`, "learningObjective"},
		{"bad mode", `{"transcript":"text","difficulty":"easy","learningObjective":"remember","quizMode":"boss"}`, "quizMode"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			h.Generate(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d", rec.Code)
			}
			body := decodeError(t, rec)
			if body.Error.Code != "VALIDATION_ERROR" {
				t.Errorf("Expected VALIDATION_ERROR, got %q", body.Error.Code)
			}
			if tc.field != "" {
				if _, ok := body.Error.Fields[tc.field]; !ok {
					t.Errorf("Expected field error for %q, got %v", tc.field, body.Error.Fields)
				}
			}
		})
	}
}

func TestRecommendEndpoints(t *testing.T) {
	h := NewRecommendHandler(services.NewRecommendService())

	t.Run("full recommendation", func(t *testing.T) {
		words := strings.Repeat("word ", 3000)
		body, _ := json.Marshal(map[string]string{"transcript": words, "difficulty": "medium"})

		req := httptest.NewRequest(http.MethodPost, "/api/recommend-questions", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		h.Recommend(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp struct {
			Data models.RecommendationResult `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Bad response: %v", err)
		}
		result := resp.Data
		if result.Recommended < result.Min || result.Recommended > result.Max {
			t.Errorf("Recommendation %d outside [%d, %d]", result.Recommended, result.Min, result.Max)
		}
		if result.Metrics.WordCount != 3000 {
			t.Errorf("Expected 3000 words, got %d", result.Metrics.WordCount)
		}
		if result.Metrics.EstimationMethod != "full" {
			t.Errorf("Expected full method, got %q", result.Metrics.EstimationMethod)
		}
	})

	t.Run("quick flag skips full analysis", func(t *testing.T) {
		words := strings.Repeat("word ", 3000)
		body, _ := json.Marshal(map[string]interface{}{"transcript": words, "quick": true})

		req := httptest.NewRequest(http.MethodPost, "/api/recommend-questions", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		h.Recommend(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Data models.RecommendationResult `json:"data"`
		}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.Data.Metrics.EstimationMethod != "quick" {
			t.Errorf("Expected quick method, got %q", resp.Data.Metrics.EstimationMethod)
		}
	})

	t.Run("missing transcript rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/recommend-questions", strings.NewReader(`{"difficulty":"easy"}`))
		rec := httptest.NewRecorder()
		h.Recommend(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("quick estimate", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/recommend-questions/quick?word_count=3000", nil)
		rec := httptest.NewRecorder()
		h.Quick(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		var resp struct {
			Data models.RecommendationResult `json:"data"`
		}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.Data.Recommended != 10 {
			t.Errorf("Expected 10 for 3000 words at default difficulty, got %d", resp.Data.Recommended)
		}
		if resp.Data.Metrics.EstimationMethod != "quick" {
			t.Errorf("Expected quick method, got %q", resp.Data.Metrics.EstimationMethod)
		}
	})

	t.Run("quick rejects non-positive count", func(t *testing.T) {
		for _, q := range []string{"word_count=0", "word_count=-5", "word_count=abc", ""} {
			req := httptest.NewRequest(http.MethodGet, "/api/recommend-questions/quick?"+q, nil)
			rec := httptest.NewRecorder()
			h.Quick(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected 400 for %q, got %d", q, rec.Code)
			}
		}
	})
}

func TestVideoResolve_Validation(t *testing.T) {
	h := NewVideoHandler(nil)

	t.Run("bad body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/resolve", strings.NewReader(`{`))
		rec := httptest.NewRecorder()
		h.Resolve(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("empty url", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/resolve", strings.NewReader(`{"url":""}`))
		rec := httptest.NewRecorder()
		h.Resolve(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})
}

func TestSessionSave_Validation(t *testing.T) {
	h := NewSessionHandler(nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(`{"video_id":"","video_title":"","quiz_mode":"party"}`))
	rec := httptest.NewRecorder()
	h.Save(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	body := decodeError(t, rec)
	for _, field := range []string{"video_id", "video_title", "quiz_mode"} {
		if _, ok := body.Error.Fields[field]; !ok {
			t.Errorf("Expected field error for %q, got %v", field, body.Error.Fields)
		}
	}
}

func TestResultSave_Validation(t *testing.T) {
	h := NewResultHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/results", strings.NewReader(`{"video_id":"abc","quiz_mode":"nob","total_questions":0}`))
	rec := httptest.NewRecorder()
	h.Save(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	body := decodeError(t, rec)
	if _, ok := body.Error.Fields["total_questions"]; !ok {
		t.Errorf("Expected field error for total_questions, got %v", body.Error.Fields)
	}
}
