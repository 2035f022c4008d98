package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// QuizSession is the persisted, regenerable question set for one
// (user, video, mode). At most one row exists per triple; regeneration
// updates questions/transcript in place.
type QuizSession struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	VideoID        string          `json:"video_id"`
	VideoTitle     string          `json:"video_title"`
	VideoURL       string          `json:"video_url"`
	VideoThumbnail *string         `json:"video_thumbnail"`
	VideoChannel   *string         `json:"video_channel"`
	VideoDuration  *string         `json:"video_duration"`
	QuizMode       string          `json:"quiz_mode"`
	Questions      json.RawMessage `json:"questions"`
	TranscriptText *string         `json:"transcript_text"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	// LatestResult is attached on listing/detail reads, best-effort.
	LatestResult *QuizResult `json:"latest_result"`
}

// QuizResult is one graded attempt. NOB rows leave the essay columns null;
// LEGEND rows fill them and store string answers.
type QuizResult struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	VideoID        string          `json:"video_id"`
	VideoTitle     string          `json:"video_title"`
	VideoURL       string          `json:"video_url"`
	QuizMode       string          `json:"quiz_mode"`
	Score          int             `json:"score"`
	TotalQuestions int             `json:"total_questions"`
	Questions      json.RawMessage `json:"questions"`
	UserAnswers    json.RawMessage `json:"user_answers"`
	EssayScores    json.RawMessage `json:"essay_scores,omitempty"`
	EssayFeedbacks json.RawMessage `json:"essay_feedbacks,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// VideoCompletionStatus is derived on demand, never stored.
type VideoCompletionStatus struct {
	HasNobQuiz     bool `json:"hasNobQuiz"`
	HasLegendQuiz  bool `json:"hasLegendQuiz"`
	NobScore       *int `json:"nobScore,omitempty"`
	LegendScore    *int `json:"legendScore,omitempty"`
	NobAttempts    int  `json:"nobAttempts"`
	LegendAttempts int  `json:"legendAttempts"`
}

type SaveSessionRequest struct {
	VideoID        string          `json:"video_id"`
	VideoTitle     string          `json:"video_title"`
	VideoURL       string          `json:"video_url"`
	VideoThumbnail *string         `json:"video_thumbnail"`
	VideoChannel   *string         `json:"video_channel"`
	VideoDuration  *string         `json:"video_duration"`
	QuizMode       string          `json:"quiz_mode"`
	Questions      json.RawMessage `json:"questions"`
	TranscriptText *string         `json:"transcript_text"`
}

type SaveResultRequest struct {
	VideoID        string          `json:"video_id"`
	VideoTitle     string          `json:"video_title"`
	VideoURL       string          `json:"video_url"`
	QuizMode       string          `json:"quiz_mode"`
	Score          int             `json:"score"`
	TotalQuestions int             `json:"total_questions"`
	Questions      json.RawMessage `json:"questions"`
	UserAnswers    json.RawMessage `json:"user_answers"`
	EssayScores    json.RawMessage `json:"essay_scores,omitempty"`
	EssayFeedbacks json.RawMessage `json:"essay_feedbacks,omitempty"`
}
