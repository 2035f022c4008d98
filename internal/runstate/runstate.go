// Package runstate models a user's progression through one quiz or essay
// run as an explicit value object. All mutation goes through named
// transition functions; the HTTP layer never touches fields directly.
package runstate

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"utes-backend/internal/models"
)

type Phase string

const (
	PhaseInProgress Phase = "in_progress"
	PhaseFeedback   Phase = "feedback" // essay only: grade visible, input closed
	PhaseCompleted  Phase = "completed"
)

var (
	ErrRunCompleted    = errors.New("run is already completed")
	ErrAlreadyAnswered = errors.New("question is already answered")
	ErrNotInFeedback   = errors.New("run is not showing feedback")
	ErrInFeedback      = errors.New("run is showing feedback")
	ErrWrongMode       = errors.New("operation does not apply to this quiz mode")
	ErrEmptyAnswer     = errors.New("answer must not be empty")
	ErrBadOption       = errors.New("option index out of range")
)

// Run is the full per-run state for one user working through a session's
// question set. Per-run fields reset on retake; the question set does not.
type Run struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	SessionID uuid.UUID `json:"session_id"`
	QuizMode  string    `json:"quiz_mode"`

	QuizQuestions  []models.QuizQuestion  `json:"quiz_questions,omitempty"`
	EssayQuestions []models.EssayQuestion `json:"essay_questions,omitempty"`

	Phase        Phase `json:"phase"`
	CurrentIndex int   `json:"current_index"`
	Score        int   `json:"score"` // NOB running score

	SelectedAnswers []*int   `json:"selected_answers,omitempty"` // NOB, nil = unanswered
	EssayAnswers    []string `json:"essay_answers,omitempty"`
	EssayScores     []*int   `json:"essay_scores,omitempty"` // nil = ungraded
	EssayFeedbacks  []string `json:"essay_feedbacks,omitempty"`

	StartedAt time.Time `json:"started_at"`
}

func NewQuizRun(userID, sessionID uuid.UUID, questions []models.QuizQuestion) *Run {
	return &Run{
		ID:              uuid.New(),
		UserID:          userID,
		SessionID:       sessionID,
		QuizMode:        models.QuizModeNob,
		QuizQuestions:   questions,
		Phase:           PhaseInProgress,
		SelectedAnswers: make([]*int, len(questions)),
		StartedAt:       time.Now(),
	}
}

func NewEssayRun(userID, sessionID uuid.UUID, questions []models.EssayQuestion) *Run {
	return &Run{
		ID:             uuid.New(),
		UserID:         userID,
		SessionID:      sessionID,
		QuizMode:       models.QuizModeLegend,
		EssayQuestions: questions,
		Phase:          PhaseInProgress,
		EssayAnswers:   make([]string, len(questions)),
		EssayScores:    make([]*int, len(questions)),
		EssayFeedbacks: make([]string, len(questions)),
		StartedAt:      time.Now(),
	}
}

func (r *Run) TotalQuestions() int {
	if r.QuizMode == models.QuizModeLegend {
		return len(r.EssayQuestions)
	}
	return len(r.QuizQuestions)
}

// SelectOption records the user's choice at the current index. The first
// selection locks the question; a correct choice increments the score.
func (r *Run) SelectOption(option int) error {
	if r.QuizMode != models.QuizModeNob {
		return ErrWrongMode
	}
	if r.Phase == PhaseCompleted {
		return ErrRunCompleted
	}
	if r.SelectedAnswers[r.CurrentIndex] != nil {
		return ErrAlreadyAnswered
	}
	q := r.QuizQuestions[r.CurrentIndex]
	if option < 0 || option >= len(q.Options) {
		return ErrBadOption
	}

	choice := option
	r.SelectedAnswers[r.CurrentIndex] = &choice
	if option == q.CorrectIndex {
		r.Score++
	}
	return nil
}

// Advance moves a NOB run to the next question, or completes it at the
// last index. An unanswered question stays recorded as nil.
func (r *Run) Advance() error {
	if r.QuizMode != models.QuizModeNob {
		return ErrWrongMode
	}
	if r.Phase == PhaseCompleted {
		return ErrRunCompleted
	}
	if r.CurrentIndex >= len(r.QuizQuestions)-1 {
		r.Phase = PhaseCompleted
		return nil
	}
	r.CurrentIndex++
	return nil
}

// SubmitEssay records a graded answer for the current essay question and
// enters the feedback phase. The grade comes from a synchronous grader
// call made by the caller; a failed grade never reaches this transition,
// so prior state stays untouched and the user can resubmit.
func (r *Run) SubmitEssay(answer string, grade *models.EssayGrade) error {
	if r.QuizMode != models.QuizModeLegend {
		return ErrWrongMode
	}
	if r.Phase == PhaseCompleted {
		return ErrRunCompleted
	}
	if r.Phase == PhaseFeedback {
		return ErrInFeedback
	}
	if answer == "" {
		return ErrEmptyAnswer
	}

	score := grade.Score
	r.EssayAnswers[r.CurrentIndex] = answer
	r.EssayScores[r.CurrentIndex] = &score
	r.EssayFeedbacks[r.CurrentIndex] = grade.Feedback + "\n\n" + grade.Analysis
	r.Phase = PhaseFeedback
	return nil
}

// AdvanceFromFeedback leaves the feedback phase, moving to the next essay
// question or completing the run at the last index.
func (r *Run) AdvanceFromFeedback() error {
	if r.QuizMode != models.QuizModeLegend {
		return ErrWrongMode
	}
	if r.Phase != PhaseFeedback {
		return ErrNotInFeedback
	}
	if r.CurrentIndex >= len(r.EssayQuestions)-1 {
		r.Phase = PhaseCompleted
		return nil
	}
	r.CurrentIndex++
	r.Phase = PhaseInProgress
	return nil
}

// Retake resets every per-run field while keeping the question set.
func (r *Run) Retake() {
	r.Phase = PhaseInProgress
	r.CurrentIndex = 0
	r.Score = 0
	if r.QuizMode == models.QuizModeLegend {
		r.EssayAnswers = make([]string, len(r.EssayQuestions))
		r.EssayScores = make([]*int, len(r.EssayQuestions))
		r.EssayFeedbacks = make([]string, len(r.EssayQuestions))
		return
	}
	r.SelectedAnswers = make([]*int, len(r.QuizQuestions))
}

// FinalScore is the score persisted with the run's result: the raw correct
// count for NOB, the rounded average for LEGEND.
func (r *Run) FinalScore() int {
	if r.QuizMode == models.QuizModeLegend {
		return EssayAverageScore(r.EssayScores, len(r.EssayQuestions))
	}
	return r.Score
}

// EssayAverageScore averages per-question scores over the total question
// count. Ungraded entries count as zero and the divisor is always the
// total, not the answered count.
func EssayAverageScore(scores []*int, total int) int {
	if total == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		if s != nil {
			sum += *s
		}
	}
	return int(math.Round(float64(sum) / float64(total)))
}
