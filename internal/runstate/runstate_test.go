package runstate

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"utes-backend/internal/models"
)

func quizQuestions(n int) []models.QuizQuestion {
	out := make([]models.QuizQuestion, n)
	for i := range out {
		out[i] = models.QuizQuestion{
			ID:           i + 1,
			Question:     "question",
			Options:      []string{"a", "b", "c", "d"},
			CorrectIndex: 1,
		}
	}
	return out
}

func essayQuestions(n int) []models.EssayQuestion {
	out := make([]models.EssayQuestion, n)
	for i := range out {
		out[i] = models.EssayQuestion{
			ID:               i + 1,
			Question:         "question",
			ReferenceContext: "context",
			KeyPoints:        []string{"a", "b", "c"},
		}
	}
	return out
}

func intPtr(n int) *int { return &n }

func TestSelectOption_LocksFirstChoice(t *testing.T) {
	run := NewQuizRun(uuid.New(), uuid.New(), quizQuestions(3))

	if err := run.SelectOption(1); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if run.Score != 1 {
		t.Errorf("Expected score 1 after correct answer, got %d", run.Score)
	}

	err := run.SelectOption(2)
	if !errors.Is(err, ErrAlreadyAnswered) {
		t.Errorf("Expected ErrAlreadyAnswered, got %v", err)
	}
	if run.Score != 1 {
		t.Errorf("Score changed on locked question: %d", run.Score)
	}
	if *run.SelectedAnswers[0] != 1 {
		t.Errorf("First choice overwritten: %d", *run.SelectedAnswers[0])
	}
}

func TestSelectOption_Validation(t *testing.T) {
	run := NewQuizRun(uuid.New(), uuid.New(), quizQuestions(2))

	if err := run.SelectOption(7); !errors.Is(err, ErrBadOption) {
		t.Errorf("Expected ErrBadOption, got %v", err)
	}
	if err := run.SelectOption(-1); !errors.Is(err, ErrBadOption) {
		t.Errorf("Expected ErrBadOption, got %v", err)
	}

	essay := NewEssayRun(uuid.New(), uuid.New(), essayQuestions(2))
	if err := essay.SelectOption(0); !errors.Is(err, ErrWrongMode) {
		t.Errorf("Expected ErrWrongMode on essay run, got %v", err)
	}
}

func TestAdvance_UnansweredStaysNil(t *testing.T) {
	run := NewQuizRun(uuid.New(), uuid.New(), quizQuestions(2))

	// Skip the first question entirely.
	if err := run.Advance(); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if run.SelectedAnswers[0] != nil {
		t.Errorf("Expected nil recorded for skipped question")
	}
	if run.CurrentIndex != 1 {
		t.Errorf("Expected index 1, got %d", run.CurrentIndex)
	}

	run.SelectOption(1)
	if err := run.Advance(); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if run.Phase != PhaseCompleted {
		t.Errorf("Expected completion at last index, got %s", run.Phase)
	}

	if err := run.Advance(); !errors.Is(err, ErrRunCompleted) {
		t.Errorf("Expected ErrRunCompleted, got %v", err)
	}
	if run.FinalScore() != 1 {
		t.Errorf("Expected final score 1, got %d", run.FinalScore())
	}
}

func TestEssayRun_FeedbackCycle(t *testing.T) {
	run := NewEssayRun(uuid.New(), uuid.New(), essayQuestions(2))

	grade := &models.EssayGrade{Score: 80, Feedback: "Nice work.", Analysis: "Covered a and b."}
	if err := run.SubmitEssay("my answer", grade); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if run.Phase != PhaseFeedback {
		t.Fatalf("Expected feedback phase, got %s", run.Phase)
	}
	if *run.EssayScores[0] != 80 {
		t.Errorf("Expected score 80, got %d", *run.EssayScores[0])
	}
	if run.EssayFeedbacks[0] != "Nice work.\n\nCovered a and b." {
		t.Errorf("Unexpected feedback: %q", run.EssayFeedbacks[0])
	}

	// Double submit while feedback is showing is rejected.
	if err := run.SubmitEssay("again", grade); !errors.Is(err, ErrInFeedback) {
		t.Errorf("Expected ErrInFeedback, got %v", err)
	}

	if err := run.AdvanceFromFeedback(); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if run.Phase != PhaseInProgress || run.CurrentIndex != 1 {
		t.Errorf("Expected in_progress at index 1, got %s at %d", run.Phase, run.CurrentIndex)
	}

	// Advancing without feedback showing is rejected.
	if err := run.AdvanceFromFeedback(); !errors.Is(err, ErrNotInFeedback) {
		t.Errorf("Expected ErrNotInFeedback, got %v", err)
	}

	if err := run.SubmitEssay("", grade); !errors.Is(err, ErrEmptyAnswer) {
		t.Errorf("Expected ErrEmptyAnswer, got %v", err)
	}

	if err := run.SubmitEssay("second answer", &models.EssayGrade{Score: 60}); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if err := run.AdvanceFromFeedback(); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if run.Phase != PhaseCompleted {
		t.Errorf("Expected completion, got %s", run.Phase)
	}
	if run.FinalScore() != 70 {
		t.Errorf("Expected average 70, got %d", run.FinalScore())
	}
}

func TestEssayAverageScore(t *testing.T) {
	tests := []struct {
		name     string
		scores   []*int
		total    int
		expected int
	}{
		{"all graded", []*int{intPtr(80), intPtr(60)}, 2, 70},
		{"ungraded counts as zero", []*int{intPtr(80), nil, intPtr(60)}, 3, 47},
		{"all ungraded", []*int{nil, nil}, 2, 0},
		{"zero questions", nil, 0, 0},
		{"rounds half up", []*int{intPtr(85), intPtr(80)}, 2, 83}, // 82.5 -> 83
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := EssayAverageScore(tc.scores, tc.total); got != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestRetake_ResetsRunNotQuestions(t *testing.T) {
	run := NewQuizRun(uuid.New(), uuid.New(), quizQuestions(2))
	run.SelectOption(1)
	run.Advance()
	run.SelectOption(0)
	run.Advance()

	if run.Phase != PhaseCompleted {
		t.Fatalf("Setup: expected completed run")
	}

	run.Retake()

	if run.Phase != PhaseInProgress || run.CurrentIndex != 0 || run.Score != 0 {
		t.Errorf("Run not reset: phase=%s index=%d score=%d", run.Phase, run.CurrentIndex, run.Score)
	}
	for i, a := range run.SelectedAnswers {
		if a != nil {
			t.Errorf("Answer %d not cleared", i)
		}
	}
	if len(run.QuizQuestions) != 2 {
		t.Errorf("Question set changed on retake: %d", len(run.QuizQuestions))
	}
}

func TestRetake_Essay(t *testing.T) {
	run := NewEssayRun(uuid.New(), uuid.New(), essayQuestions(1))
	run.SubmitEssay("answer", &models.EssayGrade{Score: 50, Feedback: "f", Analysis: "a"})
	run.AdvanceFromFeedback()

	run.Retake()

	if run.EssayScores[0] != nil || run.EssayAnswers[0] != "" || run.EssayFeedbacks[0] != "" {
		t.Errorf("Essay state not cleared: %+v", run)
	}
	if run.Phase != PhaseInProgress {
		t.Errorf("Expected in_progress, got %s", run.Phase)
	}
}
