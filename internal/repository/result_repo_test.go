package repository

import (
	"testing"

	"utes-backend/internal/models"
)

func TestBuildCompletionStatus(t *testing.T) {
	t.Run("no attempts yields zero value", func(t *testing.T) {
		status := buildCompletionStatus(nil)
		if status.HasNobQuiz || status.HasLegendQuiz {
			t.Errorf("Expected no completion, got %+v", status)
		}
		if status.NobScore != nil || status.LegendScore != nil {
			t.Errorf("Expected nil scores, got %+v", status)
		}
		if status.NobAttempts != 0 || status.LegendAttempts != 0 {
			t.Errorf("Expected zero attempts, got %+v", status)
		}
	})

	t.Run("single mode", func(t *testing.T) {
		status := buildCompletionStatus([]modeAggregate{
			{QuizMode: models.QuizModeNob, Best: 8, Attempts: 3},
		})
		if !status.HasNobQuiz {
			t.Error("Expected nob quiz flagged")
		}
		if status.NobScore == nil || *status.NobScore != 8 {
			t.Errorf("Expected best score 8, got %v", status.NobScore)
		}
		if status.NobAttempts != 3 {
			t.Errorf("Expected 3 attempts, got %d", status.NobAttempts)
		}
		if status.HasLegendQuiz || status.LegendScore != nil {
			t.Errorf("Legend mode leaked: %+v", status)
		}
	})

	t.Run("both modes", func(t *testing.T) {
		status := buildCompletionStatus([]modeAggregate{
			{QuizMode: models.QuizModeNob, Best: 10, Attempts: 1},
			{QuizMode: models.QuizModeLegend, Best: 74, Attempts: 2},
		})
		if !status.HasNobQuiz || !status.HasLegendQuiz {
			t.Errorf("Expected both modes flagged: %+v", status)
		}
		if *status.LegendScore != 74 || status.LegendAttempts != 2 {
			t.Errorf("Unexpected legend rollup: %+v", status)
		}
	})

	t.Run("unknown mode ignored", func(t *testing.T) {
		status := buildCompletionStatus([]modeAggregate{
			{QuizMode: "archived", Best: 99, Attempts: 4},
		})
		if status.HasNobQuiz || status.HasLegendQuiz {
			t.Errorf("Unknown mode should not register: %+v", status)
		}
	})
}
