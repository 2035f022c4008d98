package services

import (
	"strings"
	"testing"
)

func TestBaseRecommendation(t *testing.T) {
	tests := []struct {
		words      int
		difficulty string
		expected   int
	}{
		{3000, "medium", 10},
		{3000, "easy", 12},
		{3000, "hard", 8}, // 7.5 rounds up
		{0, "medium", 0},
		{150, "medium", 1}, // 0.5 rounds up
	}

	for _, tc := range tests {
		if got := baseRecommendation(tc.words, tc.difficulty); got != tc.expected {
			t.Errorf("baseRecommendation(%d, %s): expected %d, got %d", tc.words, tc.difficulty, tc.expected, got)
		}
	}
}

func TestClampRecommendation(t *testing.T) {
	tests := []struct {
		in       int
		expected int
	}{
		{0, 3},
		{3, 3},
		{12, 12},
		{20, 20},
		{50, 20},
	}
	for _, tc := range tests {
		if got := clampRecommendation(tc.in); got != tc.expected {
			t.Errorf("clampRecommendation(%d): expected %d, got %d", tc.in, tc.expected, got)
		}
	}
}

func TestQuickRecommend(t *testing.T) {
	svc := NewRecommendService()

	result := svc.QuickRecommend(3000, "medium")
	if result.Recommended != 10 {
		t.Errorf("Expected 10, got %d", result.Recommended)
	}
	if result.Min != 3 || result.Max != 20 {
		t.Errorf("Unexpected bounds: [%d, %d]", result.Min, result.Max)
	}
	if result.Metrics.EstimationMethod != "quick" {
		t.Errorf("Expected quick method, got %q", result.Metrics.EstimationMethod)
	}
	if result.Metrics.WordCount != 3000 {
		t.Errorf("Expected word count echoed, got %d", result.Metrics.WordCount)
	}

	// Tiny input still recommends the floor.
	result = svc.QuickRecommend(10, "hard")
	if result.Recommended != 3 {
		t.Errorf("Expected floor of 3, got %d", result.Recommended)
	}
}

func TestRecommend_ConceptDensity(t *testing.T) {
	svc := NewRecommendService()

	filler := strings.Repeat("word ", 999)

	t.Run("dense transcript bumps the recommendation", func(t *testing.T) {
		// 1000 words with 4 concept markers: 4 per thousand = high density.
		dense := filler + "recursion is defined as self reference. A stack means a pile. A queue refers to a line. This is called data."
		result := svc.Recommend(dense, "medium")
		if result.Metrics.ConceptDensity != "high" {
			t.Fatalf("Expected high density, got %q", result.Metrics.ConceptDensity)
		}
		if result.Metrics.KeyConceptsFound != 4 {
			t.Errorf("Expected 4 concepts, got %d", result.Metrics.KeyConceptsFound)
		}

		sparse := svc.Recommend(filler+"word", "medium")
		if sparse.Metrics.ConceptDensity != "low" {
			t.Fatalf("Expected low density, got %q", sparse.Metrics.ConceptDensity)
		}
		if result.Recommended <= sparse.Recommended {
			t.Errorf("Expected dense (%d) > sparse (%d)", result.Recommended, sparse.Recommended)
		}
	})

	t.Run("examples counted", func(t *testing.T) {
		text := "Sorting, for example bubble sort, orders data. Consider a deck of cards, such as a shuffled one."
		result := svc.Recommend(text, "easy")
		if result.Metrics.ExamplesFound != 3 {
			t.Errorf("Expected 3 examples, got %d", result.Metrics.ExamplesFound)
		}
	})

	t.Run("reasoning names the recommendation", func(t *testing.T) {
		result := svc.Recommend(filler, "medium")
		if !strings.Contains(result.Reasoning, "999 words") {
			t.Errorf("Reasoning missing word count: %q", result.Reasoning)
		}
		if result.Metrics.EstimationMethod != "full" {
			t.Errorf("Expected full method, got %q", result.Metrics.EstimationMethod)
		}
	})

	t.Run("empty transcript clamps to floor", func(t *testing.T) {
		result := svc.Recommend("", "medium")
		if result.Recommended != 3 {
			t.Errorf("Expected 3, got %d", result.Recommended)
		}
		if result.Metrics.ConceptDensity != "low" {
			t.Errorf("Expected low density, got %q", result.Metrics.ConceptDensity)
		}
	})
}
