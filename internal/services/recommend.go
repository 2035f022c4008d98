package services

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"utes-backend/internal/models"
)

// Recommendation bounds match the configuration range the UI exposes.
const (
	recommendMin = 3
	recommendMax = 20

	// Average speaking pace used to estimate video length from word count.
	wordsPerMinute = 150
)

// conceptMarkers are discourse cues that introduce definitions or concepts.
var conceptMarkers = regexp.MustCompile(`(?i)\b(is defined as|means|refers to|is called|known as|concept of|in other words|that is,)\b`)

// exampleMarkers flag worked examples and illustrations in the transcript.
var exampleMarkers = regexp.MustCompile(`(?i)\b(for example|for instance|such as|let's say|imagine|consider|e\.g\.)\b`)

type RecommendService struct{}

func NewRecommendService() *RecommendService {
	return &RecommendService{}
}

// Recommend runs the full transcript analysis: word count, estimated
// duration, concept density and example count feed a per-difficulty
// questions-per-words ratio.
func (s *RecommendService) Recommend(transcript, difficulty string) *models.RecommendationResult {
	words := len(strings.Fields(transcript))
	concepts := len(conceptMarkers.FindAllString(transcript, -1))
	examples := len(exampleMarkers.FindAllString(transcript, -1))
	durationMin := float64(words) / wordsPerMinute

	density := "low"
	perThousand := 0.0
	if words > 0 {
		perThousand = float64(concepts) / float64(words) * 1000
	}
	switch {
	case perThousand >= 3:
		density = "high"
	case perThousand >= 1:
		density = "medium"
	}

	richness := math.Min(1, (float64(concepts)+float64(examples)*0.5)/10)

	recommended := baseRecommendation(words, difficulty)
	// Dense material supports more questions; thin material fewer.
	switch density {
	case "high":
		recommended += 2
	case "low":
		recommended -= 1
	}
	recommended = clampRecommendation(recommended)

	reasoning := fmt.Sprintf(
		"The transcript has %d words (~%.0f minutes of speech) with %s concept density (%d key concepts, %d examples). %d questions should cover the material without repetition.",
		words, durationMin, density, concepts, examples, recommended,
	)

	return &models.RecommendationResult{
		Recommended: recommended,
		Min:         recommendMin,
		Max:         recommendMax,
		Reasoning:   reasoning,
		Metrics: models.RecommendationMetrics{
			TranscriptLength:         len(transcript),
			WordCount:                words,
			EstimatedDurationMinutes: math.Round(durationMin*10) / 10,
			ConceptDensity:           density,
			ContentRichness:          math.Round(richness*100) / 100,
			KeyConceptsFound:         concepts,
			ExamplesFound:            examples,
			EstimationMethod:         "full",
		},
	}
}

// QuickRecommend estimates from word count alone.
func (s *RecommendService) QuickRecommend(wordCount int, difficulty string) *models.RecommendationResult {
	recommended := clampRecommendation(baseRecommendation(wordCount, difficulty))

	reasoning := fmt.Sprintf(
		"Quick estimate from %d words at %s difficulty: %d questions.",
		wordCount, difficulty, recommended,
	)

	return &models.RecommendationResult{
		Recommended: recommended,
		Min:         recommendMin,
		Max:         recommendMax,
		Reasoning:   reasoning,
		Metrics: models.RecommendationMetrics{
			WordCount:        wordCount,
			EstimationMethod: "quick",
		},
	}
}

// baseRecommendation converts a word count into a question count. Harder
// questions take longer to answer well, so the ratio drops with difficulty.
func baseRecommendation(words int, difficulty string) int {
	wordsPerQuestion := 300
	switch difficulty {
	case "easy":
		wordsPerQuestion = 250
	case "hard":
		wordsPerQuestion = 400
	}
	return int(math.Round(float64(words) / float64(wordsPerQuestion)))
}

func clampRecommendation(n int) int {
	if n < recommendMin {
		return recommendMin
	}
	if n > recommendMax {
		return recommendMax
	}
	return n
}
