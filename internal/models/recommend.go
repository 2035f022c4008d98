package models

// RecommendationMetrics describes the transcript the recommendation was
// derived from. The quick path fills only word count and method.
type RecommendationMetrics struct {
	TranscriptLength         int     `json:"transcript_length,omitempty"`
	WordCount                int     `json:"word_count"`
	EstimatedDurationMinutes float64 `json:"estimated_duration_minutes,omitempty"`
	ConceptDensity           string  `json:"concept_density,omitempty"` // low | medium | high
	ContentRichness          float64 `json:"content_richness,omitempty"`
	KeyConceptsFound         int     `json:"key_concepts_found,omitempty"`
	ExamplesFound            int     `json:"examples_found,omitempty"`
	EstimationMethod         string  `json:"estimation_method,omitempty"` // quick | full
}

type RecommendationResult struct {
	Recommended int                   `json:"recommended"`
	Min         int                   `json:"min"`
	Max         int                   `json:"max"`
	Reasoning   string                `json:"reasoning"`
	Metrics     RecommendationMetrics `json:"metrics"`
}

type RecommendationRequest struct {
	Transcript string `json:"transcript"`
	Difficulty string `json:"difficulty"`
	Quick      bool   `json:"quick"`
}
