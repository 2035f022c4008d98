package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"utes-backend/internal/apperr"
	"utes-backend/internal/models"
)

type GeminiService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	rateChan chan struct{} // Token bucket
}

func NewGeminiService(apiKey string, concurrentReqs int) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-3-flash-preview")
	model.SetTemperature(0.3)
	model.SetTopP(0.95)

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:   client,
		model:    model,
		rateChan: rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// maxChunkWords bounds the transcript slice sent per generation call.
const maxChunkWords = 3000

// GenerateQuestions produces the question set for a generation request.
// The transcript is chunked when long; the question budget is spread across
// chunks and the merged set is validated per mode.
func (s *GeminiService) GenerateQuestions(ctx context.Context, req *models.GenerationRequest) (json.RawMessage, int, error) {
	if err := s.acquireRate(ctx); err != nil {
		return nil, 0, err
	}
	defer s.releaseRate()

	chunks := chunkTranscript(req.Transcript, maxChunkWords)
	perChunk := distributeQuestions(req.NumberOfQuestions, len(chunks))

	if req.QuizMode == models.QuizModeLegend {
		var all []models.EssayQuestion
		for i, chunk := range chunks {
			if perChunk[i] == 0 {
				continue
			}
			questions, err := s.generateEssayChunk(ctx, req, chunk, perChunk[i])
			if err != nil {
				return nil, 0, err
			}
			all = append(all, questions...)
		}
		all = validateEssayQuestions(all)
		if len(all) == 0 {
			return nil, 0, fmt.Errorf("%w: model returned no usable essay questions", apperr.ErrGenerationFailed)
		}
		out, _ := json.Marshal(all)
		return out, len(chunks), nil
	}

	var all []models.QuizQuestion
	for i, chunk := range chunks {
		if perChunk[i] == 0 {
			continue
		}
		questions, err := s.generateQuizChunk(ctx, req, chunk, perChunk[i])
		if err != nil {
			return nil, 0, err
		}
		all = append(all, questions...)
	}
	all = validateQuizQuestions(all)
	if len(all) == 0 {
		return nil, 0, fmt.Errorf("%w: model returned no usable questions", apperr.ErrGenerationFailed)
	}
	out, _ := json.Marshal(all)
	return out, len(chunks), nil
}

func (s *GeminiService) generateQuizChunk(ctx context.Context, req *models.GenerationRequest, chunk string, count int) ([]models.QuizQuestion, error) {
	prompt := buildQuizPrompt(req, chunk, count)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	rawText := stripCodeFence(extractText(resp))

	var questions []models.QuizQuestion
	if err := json.Unmarshal([]byte(rawText), &questions); err != nil {
		// Try to extract the JSON array
		start := strings.Index(rawText, "[")
		end := strings.LastIndex(rawText, "]")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("%w: response is not a JSON array", apperr.ErrGenerationFailed)
		}
		if err := json.Unmarshal([]byte(rawText[start:end+1]), &questions); err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrGenerationFailed, err)
		}
	}
	return questions, nil
}

func (s *GeminiService) generateEssayChunk(ctx context.Context, req *models.GenerationRequest, chunk string, count int) ([]models.EssayQuestion, error) {
	prompt := buildEssayPrompt(req, chunk, count)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	rawText := stripCodeFence(extractText(resp))

	var questions []models.EssayQuestion
	if err := json.Unmarshal([]byte(rawText), &questions); err != nil {
		start := strings.Index(rawText, "[")
		end := strings.LastIndex(rawText, "]")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("%w: response is not a JSON array", apperr.ErrGenerationFailed)
		}
		if err := json.Unmarshal([]byte(rawText[start:end+1]), &questions); err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrGenerationFailed, err)
		}
	}
	return questions, nil
}

// GradeEssay scores one free-text answer against its reference context and
// key points. Single attempt: any transport failure or unparsable response
// fails with ErrGrading and the caller lets the user retry manually.
func (s *GeminiService) GradeEssay(ctx context.Context, question, referenceContext string, keyPoints []string, answer string) (*models.EssayGrade, error) {
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	prompt := buildGradingPrompt(question, referenceContext, keyPoints, answer)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrGrading, err)
	}

	return parseGradeResponse(extractText(resp))
}

func parseGradeResponse(raw string) (*models.EssayGrade, error) {
	cleaned := stripCodeFence(raw)

	var parsed struct {
		Score    *float64 `json:"score"`
		Feedback string   `json:"feedback"`
		Analysis string   `json:"analysis"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("%w: unparsable response: %v", apperr.ErrGrading, err)
	}
	if parsed.Score == nil {
		return nil, fmt.Errorf("%w: response missing numeric score", apperr.ErrGrading)
	}

	// Never trust the model to stay in range.
	score := int(math.Round(*parsed.Score))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return &models.EssayGrade{
		Score:    score,
		Feedback: parsed.Feedback,
		Analysis: parsed.Analysis,
	}, nil
}

// Helper functions

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

// stripCodeFence removes an optional ```json fence around a model response.
func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}

func chunkTranscript(transcript string, chunkWords int) []string {
	words := strings.Fields(transcript)
	if len(words) <= chunkWords {
		return []string{transcript}
	}

	var chunks []string
	for start := 0; start < len(words); start += chunkWords {
		end := start + chunkWords
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}

// distributeQuestions spreads a question budget across chunks, front-loading
// the remainder so early chunks carry at most one extra question.
func distributeQuestions(total, chunks int) []int {
	out := make([]int, chunks)
	if chunks == 0 {
		return out
	}
	base := total / chunks
	rem := total % chunks
	for i := range out {
		out[i] = base
		if i < rem {
			out[i]++
		}
	}
	return out
}

func objectiveInstruction(objective string) string {
	switch objective {
	case "remember":
		return "Target recall of facts and definitions stated in the material."
	case "understand":
		return "Target comprehension: paraphrasing, classifying, and explaining ideas."
	case "apply":
		return "Target application of the material's concepts to new situations."
	case "analyze":
		return "Target analysis: relationships between ideas, causes, and structure."
	case "evaluate":
		return "Target evaluation: judging claims and justifying positions."
	case "create":
		return "Target synthesis: combining ideas into something new."
	}
	return ""
}

func difficultyInstruction(difficulty string) string {
	switch difficulty {
	case "easy":
		return "Easy = direct recall from text."
	case "medium":
		return "Medium = application of concepts."
	case "hard":
		return "Hard = analysis, synthesis, or inference beyond what is explicitly stated."
	}
	return ""
}

func buildQuizPrompt(req *models.GenerationRequest, chunk string, count int) string {
	var b strings.Builder

	b.WriteString("You are an expert educational assessor. Generate multiple-choice questions from the video transcript below.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON array. No preamble, no markdown, no backticks.\n\n")
	b.WriteString(fmt.Sprintf("Generate exactly %d questions.\n", count))
	b.WriteString(fmt.Sprintf("Difficulty: %s\n", req.Difficulty))
	if line := difficultyInstruction(req.Difficulty); line != "" {
		b.WriteString(line + "\n")
	}
	if line := objectiveInstruction(req.LearningObjective); line != "" {
		b.WriteString(line + "\n")
	}

	b.WriteString(`
JSON schema per question:
{"question": "string", "options": ["string", "string", "string", "string"], "correct": int}

Exactly 4 options per question. "correct" is the 0-based index of the right option.
Questions must test understanding of the transcript, not generic knowledge.
`)

	b.WriteString("\n---TRANSCRIPT---\n")
	b.WriteString(chunk)
	b.WriteString("\n---END---\n")

	return b.String()
}

func buildEssayPrompt(req *models.GenerationRequest, chunk string, count int) string {
	var b strings.Builder

	b.WriteString("You are an expert educational assessor. Generate open-ended essay questions from the video transcript below.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON array. No preamble, no markdown, no backticks.\n\n")
	b.WriteString(fmt.Sprintf("Generate exactly %d questions.\n", count))
	b.WriteString(fmt.Sprintf("Difficulty: %s\n", req.Difficulty))
	if line := difficultyInstruction(req.Difficulty); line != "" {
		b.WriteString(line + "\n")
	}
	if line := objectiveInstruction(req.LearningObjective); line != "" {
		b.WriteString(line + "\n")
	}

	b.WriteString(`
JSON schema per question:
{"question": "string", "referenceContext": "string", "keyPoints": ["string"]}

"referenceContext" is a short passage from the transcript that answers the question.
"keyPoints" lists 3 to 5 short statements a complete answer must cover.
`)

	b.WriteString("\n---TRANSCRIPT---\n")
	b.WriteString(chunk)
	b.WriteString("\n---END---\n")

	return b.String()
}

func buildGradingPrompt(question, referenceContext string, keyPoints []string, answer string) string {
	var b strings.Builder

	b.WriteString("You are an expert educational grader. Grade the student's essay answer below.\n\n")
	b.WriteString("Rubric:\n")
	b.WriteString("- Completeness: coverage of the key points.\n")
	b.WriteString("- Accuracy: consistency with the reference context.\n")
	b.WriteString("- Depth: quality of explanation, not just keywords.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON object. No preamble, no markdown, no backticks.\n\n")
	b.WriteString(`JSON schema:
{"score": int, "feedback": "string", "analysis": "string"}

"score" is an integer from 0 to 100. "feedback" is 2-3 encouraging sentences for the student. "analysis" explains which key points were covered or missed.
`)

	b.WriteString("\n---QUESTION---\n")
	b.WriteString(question)
	b.WriteString("\n---REFERENCE CONTEXT---\n")
	b.WriteString(referenceContext)
	b.WriteString("\n---KEY POINTS---\n")
	for _, kp := range keyPoints {
		b.WriteString("- " + kp + "\n")
	}
	b.WriteString("---STUDENT ANSWER---\n")
	b.WriteString(answer)
	b.WriteString("\n---END---\n")

	return b.String()
}

func validateQuizQuestions(questions []models.QuizQuestion) []models.QuizQuestion {
	var valid []models.QuizQuestion
	for _, q := range questions {
		if q.Question == "" || len(q.Options) != models.OptionCount {
			log.Printf("[Gemini] dropping malformed quiz question: %q", q.Question)
			continue
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			q.CorrectIndex = 0
		}
		q.ID = len(valid) + 1
		valid = append(valid, q)
	}
	return valid
}

func validateEssayQuestions(questions []models.EssayQuestion) []models.EssayQuestion {
	var valid []models.EssayQuestion
	for _, q := range questions {
		if q.Question == "" || q.ReferenceContext == "" || len(q.KeyPoints) < 3 {
			log.Printf("[Gemini] dropping malformed essay question: %q", q.Question)
			continue
		}
		if len(q.KeyPoints) > 5 {
			q.KeyPoints = q.KeyPoints[:5]
		}
		q.ID = len(valid) + 1
		valid = append(valid, q)
	}
	return valid
}
