package models

const (
	QuizModeNob    = "nob"    // multiple choice
	QuizModeLegend = "legend" // essay, AI-graded

	DefaultQuestionCount = 10
	OptionCount          = 4
	DefaultEssayCount    = 5
)

type GenerationRequest struct {
	Transcript        string `json:"transcript"`
	NumberOfQuestions int    `json:"numberOfQuestions"`
	Difficulty        string `json:"difficulty"`        // easy | medium | hard
	LearningObjective string `json:"learningObjective"` // remember | understand | apply | analyze | evaluate | create
	QuizMode          string `json:"quizMode"`          // nob | legend
}

func ValidDifficulty(d string) bool {
	return d == "easy" || d == "medium" || d == "hard"
}

func ValidLearningObjective(o string) bool {
	switch o {
	case "remember", "understand", "apply", "analyze", "evaluate", "create":
		return true
	}
	return false
}

func ValidQuizMode(m string) bool {
	return m == QuizModeNob || m == QuizModeLegend
}

type QuizQuestion struct {
	ID           int      `json:"id"`
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct"`
}

type EssayQuestion struct {
	ID               int      `json:"id"`
	Question         string   `json:"question"`
	ReferenceContext string   `json:"referenceContext"`
	KeyPoints        []string `json:"keyPoints"` // 3-5 expected-content strings
}

// EssayGrade is the grader's verdict for one free-text answer.
type EssayGrade struct {
	Score    int    `json:"score"` // 0-100
	Feedback string `json:"feedback"`
	Analysis string `json:"analysis"`
}
