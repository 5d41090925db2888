package models

type GenerationMode string

const (
	ModeQuestionBank GenerationMode = "question_bank"
	ModeAI           GenerationMode = "ai"
)

type GenerateQuestionsRequest struct {
	Difficulty DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
}

type ImportQuestionsRequest struct {
	Questions []ImportQuestionItem `json:"questions" validate:"required,min=1,max=200,dive"`
}

// ImportQuestionItem is a reviewed bank question; the answer is mandatory here.
type ImportQuestionItem struct {
	Text        string            `json:"text" validate:"required,max=5000"`
	Options     map[string]string `json:"options" validate:"option_labels"`
	Answer      string            `json:"answer" validate:"required,oneof=A B C D"`
	Difficulty  DifficultyLevel   `json:"difficulty" validate:"omitempty,difficulty_level"`
	Explanation *string           `json:"explanation" validate:"omitempty,max=2000"`
}

func (i ImportQuestionItem) Candidate() CandidateQuestion {
	return CandidateQuestion{
		Text:        i.Text,
		Options:     i.Options,
		Answer:      i.Answer,
		Difficulty:  i.Difficulty,
		Explanation: i.Explanation,
	}
}

// GenerationResult is the produced shape of a generation invocation.
// Bank imports with missing answers fill MissingAnswers/ExtractedQuestions
// and leave Questions empty.
type GenerationResult struct {
	Mode               GenerationMode      `json:"mode"`
	MissingAnswers     int                 `json:"missing_answers,omitempty"`
	ExtractedQuestions []CandidateQuestion `json:"extracted_questions,omitempty"`
	Log                *GenerationLog      `json:"log,omitempty"`
	Questions          []Question          `json:"questions"`
	Cached             bool                `json:"cached,omitempty"`
}

type GenerationLogFilters struct {
	Status *GenerationStatus `form:"status" validate:"omitempty,oneof=pending success failed"`
	Limit  int               `form:"limit" validate:"omitempty,min=1,max=100"`
	Offset int               `form:"offset" validate:"omitempty,min=0"`
}

type PaginatedResponse struct {
	Content       interface{} `json:"content"`
	TotalElements int64       `json:"total_elements"`
	Size          int         `json:"size"`
	Offset        int         `json:"offset"`
}
