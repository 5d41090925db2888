package models

// OptionLabels is the fixed label set of a multiple-choice question.
var OptionLabels = []string{"A", "B", "C", "D"}

// CandidateQuestion is a question that has not been persisted yet. It comes
// either from a parsed question bank or from a generation provider.
type CandidateQuestion struct {
	Text        string            `json:"text" validate:"required"`
	Options     map[string]string `json:"options" validate:"option_labels"`
	Answer      string            `json:"answer,omitempty" validate:"omitempty,oneof=A B C D"`
	Difficulty  DifficultyLevel   `json:"difficulty,omitempty" validate:"omitempty,difficulty_level"`
	Explanation *string           `json:"explanation,omitempty"`
}

// HasAllOptions reports whether every label A..D carries text.
func (c CandidateQuestion) HasAllOptions() bool {
	for _, label := range OptionLabels {
		if c.Options[label] == "" {
			return false
		}
	}
	return true
}

func CandidateTexts(candidates []CandidateQuestion) []string {
	texts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		texts = append(texts, c.Text)
	}
	return texts
}
