package providers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/material-question-service/internal/models"
	"github.com/SAP-F-2025/material-question-service/internal/validator"
)

// questionPayload is the wire format both adapters ask the model for.
type questionPayload struct {
	Questions []struct {
		Text          string   `json:"text"`
		Options       []string `json:"options"`
		CorrectAnswer string   `json:"correct_answer"`
		Explanation   string   `json:"explanation"`
		Difficulty    string   `json:"difficulty"`
	} `json:"questions"`
}

func decodePayload(raw string) ([]models.CandidateQuestion, error) {
	var payload questionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed payload", ErrProtocolViolation)
	}

	candidates := make([]models.CandidateQuestion, 0, len(payload.Questions))
	for _, q := range payload.Questions {
		c := models.CandidateQuestion{
			Text:       strings.TrimSpace(q.Text),
			Options:    make(map[string]string, len(q.Options)),
			Answer:     strings.ToUpper(strings.TrimSpace(q.CorrectAnswer)),
			Difficulty: models.DifficultyLevel(strings.ToLower(strings.TrimSpace(q.Difficulty))),
		}
		for i, option := range q.Options {
			c.Options[string(rune('A'+i))] = strings.TrimSpace(option)
		}
		if explanation := strings.TrimSpace(q.Explanation); explanation != "" {
			c.Explanation = &explanation
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// checkShape enforces the exact count and per-question shape. Generated
// questions must carry an answer.
func checkShape(bv *validator.BusinessValidator, candidates []models.CandidateQuestion, want int) error {
	errs := bv.ValidateCandidateBatch(candidates, want)
	for i, c := range candidates {
		if c.Answer == "" {
			errs = append(errs, validator.ValidationError{
				Field:   fmt.Sprintf("questions[%d].Answer", i),
				Message: "is required",
				Rule:    "required",
			})
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrProtocolViolation, errs.Error())
	}
	return nil
}

// questionSchema is the JSON schema shared by the OpenAI tool definition.
func questionSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"questions": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"text": map[string]interface{}{
							"type":        "string",
							"description": "The question stem",
						},
						"options": map[string]interface{}{
							"type":        "array",
							"items":       map[string]interface{}{"type": "string"},
							"description": "Exactly 4 options, in order A, B, C, D",
						},
						"correct_answer": map[string]interface{}{
							"type":        "string",
							"enum":        models.OptionLabels,
							"description": "Label of the correct option",
						},
						"explanation": map[string]interface{}{
							"type":        "string",
							"description": "Brief explanation of why the answer is correct",
						},
						"difficulty": map[string]interface{}{
							"type": "string",
							"enum": []string{"easy", "medium", "hard"},
						},
					},
					"required": []string{"text", "options", "correct_answer", "explanation"},
				},
			},
		},
		"required": []string{"questions"},
	}
}
