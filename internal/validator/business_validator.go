package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/SAP-F-2025/material-question-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateCandidate checks the shape of a single candidate question.
func (bv *BusinessValidator) ValidateCandidate(c *models.CandidateQuestion) ValidationErrors {
	errs := bv.Validate(c)
	if strings.TrimSpace(c.Text) == "" && !hasField(errs, "Text") {
		errs = append(errs, ValidationError{Field: "Text", Message: "is required", Rule: "required"})
	}
	return errs
}

// ValidateCandidateBatch requires exactly want shape-valid candidates.
func (bv *BusinessValidator) ValidateCandidateBatch(candidates []models.CandidateQuestion, want int) ValidationErrors {
	var errs ValidationErrors
	if len(candidates) != want {
		errs = append(errs, ValidationError{
			Field:   "questions",
			Message: fmt.Sprintf("expected %d questions, got %d", want, len(candidates)),
			Value:   len(candidates),
			Rule:    "len",
		})
	}

	for i := range candidates {
		for _, e := range bv.ValidateCandidate(&candidates[i]) {
			e.Field = fmt.Sprintf("questions[%d].%s", i, e.Field)
			errs = append(errs, e)
		}
	}
	return errs
}

// ValidateImportRequest validates a reviewed bank import.
func (bv *BusinessValidator) ValidateImportRequest(req *models.ImportQuestionsRequest) ValidationErrors {
	errs := bv.Validate(req)
	for i, item := range req.Questions {
		if strings.TrimSpace(item.Text) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("Questions[%d].Text", i),
				Message: "must not be blank",
				Rule:    "required",
			})
		}
	}
	return errs
}

func (bv *BusinessValidator) registerBusinessRules() {
	// Exactly the labels A-D, each with non-blank text
	bv.validate.RegisterValidation("option_labels", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.Map || field.Len() != len(models.OptionLabels) {
			return false
		}
		for _, label := range models.OptionLabels {
			value := field.MapIndex(reflect.ValueOf(label))
			if !value.IsValid() || strings.TrimSpace(value.String()) == "" {
				return false
			}
		}
		return true
	})

	// difficulty level validation
	bv.validate.RegisterValidation("difficulty_level", func(fl validator.FieldLevel) bool {
		return models.DifficultyLevel(fl.Field().String()).IsValid()
	})
}

func hasField(errs ValidationErrors, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}
