package problemgen

import (
	"fmt"
	"slices"
	"unicode/utf8"
)

// maxQuestionLen bounds the question text in runes.
const maxQuestionLen = 64

// StructuralValidator checks that required fields are present, within
// length limits, and have valid enum values.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(p *Problem) *ValidationError {
	if p.ID < 1 {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("id must be positive, got %d", p.ID),
		}
	}
	if p.Question == "" {
		return &ValidationError{
			Validator: v.Name(),
			Message:   "question is empty",
			Retryable: true,
		}
	}
	if utf8.RuneCountInString(p.Question) > maxQuestionLen {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("question exceeds %d characters", maxQuestionLen),
			Retryable: true,
		}
	}
	if p.Answer == "" {
		return &ValidationError{
			Validator: v.Name(),
			Message:   "answer is empty",
			Retryable: true,
		}
	}
	if !slices.Contains(AllCategories, p.Category) {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("category %q is not a concrete category", p.Category),
		}
	}
	if p.AnswerType != p.Category.AnswerType() {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("answer_type %q does not match category %q", p.AnswerType, p.Category),
		}
	}
	return nil
}
