package problemgen

import (
	"strings"
	"testing"
)

func validProblem() *Problem {
	return &Problem{
		ID:         1,
		Category:   CategoryAddition,
		Question:   "345 + 278 = ?",
		Answer:     "623",
		AnswerType: AnswerTypeInteger,
		Operands:   BinaryOperands{Left: 345, Right: 278, Op: OpAdd},
	}
}

func TestStructural_ValidProblem(t *testing.T) {
	v := &StructuralValidator{}
	if err := v.Validate(validProblem()); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestStructural_Failures(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(p *Problem)
		retryable bool
	}{
		{"empty question", func(p *Problem) { p.Question = "" }, true},
		{"long question", func(p *Problem) { p.Question = strings.Repeat("1", maxQuestionLen+1) }, true},
		{"empty answer", func(p *Problem) { p.Answer = "" }, true},
		{"zero id", func(p *Problem) { p.ID = 0 }, false},
		{"random category", func(p *Problem) { p.Category = CategoryRandom }, false},
		{"unknown category", func(p *Problem) { p.Category = "적분" }, false},
		{"answer type mismatch", func(p *Problem) { p.AnswerType = AnswerTypeFraction }, false},
	}

	v := &StructuralValidator{}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := validProblem()
			tc.mutate(p)
			err := v.Validate(p)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if err.Validator != "structural" {
				t.Errorf("validator = %q, want structural", err.Validator)
			}
			if err.Retryable != tc.retryable {
				t.Errorf("retryable = %v, want %v", err.Retryable, tc.retryable)
			}
		})
	}
}

func TestStructural_CountsRunes(t *testing.T) {
	p := validProblem()
	// Multi-byte operators must not count as several characters.
	p.Question = strings.Repeat("×", maxQuestionLen)
	if err := (&StructuralValidator{}).Validate(p); err != nil {
		t.Errorf("expected %d runes to pass, got %v", maxQuestionLen, err)
	}
}
