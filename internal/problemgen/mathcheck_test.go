package problemgen

import "testing"

func TestMathCheck(t *testing.T) {
	tests := []struct {
		name     string
		question string
		answer   string
		typ      AnswerType
		wantErr  bool
	}{
		{"addition", "345 + 278 = ?", "623", AnswerTypeInteger, false},
		{"addition wrong", "345 + 278 = ?", "612", AnswerTypeInteger, true},
		{"subtraction", "567 - 289 = ?", "278", AnswerTypeInteger, false},
		{"subtraction wrong", "567 - 289 = ?", "288", AnswerTypeInteger, true},
		{"multiplication", "23 × 45 = ?", "1035", AnswerTypeInteger, false},
		{"multiplication wrong", "23 × 45 = ?", "1025", AnswerTypeInteger, true},
		{"division", "144 ÷ 12 = ?", "12", AnswerTypeInteger, false},
		{"division wrong", "144 ÷ 12 = ?", "11", AnswerTypeInteger, true},
		{"non-integer quotient passes through", "7 ÷ 2 = ?", "3", AnswerTypeInteger, false},
		{"square", "17² = ?", "289", AnswerTypeInteger, false},
		{"square wrong", "17² = ?", "287", AnswerTypeInteger, true},
		{"decimal", "0.1 + 0.2 = ?", "0.3", AnswerTypeDecimal, false},
		{"decimal carry", "99.9 + 9.9 = ?", "109.8", AnswerTypeDecimal, false},
		{"decimal wrong", "4.5 + 0.3 = ?", "4.9", AnswerTypeDecimal, true},
		{"fraction sum", "1/3 + 1/4 = ?", "7/12", AnswerTypeFraction, false},
		{"fraction whole", "1/2 + 1/2 = ?", "1", AnswerTypeFraction, false},
		{"fraction product", "1/3 × 1/4 = ?", "1/12", AnswerTypeFraction, false},
		{"fraction wrong", "1/3 × 1/4 = ?", "1/7", AnswerTypeFraction, true},
		{"ratio passes through", "3 : 4 = ? : 12", "9", AnswerTypeInteger, false},
	}

	v := &MathCheckValidator{}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := validProblem()
			p.Question = tc.question
			p.Answer = tc.answer
			p.AnswerType = tc.typ
			err := v.Validate(p)
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestComputeAnswer_NotComputable(t *testing.T) {
	for _, text := range []string{"3 : 4 = ? : 12", "", "무엇일까요?"} {
		if _, err := computeAnswer(text, AnswerTypeInteger); err == nil {
			t.Errorf("computeAnswer(%q) expected error", text)
		}
	}
}
