package problemgen

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	fractionPattern = regexp.MustCompile(`^-?\d+/\d+$`)
	decimalPattern  = regexp.MustCompile(`^-?\d+\.\d$`)
)

// AnswerFormatValidator checks that the answer string matches the declared
// answer type (integer, decimal, fraction) in canonical form.
type AnswerFormatValidator struct{}

func (v *AnswerFormatValidator) Name() string { return "answer-format" }

func (v *AnswerFormatValidator) Validate(p *Problem) *ValidationError {
	var err error
	switch p.AnswerType {
	case AnswerTypeInteger:
		err = validateInteger(p.Answer)
	case AnswerTypeDecimal:
		err = validateDecimal(p.Answer)
	case AnswerTypeFraction:
		err = validateFraction(p.Answer)
	default:
		err = fmt.Errorf("unknown answer type")
	}
	if err != nil {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("invalid %s answer %q: %s", p.AnswerType, p.Answer, err),
			Retryable: true,
		}
	}
	return nil
}

// validateInteger checks that s is a valid integer string with no leading zeros.
func validateInteger(s string) error {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("not a valid integer")
	}
	if strconv.FormatInt(n, 10) != s {
		return fmt.Errorf("has leading zeros")
	}
	return nil
}

// validateDecimal checks that s has exactly one digit after the point.
func validateDecimal(s string) error {
	if !decimalPattern.MatchString(s) {
		return fmt.Errorf("must have exactly one decimal place")
	}
	return nil
}

// validateFraction checks that s is a/b in lowest terms with a positive
// denominator. Whole results are written as plain integers.
func validateFraction(s string) error {
	if !fractionPattern.MatchString(s) {
		return validateInteger(s)
	}
	num, den, err := parseFraction(s)
	if err != nil {
		return err
	}
	if den <= 0 {
		return fmt.Errorf("denominator must be positive")
	}
	if den == 1 {
		return fmt.Errorf("whole number written as a fraction")
	}
	if gcd(abs(num), den) != 1 {
		return fmt.Errorf("fraction is not in lowest terms")
	}
	return nil
}
