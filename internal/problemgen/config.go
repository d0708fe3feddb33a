package problemgen

// Config controls the behavior of the Generator.
type Config struct {
	// Validators is the ordered list of validators run on every
	// generated problem. The first failure stops the pipeline.
	Validators []Validator

	// ScaledMultiplication makes 곱셈 and 나눗셈 factors follow the level's
	// operand shapes. When false, factors are single-digit facts at
	// every level.
	ScaledMultiplication bool
}

// DefaultConfig returns a Config with the standard validator chain.
func DefaultConfig() Config {
	return Config{
		Validators: []Validator{
			&StructuralValidator{},
			&AnswerFormatValidator{},
			&MathCheckValidator{},
		},
	}
}
