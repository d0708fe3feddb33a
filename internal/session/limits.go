package session

import "time"

// Limits bounds a session's size and pacing.
type Limits struct {
	// ProblemCount is the number of problems built for each session.
	ProblemCount int

	// MaxAttempts is the number of wrong answers allowed per problem.
	// The MaxAttempts-th wrong answer fails the session.
	MaxAttempts int

	// MaxGenerationRetries bounds how many generated problems may be
	// rejected (duplicates or validator failures) while building a batch.
	MaxGenerationRetries int

	// TimeLimit is the per-problem countdown.
	TimeLimit time.Duration

	// TickInterval is the countdown granularity.
	TickInterval time.Duration

	// CorrectDelay is how long a correct answer is shown before advancing.
	CorrectDelay time.Duration

	// RetryDelay is how long the "try again" feedback stays up.
	RetryDelay time.Duration

	// FailureDelay is how long a failure is shown before OnFinish fires.
	FailureDelay time.Duration
}

// DefaultLimits returns the standard quiz limits.
func DefaultLimits() Limits {
	return Limits{
		ProblemCount:         30,
		MaxAttempts:          5,
		MaxGenerationRetries: 100,
		TimeLimit:            8 * time.Second,
		TickInterval:         time.Second,
		CorrectDelay:         time.Second,
		RetryDelay:           time.Second,
		FailureDelay:         1500 * time.Millisecond,
	}
}

// normalized fills zero or negative fields from DefaultLimits. Delays may
// be zero.
func (l Limits) normalized() Limits {
	d := DefaultLimits()
	if l.ProblemCount <= 0 {
		l.ProblemCount = d.ProblemCount
	}
	if l.MaxAttempts <= 0 {
		l.MaxAttempts = d.MaxAttempts
	}
	if l.MaxGenerationRetries <= 0 {
		l.MaxGenerationRetries = d.MaxGenerationRetries
	}
	if l.TimeLimit <= 0 {
		l.TimeLimit = d.TimeLimit
	}
	if l.TickInterval <= 0 || l.TickInterval > l.TimeLimit {
		l.TickInterval = min(d.TickInterval, l.TimeLimit)
	}
	l.CorrectDelay = max(l.CorrectDelay, 0)
	l.RetryDelay = max(l.RetryDelay, 0)
	l.FailureDelay = max(l.FailureDelay, 0)
	return l
}
