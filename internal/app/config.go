package app

import (
	"os"
	"strconv"
	"time"

	"github.com/abhisek/elmath/internal/identity"
	"github.com/abhisek/elmath/internal/session"
)

// Config holds the tunable parts of the application.
type Config struct {
	Limits   session.Limits
	Identity identity.Config

	// ScaledMultiplication makes 곱셈/나눗셈 factors grow with the level.
	ScaledMultiplication bool
}

// DefaultConfig returns the standard quiz configuration.
func DefaultConfig() Config {
	return Config{
		Limits:   session.DefaultLimits(),
		Identity: identity.DefaultConfig(),
	}
}

// ConfigFromEnv returns DefaultConfig overridden by ELMATH_* environment
// variables. Malformed or out-of-range values are ignored.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if n, ok := positiveInt("ELMATH_PROBLEM_COUNT"); ok {
		cfg.Limits.ProblemCount = n
	}
	if n, ok := positiveInt("ELMATH_MAX_ATTEMPTS"); ok {
		cfg.Limits.MaxAttempts = n
	}
	if v := os.Getenv("ELMATH_TIME_LIMIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Limits.TimeLimit = d
		}
	}
	if v := os.Getenv("ELMATH_SCALED_MULTIPLICATION"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ScaledMultiplication = b
		}
	}

	return cfg
}

func positiveInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
