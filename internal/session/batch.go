package session

import (
	"errors"
	"fmt"

	"github.com/abhisek/elmath/internal/problemgen"
)

// ProblemSource produces the problem at a session position.
// *problemgen.Generator implements it.
type ProblemSource interface {
	Generate(grade problemgen.Grade, types []problemgen.Category, level problemgen.Level, position int) (problemgen.Problem, error)
}

// Batch is the problem set of one session.
type Batch struct {
	Problems []problemgen.Problem

	// Rejected counts generated problems that were discarded as duplicates
	// or failed validation.
	Rejected int

	// Exhausted is true when the retry budget ran out before the batch was
	// full. The batch is then shorter than requested but still distinct.
	Exhausted bool
}

// BuildBatch generates up to count problems, distinct by Problem.Key.
// Duplicates and validator rejections are retried; the build stops once
// maxRetries rejections have accumulated, so Generate is called at most
// count+maxRetries times. Any other generator error aborts the build.
func BuildBatch(src ProblemSource, s Settings, count, maxRetries int) (Batch, error) {
	var b Batch
	seen := make(map[string]bool, count)
	for len(b.Problems) < count {
		p, err := src.Generate(s.Grade, s.Types, s.Level, len(b.Problems))
		if err != nil {
			var verr *problemgen.ValidationError
			if !errors.As(err, &verr) {
				return b, fmt.Errorf("generate problem %d: %w", len(b.Problems)+1, err)
			}
		} else if !seen[p.Key()] {
			seen[p.Key()] = true
			b.Problems = append(b.Problems, p)
			continue
		}

		b.Rejected++
		if b.Rejected >= maxRetries {
			b.Exhausted = true
			break
		}
	}
	return b, nil
}
