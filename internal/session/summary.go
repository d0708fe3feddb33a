package session

import (
	"time"

	"github.com/abhisek/elmath/internal/problemgen"
)

// Summary holds the data displayed on the completion screen.
type Summary struct {
	Duration      time.Duration
	TotalProblems int
	Answered      int
	TotalCorrect  int
	Accuracy      float64
	Success       bool
	Reason        string

	// Missed is the problem that ended a failed session, if any.
	Missed *Outcome

	// ByCategory counts correct answers per category, in first-seen order.
	ByCategory []CategoryResult
}

// CategoryResult tracks per-category performance within a single session.
type CategoryResult struct {
	Category problemgen.Category
	Correct  int
}

// BuildSummary creates a Summary from a finished session.
func BuildSummary(r Result) *Summary {
	s := &Summary{
		Duration:      r.Elapsed,
		TotalProblems: r.Total,
		Answered:      len(r.Outcomes),
		TotalCorrect:  r.Score,
		Success:       r.Success,
		Reason:        r.Reason,
	}
	if r.Total > 0 {
		s.Accuracy = float64(r.Score) / float64(r.Total)
	}

	index := make(map[problemgen.Category]int)
	for i, o := range r.Outcomes {
		if !o.Correct {
			if i == len(r.Outcomes)-1 && !r.Success {
				missed := o
				s.Missed = &missed
			}
			continue
		}
		pos, ok := index[o.Problem.Category]
		if !ok {
			pos = len(s.ByCategory)
			index[o.Problem.Category] = pos
			s.ByCategory = append(s.ByCategory, CategoryResult{Category: o.Problem.Category})
		}
		s.ByCategory[pos].Correct++
	}
	return s
}
