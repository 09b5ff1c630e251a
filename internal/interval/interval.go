// Package interval computes elapsed time over sets of possibly overlapping,
// possibly still-running time intervals. It backs both the per-task timer
// and the per-day work session totals.
package interval

import (
	"sort"
	"time"
)

// Interval is a single tracked span. A nil End means the span is still
// running and resolves against the reference clock when eligible.
type Interval struct {
	Start time.Time
	End   *time.Time
}

// Elapsed returns the total non-overlapping duration covered by intervals.
//
// An interval with a nil End is resolved to now when openEligible is true
// (the caller determined the interval's day is the current day); otherwise
// it is discarded entirely. A past session that was never closed contributes
// zero rather than an unbounded duration.
//
// The input slice is never mutated and its order does not matter.
func Elapsed(intervals []Interval, now time.Time, openEligible bool) time.Duration {
	resolved := make([]span, 0, len(intervals))
	for _, iv := range intervals {
		end := iv.End
		if end == nil {
			if !openEligible {
				continue
			}
			end = &now
		}
		if !end.After(iv.Start) {
			continue
		}
		resolved = append(resolved, span{start: iv.Start, end: *end})
	}
	if len(resolved) == 0 {
		return 0
	}

	sort.Slice(resolved, func(i, j int) bool {
		return resolved[i].start.Before(resolved[j].start)
	})

	// Sweep-merge overlapping and adjacent spans into coalesced runs.
	total := time.Duration(0)
	runStart := resolved[0].start
	runEnd := resolved[0].end
	for _, sp := range resolved[1:] {
		if !sp.start.After(runEnd) {
			if sp.end.After(runEnd) {
				runEnd = sp.end
			}
			continue
		}
		total += runEnd.Sub(runStart)
		runStart = sp.start
		runEnd = sp.end
	}
	total += runEnd.Sub(runStart)
	return total
}

type span struct {
	start time.Time
	end   time.Time
}

// SameDay reports whether a and b fall on the same calendar day in b's
// location. Used to decide open-interval eligibility.
func SameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
