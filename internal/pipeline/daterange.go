package pipeline

import (
	"time"
)

// RangePolicy decides how strictly a source's dates are matched against the
// requested window. Lenient sources get a ±BufferDays extension because their
// date metadata is known to lag or go missing; which sources are lenient is
// an explicit table, not inline branching.
type RangePolicy struct {
	Strict     bool `json:"strict"`
	BufferDays int  `json:"buffer_days"`
}

// DefaultRangePolicies builds the per-source strictness table. Literature
// databases carry reliable dates and stay strict; neural and web search
// results get the configured forward/backward buffer so genuinely fresh hits
// with lagging metadata are not discarded.
func DefaultRangePolicies(lenientBufferDays int) map[Source]RangePolicy {
	return map[Source]RangePolicy{
		SourceLiterature: {Strict: true},
		SourceNeural:     {Strict: false, BufferDays: lenientBufferDays},
		SourceWeb:        {Strict: false, BufferDays: lenientBufferDays},
	}
}

// InRange reports whether the date falls inside [start, end] under the given
// policy. All timestamps are normalized to timezone-naive wall-clock values
// before comparing; both boundaries are inclusive, and a zero boundary is
// open on that side.
func InRange(date, start, end time.Time, policy RangePolicy) bool {
	d := stripZone(date)

	buffer := 0
	if !policy.Strict {
		buffer = policy.BufferDays
	}

	if !start.IsZero() {
		s := stripZone(start).AddDate(0, 0, -buffer)
		if d.Before(s) {
			return false
		}
	}
	if !end.IsZero() {
		e := stripZone(end).AddDate(0, 0, buffer)
		if d.After(e) {
			return false
		}
	}
	return true
}

// FilterByDateRange keeps the articles whose resolved date is in range under
// their source's policy. Articles without a resolved date never reach this
// filter; encountering one here is a contract violation upstream, and it is
// dropped defensively rather than passed on undated.
func FilterByDateRange(articles []Article, start, end time.Time, policies map[Source]RangePolicy) ([]Article, int) {
	out := make([]Article, 0, len(articles))
	removed := 0
	for _, a := range articles {
		if a.ResolvedDate == nil {
			removed++
			continue
		}
		policy := policies[a.Source]
		if !InRange(*a.ResolvedDate, start, end, policy) {
			removed++
			continue
		}
		out = append(out, a)
	}
	return out, removed
}
