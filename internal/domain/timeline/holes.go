package timeline

import "time"

// DateRange bounds the dates a backfilled session may legally claim. Both
// bounds are inclusive.
type DateRange struct {
	Min time.Time
	Max time.Time
}

// OpenBelow reports whether the lower bound is the sentinel, meaning no
// completed session precedes the hole and any date up to Max is acceptable.
func (r DateRange) OpenBelow() bool {
	return r.Min.Equal(SentinelMinDate)
}

// Contains reports whether d falls inside the range, inclusive on both ends.
// The minimum check is skipped for sentinel-bounded ranges.
func (r DateRange) Contains(d time.Time) bool {
	if !r.OpenBelow() && d.Before(r.Min) {
		return false
	}
	return !d.After(r.Max)
}

// Hole is a session number with no completed record, bounded by the dates of
// the completed sessions flanking it.
type Hole struct {
	SessionNumber int
	Range         DateRange
}

// HolesResult is the full reconciliation state derived from one timeline.
type HolesResult struct {
	Holes             []Hole
	NextSessionNumber int
	HasHoles          bool
}

// FindHoles scans the timeline for gaps in the completed-session sequence.
//
// Only gaps between two completed sessions, or before the first completed
// session, count as holes. Trailing sessions after the last completed one
// are not holes; they simply have not been reached. Slots marked completed
// without a parseable date are treated as not completed.
//
// POST: Holes are sorted by session number; NextSessionNumber is
// (last completed)+1 or 1 when nothing is completed.
func (t *Timeline) FindHoles() HolesResult {
	type done struct {
		n    int
		date time.Time
	}
	var completed []done
	for i, s := range t.Slots {
		if s.Completed && !s.Date.IsZero() {
			completed = append(completed, done{n: i + 1, date: s.Date})
		}
	}

	if len(completed) == 0 {
		return HolesResult{NextSessionNumber: 1}
	}

	var holes []Hole

	// Gap before the first completed session, anchored below by the sentinel.
	first := completed[0]
	for n := 1; n < first.n; n++ {
		holes = append(holes, Hole{
			SessionNumber: n,
			Range:         DateRange{Min: SentinelMinDate, Max: first.date},
		})
	}

	// Gaps between adjacent completed sessions.
	for i := 1; i < len(completed); i++ {
		prev, next := completed[i-1], completed[i]
		for n := prev.n + 1; n < next.n; n++ {
			holes = append(holes, Hole{
				SessionNumber: n,
				Range:         DateRange{Min: prev.date, Max: next.date},
			})
		}
	}

	last := completed[len(completed)-1]
	return HolesResult{
		Holes:             holes,
		NextSessionNumber: last.n + 1,
		HasHoles:          len(holes) > 0,
	}
}

// HoleFor returns the hole with the given session number from a previously
// computed result, if present.
func (r HolesResult) HoleFor(n int) (Hole, bool) {
	for _, h := range r.Holes {
		if h.SessionNumber == n {
			return h, true
		}
	}
	return Hole{}, false
}

// GateDecision is the outcome of asking whether a live submission may
// proceed for a student right now.
type GateDecision struct {
	Allowed             bool
	BlockingHoles       []Hole
	SessionLimitReached bool
	NextSessionNumber   int
}

// Gate decides whether a new live session may be recorded. The session
// ceiling is checked first: once the next number would exceed the program
// length, no further live submissions are accepted regardless of holes.
// Otherwise any outstanding hole blocks submission until backfilled.
func (t *Timeline) Gate() GateDecision {
	res := t.FindHoles()
	d := GateDecision{NextSessionNumber: res.NextSessionNumber}
	if res.NextSessionNumber > t.ProgramLength {
		d.SessionLimitReached = true
		return d
	}
	if res.HasHoles {
		d.BlockingHoles = res.Holes
		return d
	}
	d.Allowed = true
	return d
}
