// Package timeline derives a student's per-session completion state from
// historical records and detects holes in the completed sequence.
//
// A Timeline is never stored. It is rebuilt from the full row history on
// every query; correctness relies on idempotent re-derivation rather than
// incremental updates.
package timeline

import (
	"errors"
	"time"
)

// Program lengths supported by the tutoring programs.
const (
	ProgramShort = 10
	ProgramLong  = 25
)

// SentinelMinDate bounds holes that sit before the first completed session,
// where no earlier date exists to anchor the range.
var SentinelMinDate = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// ValidProgramLength reports whether n is a supported program length.
func ValidProgramLength(n int) bool {
	return n == ProgramShort || n == ProgramLong
}

// Slot is one session position in a student's timeline. Index i in a
// Timeline holds session number i+1.
type Slot struct {
	Completed bool
	Date      time.Time // zero when not completed or unparseable
	Unexcused bool
}

// Timeline is the derived per-session completion grid for one
// (mentor, student) pair over a fixed-length program.
type Timeline struct {
	MentorName    string
	StudentName   string
	ProgramLength int
	Slots         []Slot
}

// New creates an empty timeline for the given program length.
// PRE: programLength is 10 or 25
// POST: Returns a timeline with programLength empty slots
func New(programLength int) (Timeline, error) {
	if !ValidProgramLength(programLength) {
		return Timeline{}, errors.New("program length must be 10 or 25")
	}
	return Timeline{
		ProgramLength: programLength,
		Slots:         make([]Slot, programLength),
	}, nil
}

// Mark records session n as completed on the given date. A zero date marks
// the slot completed-without-a-parseable-date, which hole detection treats
// as not completed. Session numbers outside [1, ProgramLength] are ignored:
// malformed rows must not crash derivation.
func (t *Timeline) Mark(n int, date time.Time, unexcused bool) {
	if n < 1 || n > len(t.Slots) {
		return
	}
	t.Slots[n-1] = Slot{Completed: true, Date: date, Unexcused: unexcused}
}

// Slot returns the slot for session n, or a zero Slot when out of range.
func (t *Timeline) Slot(n int) Slot {
	if n < 1 || n > len(t.Slots) {
		return Slot{}
	}
	return t.Slots[n-1]
}
