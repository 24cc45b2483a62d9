// Package record defines the append-only session attendance record.
package record

import (
	"errors"
	"time"

	"mentorlog/internal/domain/identity"
)

// DateLayout is the storage format for session dates.
const DateLayout = "2006-01-02"

// ErrStoreUnavailable indicates the backing record store could not be
// reached. Callers must surface "unknown" rather than substitute defaults
// that would be indistinguishable from a brand-new student.
var ErrStoreUnavailable = errors.New("record store unavailable")

// SessionRecord is one attendance submission. Records are immutable once
// appended; corrections are new rows, never updates.
type SessionRecord struct {
	ID             string
	MentorName     string
	StudentName    string
	MentorKey      identity.Key
	StudentKey     identity.Key
	SessionDate    time.Time
	SessionNumber  int // 0 on legacy rows written without a number
	Unexcused      bool
	ProgressText   string
	ExitTicketURL  string
	SpecialAnswers map[string]string
	CreatedAt      time.Time
}

// Validate checks the record is well-formed enough to append.
// PRE: SessionRecord struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: Mentor and student names must be present, session date must be set
func (r *SessionRecord) Validate() error {
	if r.MentorName == "" {
		return errors.New("record must name a mentor")
	}
	if r.StudentName == "" {
		return errors.New("record must name a student")
	}
	if r.SessionDate.IsZero() {
		return errors.New("session date must be set")
	}
	if r.SessionNumber < 0 {
		return errors.New("session number cannot be negative")
	}
	return nil
}

// HasSessionNumber reports whether the row carries an explicit session
// number. Legacy rows imported from older sheets may not.
func (r *SessionRecord) HasSessionNumber() bool {
	return r.SessionNumber > 0
}

// NormalizeKeys fills MentorKey and StudentKey from the raw names. Called
// before append so stored rows always carry their normalized identity.
func (r *SessionRecord) NormalizeKeys() {
	r.MentorKey = identity.MentorKey(r.MentorName)
	r.StudentKey = identity.StudentKey(r.StudentName)
}

// Matches reports whether the record belongs to the given normalized
// (mentor, student) pair. Matching is always done on normalized keys, never
// raw names, since server-side filtering may be exact-match only.
func (r *SessionRecord) Matches(mentorKey, studentKey identity.Key) bool {
	return identity.MentorKey(r.MentorName) == mentorKey &&
		identity.StudentKey(r.StudentName) == studentKey
}
