// Package projections holds the read-side queries: session sequencing, hole
// detection, gating, and the timeline views the UI renders. Every query
// recomputes from a fresh snapshot of store rows; nothing here holds state.
package projections

import (
	"context"

	"mentorlog/internal/adapters/storage/record"
	"mentorlog/internal/domain/identity"
	recordDomain "mentorlog/internal/domain/record"
)

// RecordReader is the record store surface the per-student queries need.
type RecordReader interface {
	ListByKeys(ctx context.Context, mentorKey, studentKey identity.Key) ([]recordDomain.SessionRecord, error)
}

// MentorRecordReader additionally spans all of one mentor's students.
type MentorRecordReader interface {
	RecordReader
	ListByMentorKey(ctx context.Context, mentorKey identity.Key) ([]recordDomain.SessionRecord, error)
}

// RosterReader exposes the derived per-session completion grid.
type RosterReader interface {
	Roster(ctx context.Context, programLength int) ([]record.RosterEntry, error)
}
