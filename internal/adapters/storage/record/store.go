// Package record persists append-only attendance rows and derives the
// per-student roster grid from them.
package record

import (
	"context"

	"mentorlog/internal/domain/identity"
	domain "mentorlog/internal/domain/record"
	"mentorlog/internal/domain/timeline"
)

// Store persists SessionRecord rows. The row set is append-only: there is no
// update or delete operation, matching the external sheet's semantics.
type Store interface {
	// Append adds one row. Rows are never mutated afterwards.
	Append(ctx context.Context, rec domain.SessionRecord) error
	// ListByKeys returns rows for a normalized (mentor, student) pair. The
	// query filters on the stored key columns, but callers must still apply
	// tolerant matching since legacy rows may predate key normalization.
	ListByKeys(ctx context.Context, mentorKey, studentKey identity.Key) ([]domain.SessionRecord, error)
	// ListByMentorKey returns all rows for one mentor across students.
	ListByMentorKey(ctx context.Context, mentorKey identity.Key) ([]domain.SessionRecord, error)
	// ListAll returns every row.
	ListAll(ctx context.Context) ([]domain.SessionRecord, error)
	// Roster derives one timeline per (mentor, student) pair for the given
	// program length, rebuilt from the full row history.
	Roster(ctx context.Context, programLength int) ([]RosterEntry, error)
}

// RosterEntry pairs a derived timeline with the identity it belongs to.
type RosterEntry struct {
	MentorName  string
	StudentName string
	MentorKey   identity.Key
	StudentKey  identity.Key
	Timeline    timeline.Timeline
}

// Invalidator is the cache-invalidation hook orchestrators call after every
// successful append, before any dependent read.
type Invalidator interface {
	Invalidate(mentorKey, studentKey identity.Key)
	InvalidateAll()
}
