package projections

import (
	"context"
	"errors"
	"fmt"

	"mentorlog/internal/domain/identity"
	recordDomain "mentorlog/internal/domain/record"
)

// NextSessionNumberQuery carries input for the sequencing query.
type NextSessionNumberQuery struct {
	MentorName  string
	StudentName string
}

// NextSessionNumberDeps holds dependencies for the sequencing query.
type NextSessionNumberDeps struct {
	RecordStore RecordReader
}

// QueryNextSessionNumber computes the next session number to assign for a
// student from their historical rows.
//
// The maximum stored session number is authoritative: it survives row
// reordering and duplicate or incomplete intermediate rows. Counting rows is
// only a fallback for students whose rows all predate session numbering.
// Unexcused-absence rows carry numbers and consume them like any other row.
//
// PRE: MentorName and StudentName are non-empty
// POST: Returns max(stored numbers)+1, row-count+1 as fallback, or 1 for a
// brand-new student; a store failure surfaces as ErrStoreUnavailable, never
// as a guessed 1
func QueryNextSessionNumber(ctx context.Context, query NextSessionNumberQuery, deps NextSessionNumberDeps) (int, error) {
	if query.MentorName == "" || query.StudentName == "" {
		return 0, errors.New("mentor and student names are required")
	}

	mentorKey := identity.MentorKey(query.MentorName)
	studentKey := identity.StudentKey(query.StudentName)

	records, err := deps.RecordStore.ListByKeys(ctx, mentorKey, studentKey)
	if err != nil {
		return 0, storeFailure("list records", err)
	}

	// Server-side filtering may be exact-match; re-filter tolerantly.
	maxNumber := 0
	matched := 0
	for _, rec := range records {
		if !rec.Matches(mentorKey, studentKey) {
			continue
		}
		matched++
		if rec.SessionNumber > maxNumber {
			maxNumber = rec.SessionNumber
		}
	}

	if maxNumber > 0 {
		return maxNumber + 1, nil
	}
	if matched > 0 {
		// No row carries a number: legacy data written before numbering.
		return matched + 1, nil
	}
	return 1, nil
}

// storeFailure tags any store error uniformly as ErrStoreUnavailable so
// callers can distinguish "store down" from domain outcomes.
func storeFailure(op string, err error) error {
	if errors.Is(err, recordDomain.ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, recordDomain.ErrStoreUnavailable, err)
}
