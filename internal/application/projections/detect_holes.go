package projections

import (
	"context"
	"errors"

	"mentorlog/internal/domain/identity"
	recordDomain "mentorlog/internal/domain/record"
	"mentorlog/internal/domain/timeline"
)

// DetectHolesQuery carries input for the hole-detection query.
type DetectHolesQuery struct {
	MentorName    string
	StudentName   string
	ProgramLength int
}

// DetectHolesDeps holds dependencies for hole detection.
type DetectHolesDeps struct {
	RecordStore RecordReader
}

// DetectHolesResult carries the derived reconciliation state.
type DetectHolesResult struct {
	Holes             []timeline.Hole
	NextSessionNumber int
	HasHoles          bool
	Timeline          timeline.Timeline
}

// QueryDetectHoles rebuilds the student's timeline from the full row history
// and scans it for gaps.
// PRE: ProgramLength is 10 or 25
// POST: Result is derived from a fresh store snapshot; repeated calls over
// unchanged rows yield identical results
func QueryDetectHoles(ctx context.Context, query DetectHolesQuery, deps DetectHolesDeps) (DetectHolesResult, error) {
	tl, err := buildStudentTimeline(ctx, deps.RecordStore, query.MentorName, query.StudentName, query.ProgramLength)
	if err != nil {
		return DetectHolesResult{}, err
	}

	res := tl.FindHoles()
	return DetectHolesResult{
		Holes:             res.Holes,
		NextSessionNumber: res.NextSessionNumber,
		HasHoles:          res.HasHoles,
		Timeline:          tl,
	}, nil
}

// buildStudentTimeline fetches the student's rows and marks their completed
// slots. Rows without session numbers cannot occupy a slot; rows with dates
// that failed to parse mark the slot with a zero date, which FindHoles
// treats as not completed.
func buildStudentTimeline(ctx context.Context, store RecordReader, mentorName, studentName string, programLength int) (timeline.Timeline, error) {
	if mentorName == "" || studentName == "" {
		return timeline.Timeline{}, errors.New("mentor and student names are required")
	}
	tl, err := timeline.New(programLength)
	if err != nil {
		return timeline.Timeline{}, err
	}
	tl.MentorName = mentorName
	tl.StudentName = studentName

	mentorKey := identity.MentorKey(mentorName)
	studentKey := identity.StudentKey(studentName)

	records, err := store.ListByKeys(ctx, mentorKey, studentKey)
	if err != nil {
		return timeline.Timeline{}, storeFailure("list records", err)
	}

	for _, rec := range records {
		if !rec.Matches(mentorKey, studentKey) {
			continue
		}
		if rec.HasSessionNumber() {
			tl.Mark(rec.SessionNumber, rec.SessionDate, rec.Unexcused)
		}
	}
	return tl, nil
}

// markRecords is shared with the roster view.
func markRecords(tl *timeline.Timeline, records []recordDomain.SessionRecord) {
	for _, rec := range records {
		if rec.HasSessionNumber() {
			tl.Mark(rec.SessionNumber, rec.SessionDate, rec.Unexcused)
		}
	}
}
