package projections

import (
	"context"

	"mentorlog/internal/domain/identity"
	recordDomain "mentorlog/internal/domain/record"
	"mentorlog/internal/domain/timeline"
)

// StudentTimelineQuery carries input for the timeline page view.
type StudentTimelineQuery struct {
	MentorName    string
	StudentName   string
	ProgramLength int
}

// StudentTimelineDeps holds dependencies for the timeline view.
type StudentTimelineDeps struct {
	RecordStore RecordReader
}

// SessionView is one row of the rendered timeline.
type SessionView struct {
	SessionNumber int
	Completed     bool
	Date          string // YYYY-MM-DD, empty when not completed
	Unexcused     bool
	ProgressText  string
	ExitTicketURL string
	IsHole        bool
	HoleMin       string // bounds shown on the backfill form
	HoleMax       string
}

// StudentTimelineResult carries everything the timeline page renders.
type StudentTimelineResult struct {
	MentorName        string
	StudentName       string
	ProgramLength     int
	Sessions          []SessionView
	NextSessionNumber int
	HasHoles          bool
	Gate              timeline.GateDecision
}

// QueryStudentTimeline builds the full per-session view for one student,
// combining slot state with the text of the row that filled each slot.
func QueryStudentTimeline(ctx context.Context, query StudentTimelineQuery, deps StudentTimelineDeps) (StudentTimelineResult, error) {
	tl, err := buildStudentTimeline(ctx, deps.RecordStore, query.MentorName, query.StudentName, query.ProgramLength)
	if err != nil {
		return StudentTimelineResult{}, err
	}

	mentorKey := identity.MentorKey(query.MentorName)
	studentKey := identity.StudentKey(query.StudentName)
	records, err := deps.RecordStore.ListByKeys(ctx, mentorKey, studentKey)
	if err != nil {
		return StudentTimelineResult{}, storeFailure("list records", err)
	}

	// Latest row per slot wins for display text; derivation itself only
	// cares about completion and dates.
	bySession := map[int]recordDomain.SessionRecord{}
	for _, rec := range records {
		if rec.Matches(mentorKey, studentKey) && rec.HasSessionNumber() {
			bySession[rec.SessionNumber] = rec
		}
	}

	holes := tl.FindHoles()
	sessions := make([]SessionView, 0, query.ProgramLength)
	for n := 1; n <= query.ProgramLength; n++ {
		slot := tl.Slot(n)
		view := SessionView{
			SessionNumber: n,
			Completed:     slot.Completed && !slot.Date.IsZero(),
			Unexcused:     slot.Unexcused,
		}
		if view.Completed {
			view.Date = slot.Date.Format(recordDomain.DateLayout)
		}
		if rec, ok := bySession[n]; ok {
			view.ProgressText = rec.ProgressText
			view.ExitTicketURL = rec.ExitTicketURL
		}
		if hole, ok := holes.HoleFor(n); ok {
			view.IsHole = true
			if !hole.Range.OpenBelow() {
				view.HoleMin = hole.Range.Min.Format(recordDomain.DateLayout)
			}
			view.HoleMax = hole.Range.Max.Format(recordDomain.DateLayout)
		}
		sessions = append(sessions, view)
	}

	return StudentTimelineResult{
		MentorName:        query.MentorName,
		StudentName:       query.StudentName,
		ProgramLength:     query.ProgramLength,
		Sessions:          sessions,
		NextSessionNumber: holes.NextSessionNumber,
		HasHoles:          holes.HasHoles,
		Gate:              tl.Gate(),
	}, nil
}
