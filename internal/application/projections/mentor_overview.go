package projections

import (
	"context"
	"errors"
	"sort"

	"mentorlog/internal/domain/identity"
	recordDomain "mentorlog/internal/domain/record"
	"mentorlog/internal/domain/timeline"
)

// MentorOverviewQuery carries input for the mentor dashboard.
type MentorOverviewQuery struct {
	MentorName    string
	ProgramLength int
}

// MentorOverviewDeps holds dependencies for the dashboard view.
type MentorOverviewDeps struct {
	RecordStore MentorRecordReader
}

// StudentSummary is a one-line dashboard entry per student.
type StudentSummary struct {
	StudentName       string
	SessionsCompleted int
	NextSessionNumber int
	HoleCount         int
	SessionLimit      bool
}

// MentorOverviewResult carries the dashboard rows.
type MentorOverviewResult struct {
	MentorName string
	Students   []StudentSummary
}

// QueryMentorOverview summarizes every student a mentor has rows for:
// completed count, next session, and outstanding holes.
func QueryMentorOverview(ctx context.Context, query MentorOverviewQuery, deps MentorOverviewDeps) (MentorOverviewResult, error) {
	if query.MentorName == "" {
		return MentorOverviewResult{}, errors.New("mentor name is required")
	}
	if !timeline.ValidProgramLength(query.ProgramLength) {
		return MentorOverviewResult{}, errors.New("program length must be 10 or 25")
	}

	mentorKey := identity.MentorKey(query.MentorName)
	records, err := deps.RecordStore.ListByMentorKey(ctx, mentorKey)
	if err != nil {
		return MentorOverviewResult{}, storeFailure("list mentor records", err)
	}

	byStudent := map[identity.Key][]recordDomain.SessionRecord{}
	names := map[identity.Key]string{}
	for _, rec := range records {
		key := identity.StudentKey(rec.StudentName)
		byStudent[key] = append(byStudent[key], rec)
		names[key] = rec.StudentName
	}

	result := MentorOverviewResult{MentorName: query.MentorName}
	for key, recs := range byStudent {
		tl, err := timeline.New(query.ProgramLength)
		if err != nil {
			return MentorOverviewResult{}, err
		}
		markRecords(&tl, recs)

		holes := tl.FindHoles()
		completed := 0
		for _, s := range tl.Slots {
			if s.Completed && !s.Date.IsZero() {
				completed++
			}
		}
		result.Students = append(result.Students, StudentSummary{
			StudentName:       names[key],
			SessionsCompleted: completed,
			NextSessionNumber: holes.NextSessionNumber,
			HoleCount:         len(holes.Holes),
			SessionLimit:      holes.NextSessionNumber > query.ProgramLength,
		})
	}

	sort.Slice(result.Students, func(i, j int) bool {
		return result.Students[i].StudentName < result.Students[j].StudentName
	})
	return result, nil
}
