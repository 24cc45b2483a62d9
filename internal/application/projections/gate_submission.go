package projections

import (
	"context"
	"log/slog"

	"mentorlog/internal/domain/timeline"
)

// GateLiveSubmissionQuery carries input for the submission gate.
type GateLiveSubmissionQuery struct {
	MentorName    string
	StudentName   string
	ProgramLength int
}

// GateLiveSubmissionDeps holds dependencies for the gate.
type GateLiveSubmissionDeps struct {
	RecordStore RecordReader
}

// QueryGateLiveSubmission decides whether a live submission may proceed:
// refused past the session ceiling, blocked while any hole is outstanding.
// The decision is always derived from a fresh store snapshot so a backfill
// appended moments ago is reflected immediately.
// POST: Exactly one of Allowed, SessionLimitReached, or a non-empty
// BlockingHoles describes the outcome
func QueryGateLiveSubmission(ctx context.Context, query GateLiveSubmissionQuery, deps GateLiveSubmissionDeps) (timeline.GateDecision, error) {
	tl, err := buildStudentTimeline(ctx, deps.RecordStore, query.MentorName, query.StudentName, query.ProgramLength)
	if err != nil {
		return timeline.GateDecision{}, err
	}

	d := tl.Gate()
	if !d.Allowed {
		reason := "holes"
		if d.SessionLimitReached {
			reason = "session_limit"
		}
		slog.Info("attendance_event", "event", "submission_blocked",
			"student", query.StudentName, "reason", reason,
			"blocking_holes", len(d.BlockingHoles), "next_session", d.NextSessionNumber)
	}
	return d, nil
}
