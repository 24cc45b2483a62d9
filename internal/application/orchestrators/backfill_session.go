package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	recordstore "mentorlog/internal/adapters/storage/record"
	"mentorlog/internal/domain/backfill"
	recordDomain "mentorlog/internal/domain/record"
	"mentorlog/internal/domain/requirements"
)

// BackfillSessionInput carries a mentor's submission for one detected hole.
type BackfillSessionInput struct {
	MentorName     string
	StudentName    string
	ProgramLength  int
	SessionNumber  int
	Date           time.Time
	ProgressText   string
	ExitTicketURL  string
	SpecialAnswers map[string]string
}

// BackfillSessionDeps holds dependencies for the backfill orchestrator.
type BackfillSessionDeps struct {
	RecordStore  recordstore.Store
	Cache        recordstore.Invalidator
	Requirements requirements.Table
}

// BackfillSessionResult reports the written row and the remaining holes after
// the append, re-derived from the store.
type BackfillSessionResult struct {
	RecordID       string
	RemainingHoles int
	// Validation carries per-field reasons when the error is ErrContentRejected.
	Validation backfill.Result
}

// ExecuteBackfillSession validates and appends a row for a previously skipped
// session. The hole and its date range are always re-derived from the store
// immediately before validation, so a stale form cannot write into a slot
// another submission already filled.
// PRE: SessionNumber identifies a hole in the student's current timeline
// POST: On success the slot is filled, the read cache for the pair was
// invalidated, and RemainingHoles reflects the new store state
func ExecuteBackfillSession(ctx context.Context, input BackfillSessionInput, deps BackfillSessionDeps) (BackfillSessionResult, error) {
	tl, err := loadTimeline(ctx, deps.RecordStore, input.MentorName, input.StudentName, input.ProgramLength)
	if err != nil {
		return BackfillSessionResult{}, err
	}

	holes := tl.FindHoles()
	hole, ok := holes.HoleFor(input.SessionNumber)
	if !ok {
		slog.Info("attendance_event", "event", "backfill_refused",
			"student", input.StudentName, "session_number", input.SessionNumber,
			"reason", "not_a_hole")
		return BackfillSessionResult{}, ErrHoleNotFound
	}

	candidate := backfill.Candidate{
		Date:           input.Date,
		ProgressText:   input.ProgressText,
		ExitTicketURL:  input.ExitTicketURL,
		SpecialAnswers: input.SpecialAnswers,
	}
	res := backfill.Validate(hole, input.ProgramLength, candidate, deps.Requirements)
	if !res.OK() {
		return BackfillSessionResult{Validation: res}, ErrContentRejected
	}

	rec := recordDomain.SessionRecord{
		ID:             uuid.NewString(),
		MentorName:     input.MentorName,
		StudentName:    input.StudentName,
		SessionDate:    input.Date,
		SessionNumber:  input.SessionNumber,
		ProgressText:   input.ProgressText,
		ExitTicketURL:  input.ExitTicketURL,
		SpecialAnswers: input.SpecialAnswers,
		CreatedAt:      time.Now().UTC(),
	}
	rec.NormalizeKeys()
	if err := rec.Validate(); err != nil {
		return BackfillSessionResult{}, err
	}

	if err := deps.RecordStore.Append(ctx, rec); err != nil {
		return BackfillSessionResult{}, err
	}
	if deps.Cache != nil {
		deps.Cache.Invalidate(rec.MentorKey, rec.StudentKey)
	}

	// Re-derive so the caller can report whether the gate is clear now.
	after, err := loadTimeline(ctx, deps.RecordStore, input.MentorName, input.StudentName, input.ProgramLength)
	if err != nil {
		return BackfillSessionResult{RecordID: rec.ID}, err
	}
	remaining := len(after.FindHoles().Holes)

	slog.Info("attendance_event", "event", "backfill_recorded",
		"record_id", rec.ID, "student", input.StudentName,
		"session_number", input.SessionNumber, "remaining_holes", remaining)

	return BackfillSessionResult{RecordID: rec.ID, RemainingHoles: remaining}, nil
}
