package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	recordstore "mentorlog/internal/adapters/storage/record"
	"mentorlog/internal/domain/backfill"
	recordDomain "mentorlog/internal/domain/record"
	"mentorlog/internal/domain/requirements"
	"mentorlog/internal/domain/timeline"
)

var (
	ErrHolesBlocking        = errors.New("unfilled earlier sessions block this submission")
	ErrSessionLimitReached  = errors.New("the student has completed every session in the program")
	ErrContentRejected      = errors.New("submission content rejected")
	ErrHoleNotFound         = errors.New("no hole with that session number")
	ErrInvalidProgramLength = errors.New("program length must be 10 or 25")
)

// RecordLiveSessionInput carries a mentor's submission for the next session.
type RecordLiveSessionInput struct {
	MentorName     string
	StudentName    string
	ProgramLength  int
	Date           time.Time
	Unexcused      bool
	ProgressText   string
	ExitTicketURL  string
	SpecialAnswers map[string]string
}

// RecordLiveSessionDeps holds dependencies for the live-session orchestrator.
type RecordLiveSessionDeps struct {
	RecordStore  recordstore.Store
	Cache        recordstore.Invalidator
	Requirements requirements.Table
}

// RecordLiveSessionResult reports the row that was written and the state the
// gate will be in afterwards.
type RecordLiveSessionResult struct {
	RecordID          string
	SessionNumber     int
	NextSessionNumber int
	// Validation carries per-field reasons when the error is ErrContentRejected.
	Validation backfill.Result
	// Gate carries the blocking decision when the error is ErrHolesBlocking or
	// ErrSessionLimitReached.
	Gate timeline.GateDecision
}

// ExecuteRecordLiveSession gates, validates, and appends one live session row.
// The gate and the session number are both derived from a fresh store read so
// that a backfill appended moments earlier is honored.
// PRE: Caller resolved the mentor and student names from the session
// POST: On success exactly one row was appended and the read cache for the
// pair was invalidated
// INVARIANT: The store is append-only; a rejected submission writes nothing
func ExecuteRecordLiveSession(ctx context.Context, input RecordLiveSessionInput, deps RecordLiveSessionDeps) (RecordLiveSessionResult, error) {
	if !timeline.ValidProgramLength(input.ProgramLength) {
		return RecordLiveSessionResult{}, ErrInvalidProgramLength
	}

	tl, err := loadTimeline(ctx, deps.RecordStore, input.MentorName, input.StudentName, input.ProgramLength)
	if err != nil {
		return RecordLiveSessionResult{}, err
	}

	gate := tl.Gate()
	if gate.SessionLimitReached {
		slog.Info("attendance_event", "event", "live_refused",
			"student", input.StudentName, "reason", "session_limit")
		return RecordLiveSessionResult{Gate: gate}, ErrSessionLimitReached
	}
	if !gate.Allowed {
		slog.Info("attendance_event", "event", "live_refused",
			"student", input.StudentName, "reason", "holes",
			"blocking_holes", len(gate.BlockingHoles))
		return RecordLiveSessionResult{Gate: gate}, ErrHolesBlocking
	}

	sessionNumber := gate.NextSessionNumber

	// Unexcused absences still consume the session number but carry no content
	// to validate.
	if !input.Unexcused {
		candidate := backfill.Candidate{
			Date:           input.Date,
			ProgressText:   input.ProgressText,
			ExitTicketURL:  input.ExitTicketURL,
			SpecialAnswers: input.SpecialAnswers,
		}
		var res backfill.Result
		backfill.ValidateContent(candidate, input.ProgramLength, sessionNumber, deps.Requirements, &res)
		if !res.OK() {
			return RecordLiveSessionResult{Validation: res}, ErrContentRejected
		}
	}

	rec := recordDomain.SessionRecord{
		ID:             uuid.NewString(),
		MentorName:     input.MentorName,
		StudentName:    input.StudentName,
		SessionDate:    input.Date,
		SessionNumber:  sessionNumber,
		Unexcused:      input.Unexcused,
		ProgressText:   input.ProgressText,
		ExitTicketURL:  input.ExitTicketURL,
		SpecialAnswers: input.SpecialAnswers,
		CreatedAt:      time.Now().UTC(),
	}
	rec.NormalizeKeys()
	if err := rec.Validate(); err != nil {
		return RecordLiveSessionResult{}, err
	}

	if err := deps.RecordStore.Append(ctx, rec); err != nil {
		return RecordLiveSessionResult{}, err
	}
	if deps.Cache != nil {
		deps.Cache.Invalidate(rec.MentorKey, rec.StudentKey)
	}

	slog.Info("attendance_event", "event", "live_recorded",
		"record_id", rec.ID, "student", input.StudentName,
		"session_number", sessionNumber, "unexcused", input.Unexcused)

	return RecordLiveSessionResult{
		RecordID:          rec.ID,
		SessionNumber:     sessionNumber,
		NextSessionNumber: sessionNumber + 1,
	}, nil
}

// loadTimeline rebuilds one student's timeline from a fresh store read.
func loadTimeline(ctx context.Context, store recordstore.Store, mentorName, studentName string, programLength int) (timeline.Timeline, error) {
	tl, err := timeline.New(programLength)
	if err != nil {
		return timeline.Timeline{}, err
	}
	tl.MentorName = mentorName
	tl.StudentName = studentName

	probe := recordDomain.SessionRecord{MentorName: mentorName, StudentName: studentName}
	probe.NormalizeKeys()

	records, err := store.ListByKeys(ctx, probe.MentorKey, probe.StudentKey)
	if err != nil {
		return timeline.Timeline{}, err
	}
	for _, rec := range records {
		if !rec.Matches(probe.MentorKey, probe.StudentKey) {
			continue
		}
		if rec.HasSessionNumber() {
			tl.Mark(rec.SessionNumber, rec.SessionDate, rec.Unexcused)
		}
	}
	return tl, nil
}
