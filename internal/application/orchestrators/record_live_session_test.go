package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"mentorlog/internal/domain/record"
	"mentorlog/internal/domain/requirements"
)

func liveInput(session int) RecordLiveSessionInput {
	return RecordLiveSessionInput{
		MentorName:    "Jane Doe",
		StudentName:   "Ada Lovelace",
		ProgramLength: 10,
		Date:          time.Date(2026, 4, session, 0, 0, 0, 0, time.UTC),
		ProgressText:  "covered graph traversal and wrote a BFS together",
		ExitTicketURL: "https://docs.google.com/document/d/xyz",
	}
}

func TestExecuteRecordLiveSession(t *testing.T) {
	ctx := context.Background()
	reqs := requirements.Default()

	t.Run("first session gets number one", func(t *testing.T) {
		store := &mockRecordStore{}
		cache := &mockInvalidator{}
		deps := RecordLiveSessionDeps{RecordStore: store, Cache: cache, Requirements: reqs}

		res, err := ExecuteRecordLiveSession(ctx, liveInput(1), deps)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.SessionNumber != 1 {
			t.Errorf("expected session 1, got %d", res.SessionNumber)
		}
		if res.NextSessionNumber != 2 {
			t.Errorf("expected next session 2, got %d", res.NextSessionNumber)
		}
		if len(store.appended) != 1 {
			t.Fatalf("expected 1 appended row, got %d", len(store.appended))
		}
		rec := store.appended[0]
		if rec.ID == "" {
			t.Error("appended row has no ID")
		}
		if rec.MentorKey == "" || rec.StudentKey == "" {
			t.Error("appended row keys were not normalized")
		}
		if len(cache.invalidated) != 1 {
			t.Errorf("expected 1 cache invalidation, got %d", len(cache.invalidated))
		}
	})

	t.Run("sequences from the max stored number", func(t *testing.T) {
		store := &mockRecordStore{records: []record.SessionRecord{
			completedRec("Jane Doe", "Ada Lovelace", 1, "2026-03-02"),
			completedRec("Jane Doe", "Ada Lovelace", 2, "2026-03-09"),
		}}
		deps := RecordLiveSessionDeps{RecordStore: store, Requirements: reqs}

		res, err := ExecuteRecordLiveSession(ctx, liveInput(3), deps)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.SessionNumber != 3 {
			t.Errorf("expected session 3, got %d", res.SessionNumber)
		}
	})

	t.Run("holes block submission", func(t *testing.T) {
		store := &mockRecordStore{records: []record.SessionRecord{
			completedRec("Jane Doe", "Ada Lovelace", 1, "2026-03-02"),
			completedRec("Jane Doe", "Ada Lovelace", 3, "2026-03-16"),
		}}
		deps := RecordLiveSessionDeps{RecordStore: store, Requirements: reqs}

		res, err := ExecuteRecordLiveSession(ctx, liveInput(4), deps)
		if !errors.Is(err, ErrHolesBlocking) {
			t.Fatalf("expected ErrHolesBlocking, got %v", err)
		}
		if len(res.Gate.BlockingHoles) != 1 || res.Gate.BlockingHoles[0].SessionNumber != 2 {
			t.Errorf("expected blocking hole at session 2, got %+v", res.Gate.BlockingHoles)
		}
		if len(store.appended) != 0 {
			t.Error("blocked submission must not append")
		}
	})

	t.Run("session ceiling refuses even with holes", func(t *testing.T) {
		store := &mockRecordStore{records: []record.SessionRecord{
			completedRec("Jane Doe", "Ada Lovelace", 8, "2026-03-02"),
			completedRec("Jane Doe", "Ada Lovelace", 10, "2026-03-16"),
		}}
		deps := RecordLiveSessionDeps{RecordStore: store, Requirements: reqs}

		_, err := ExecuteRecordLiveSession(ctx, liveInput(4), deps)
		if !errors.Is(err, ErrSessionLimitReached) {
			t.Fatalf("expected ErrSessionLimitReached, got %v", err)
		}
	})

	t.Run("placeholder progress is rejected", func(t *testing.T) {
		store := &mockRecordStore{}
		deps := RecordLiveSessionDeps{RecordStore: store, Requirements: reqs}

		input := liveInput(1)
		input.ProgressText = "N/A"
		res, err := ExecuteRecordLiveSession(ctx, input, deps)
		if !errors.Is(err, ErrContentRejected) {
			t.Fatalf("expected ErrContentRejected, got %v", err)
		}
		if _, ok := res.Validation.Fields["progressText"]; !ok {
			t.Errorf("expected progressText rejection, got %+v", res.Validation.Fields)
		}
		if len(store.appended) != 0 {
			t.Error("rejected submission must not append")
		}
	})

	t.Run("special question required at session two", func(t *testing.T) {
		store := &mockRecordStore{records: []record.SessionRecord{
			completedRec("Jane Doe", "Ada Lovelace", 1, "2026-03-02"),
		}}
		deps := RecordLiveSessionDeps{RecordStore: store, Requirements: reqs}

		input := liveInput(2)
		res, err := ExecuteRecordLiveSession(ctx, input, deps)
		if !errors.Is(err, ErrContentRejected) {
			t.Fatalf("expected ErrContentRejected, got %v", err)
		}
		if _, ok := res.Validation.Fields[requirements.KeyProjectTopic]; !ok {
			t.Errorf("expected projectTopic rejection, got %+v", res.Validation.Fields)
		}

		input.SpecialAnswers = map[string]string{requirements.KeyProjectTopic: "build a weather station"}
		if _, err := ExecuteRecordLiveSession(ctx, input, deps); err != nil {
			t.Fatalf("unexpected error with answer provided: %v", err)
		}
	})

	t.Run("feedback minimum length enforced", func(t *testing.T) {
		records := make([]record.SessionRecord, 0, 4)
		for n := 1; n <= 4; n++ {
			records = append(records, completedRec("Jane Doe", "Ada Lovelace", n, fmt.Sprintf("2026-03-%02d", n)))
		}
		store := &mockRecordStore{records: records}
		deps := RecordLiveSessionDeps{RecordStore: store, Requirements: reqs}

		input := liveInput(5)
		input.SpecialAnswers = map[string]string{
			requirements.KeyConfirmedTopic: "weather station",
			requirements.KeyMidFeedback:    "too short",
		}
		res, err := ExecuteRecordLiveSession(ctx, input, deps)
		if !errors.Is(err, ErrContentRejected) {
			t.Fatalf("expected ErrContentRejected, got %v", err)
		}
		if _, ok := res.Validation.Fields[requirements.KeyMidFeedback]; !ok {
			t.Errorf("expected midFeedback rejection, got %+v", res.Validation.Fields)
		}

		input.SpecialAnswers[requirements.KeyMidFeedback] = strings.Repeat("x", 300)
		if _, err := ExecuteRecordLiveSession(ctx, input, deps); err != nil {
			t.Fatalf("unexpected error with long feedback: %v", err)
		}
	})

	t.Run("unexcused absence skips content rules", func(t *testing.T) {
		store := &mockRecordStore{}
		cache := &mockInvalidator{}
		deps := RecordLiveSessionDeps{RecordStore: store, Cache: cache, Requirements: reqs}

		input := liveInput(1)
		input.Unexcused = true
		input.ProgressText = ""
		input.ExitTicketURL = ""
		res, err := ExecuteRecordLiveSession(ctx, input, deps)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.SessionNumber != 1 {
			t.Errorf("absence must still consume a session number, got %d", res.SessionNumber)
		}
		if !store.appended[0].Unexcused {
			t.Error("appended row must be flagged unexcused")
		}
	})

	t.Run("store failure surfaces instead of guessing", func(t *testing.T) {
		boom := errors.New("disk gone")
		store := &mockRecordStore{listErr: boom}
		deps := RecordLiveSessionDeps{RecordStore: store, Requirements: reqs}

		_, err := ExecuteRecordLiveSession(ctx, liveInput(1), deps)
		if !errors.Is(err, boom) {
			t.Fatalf("expected store error to surface, got %v", err)
		}
	})

	t.Run("invalid program length", func(t *testing.T) {
		deps := RecordLiveSessionDeps{RecordStore: &mockRecordStore{}, Requirements: reqs}
		input := liveInput(1)
		input.ProgramLength = 12
		if _, err := ExecuteRecordLiveSession(ctx, input, deps); !errors.Is(err, ErrInvalidProgramLength) {
			t.Fatalf("expected ErrInvalidProgramLength, got %v", err)
		}
	})
}
