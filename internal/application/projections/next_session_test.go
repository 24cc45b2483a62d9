package projections

import (
	"context"
	"errors"
	"testing"
	"time"

	"mentorlog/internal/domain/identity"
	recordDomain "mentorlog/internal/domain/record"
)

// mockRecordReader implements RecordReader and MentorRecordReader for testing.
type mockRecordReader struct {
	records []recordDomain.SessionRecord
	err     error
}

// ListByKeys returns rows matching the key pair, or the configured error.
func (m *mockRecordReader) ListByKeys(_ context.Context, mentorKey, studentKey identity.Key) ([]recordDomain.SessionRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []recordDomain.SessionRecord
	for _, r := range m.records {
		if r.Matches(mentorKey, studentKey) {
			out = append(out, r)
		}
	}
	return out, nil
}

// ListByMentorKey returns rows for one mentor, or the configured error.
func (m *mockRecordReader) ListByMentorKey(_ context.Context, mentorKey identity.Key) ([]recordDomain.SessionRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []recordDomain.SessionRecord
	for _, r := range m.records {
		if identity.MentorKey(r.MentorName) == mentorKey {
			out = append(out, r)
		}
	}
	return out, nil
}

func rec(mentor, student string, n, day int) recordDomain.SessionRecord {
	return recordDomain.SessionRecord{
		MentorName:    mentor,
		StudentName:   student,
		SessionNumber: n,
		SessionDate:   time.Date(2026, time.March, day, 0, 0, 0, 0, time.UTC),
	}
}

// TestQueryNextSessionNumber_MaxStoredWins: the stored maximum beats row
// counting even with duplicate and out-of-order rows.
func TestQueryNextSessionNumber_MaxStoredWins(t *testing.T) {
	deps := NextSessionNumberDeps{RecordStore: &mockRecordReader{records: []recordDomain.SessionRecord{
		rec("Ana Rivera", "Jordan Lee", 5, 9),
		rec("Ana Rivera", "Jordan Lee", 2, 3),
		rec("Ana Rivera", "Jordan Lee", 2, 3), // duplicate row
	}}}

	got, err := QueryNextSessionNumber(context.Background(), NextSessionNumberQuery{
		MentorName: "Ana Rivera", StudentName: "Jordan Lee",
	}, deps)
	if err != nil {
		t.Fatalf("QueryNextSessionNumber: %v", err)
	}
	if got != 6 {
		t.Errorf("next = %d, want 6 (max stored + 1)", got)
	}
}

// TestQueryNextSessionNumber_CountFallback applies when no row has a number.
func TestQueryNextSessionNumber_CountFallback(t *testing.T) {
	deps := NextSessionNumberDeps{RecordStore: &mockRecordReader{records: []recordDomain.SessionRecord{
		rec("Ana Rivera", "Jordan Lee", 0, 3),
		rec("Ana Rivera", "Jordan Lee", 0, 9),
	}}}

	got, err := QueryNextSessionNumber(context.Background(), NextSessionNumberQuery{
		MentorName: "Ana Rivera", StudentName: "Jordan Lee",
	}, deps)
	if err != nil {
		t.Fatalf("QueryNextSessionNumber: %v", err)
	}
	if got != 3 {
		t.Errorf("next = %d, want 3 (count fallback)", got)
	}
}

// TestQueryNextSessionNumber_NewStudent returns 1 without friction.
func TestQueryNextSessionNumber_NewStudent(t *testing.T) {
	deps := NextSessionNumberDeps{RecordStore: &mockRecordReader{}}

	got, err := QueryNextSessionNumber(context.Background(), NextSessionNumberQuery{
		MentorName: "Ana Rivera", StudentName: "Jordan Lee",
	}, deps)
	if err != nil {
		t.Fatalf("QueryNextSessionNumber: %v", err)
	}
	if got != 1 {
		t.Errorf("next = %d, want 1", got)
	}
}

// TestQueryNextSessionNumber_TolerantMatching unifies name variants.
func TestQueryNextSessionNumber_TolerantMatching(t *testing.T) {
	deps := NextSessionNumberDeps{RecordStore: &mockRecordReader{records: []recordDomain.SessionRecord{
		rec("rivera   ANA", " jordan  LEE ", 3, 5),
	}}}

	got, err := QueryNextSessionNumber(context.Background(), NextSessionNumberQuery{
		MentorName: "Ana Rivera", StudentName: "Jordan Lee",
	}, deps)
	if err != nil {
		t.Fatalf("QueryNextSessionNumber: %v", err)
	}
	if got != 4 {
		t.Errorf("next = %d, want 4", got)
	}
}

// TestQueryNextSessionNumber_StoreFailure never substitutes a default.
func TestQueryNextSessionNumber_StoreFailure(t *testing.T) {
	deps := NextSessionNumberDeps{RecordStore: &mockRecordReader{err: errors.New("sheet timeout")}}

	got, err := QueryNextSessionNumber(context.Background(), NextSessionNumberQuery{
		MentorName: "Ana Rivera", StudentName: "Jordan Lee",
	}, deps)
	if err == nil {
		t.Fatal("expected an error on store failure")
	}
	if !errors.Is(err, recordDomain.ErrStoreUnavailable) {
		t.Errorf("error = %v, want ErrStoreUnavailable", err)
	}
	if got != 0 {
		t.Errorf("got %d on failure, must not guess a session number", got)
	}
}

// TestQueryNextSessionNumber_RequiresNames rejects blank identities.
func TestQueryNextSessionNumber_RequiresNames(t *testing.T) {
	deps := NextSessionNumberDeps{RecordStore: &mockRecordReader{}}
	if _, err := QueryNextSessionNumber(context.Background(), NextSessionNumberQuery{MentorName: "Ana"}, deps); err == nil {
		t.Error("expected error for missing student name")
	}
}
