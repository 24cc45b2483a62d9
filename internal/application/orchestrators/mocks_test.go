package orchestrators

import (
	"context"
	"errors"
	"time"

	accountStore "mentorlog/internal/adapters/storage/account"
	outboxStore "mentorlog/internal/adapters/storage/outbox"
	recordstore "mentorlog/internal/adapters/storage/record"
	accountDomain "mentorlog/internal/domain/account"
	"mentorlog/internal/domain/identity"
	outboxDomain "mentorlog/internal/domain/outbox"
	recordDomain "mentorlog/internal/domain/record"
	"mentorlog/internal/domain/timeline"
)

var errNotFound = errors.New("not found")

// mockRecordStore is an in-memory Store for orchestrator tests.
type mockRecordStore struct {
	records   []recordDomain.SessionRecord
	roster    []recordstore.RosterEntry
	listErr   error
	appendErr error
	appended  []recordDomain.SessionRecord
}

var _ recordstore.Store = (*mockRecordStore)(nil)

func (m *mockRecordStore) Append(_ context.Context, rec recordDomain.SessionRecord) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.records = append(m.records, rec)
	m.appended = append(m.appended, rec)
	return nil
}

func (m *mockRecordStore) ListByKeys(_ context.Context, mentorKey, studentKey identity.Key) ([]recordDomain.SessionRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []recordDomain.SessionRecord
	for _, rec := range m.records {
		if rec.Matches(mentorKey, studentKey) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *mockRecordStore) ListByMentorKey(_ context.Context, mentorKey identity.Key) ([]recordDomain.SessionRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []recordDomain.SessionRecord
	for _, rec := range m.records {
		if identity.MentorKey(rec.MentorName) == mentorKey {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *mockRecordStore) ListAll(_ context.Context) ([]recordDomain.SessionRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.records, nil
}

func (m *mockRecordStore) Roster(_ context.Context, _ int) ([]recordstore.RosterEntry, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.roster, nil
}

// mockInvalidator records cache invalidations.
type mockInvalidator struct {
	invalidated []string
	allCalls    int
}

var _ recordstore.Invalidator = (*mockInvalidator)(nil)

func (m *mockInvalidator) Invalidate(mentorKey, studentKey identity.Key) {
	m.invalidated = append(m.invalidated, string(mentorKey)+"|"+string(studentKey))
}

func (m *mockInvalidator) InvalidateAll() { m.allCalls++ }

// mockAccountStore serves the reminder sweep's account lookups.
type mockAccountStore struct {
	accounts []accountDomain.Account
}

var _ accountStore.Store = (*mockAccountStore)(nil)

func (m *mockAccountStore) GetByID(_ context.Context, id string) (accountDomain.Account, error) {
	for _, a := range m.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return accountDomain.Account{}, errNotFound
}

func (m *mockAccountStore) GetByEmail(_ context.Context, email string) (accountDomain.Account, error) {
	for _, a := range m.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return accountDomain.Account{}, errNotFound
}

func (m *mockAccountStore) Save(_ context.Context, a accountDomain.Account) error {
	for i := range m.accounts {
		if m.accounts[i].ID == a.ID {
			m.accounts[i] = a
			return nil
		}
	}
	m.accounts = append(m.accounts, a)
	return nil
}

func (m *mockAccountStore) Delete(_ context.Context, id string) error {
	for i := range m.accounts {
		if m.accounts[i].ID == id {
			m.accounts = append(m.accounts[:i], m.accounts[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockAccountStore) List(_ context.Context, filter accountStore.ListFilter) ([]accountDomain.Account, error) {
	var out []accountDomain.Account
	for _, a := range m.accounts {
		if filter.Role != "" && a.Role != filter.Role {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *mockAccountStore) Count(_ context.Context) (int, error) {
	return len(m.accounts), nil
}

// mockOutboxStore collects queued entries.
type mockOutboxStore struct {
	entries []outboxDomain.Entry
	saveErr error
}

var _ outboxStore.Store = (*mockOutboxStore)(nil)

func (m *mockOutboxStore) GetByID(_ context.Context, id string) (outboxDomain.Entry, error) {
	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return outboxDomain.Entry{}, errNotFound
}

func (m *mockOutboxStore) Save(_ context.Context, e outboxDomain.Entry) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	for i := range m.entries {
		if m.entries[i].ID == e.ID {
			m.entries[i] = e
			return nil
		}
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockOutboxStore) ListPending(_ context.Context, limit int) ([]outboxDomain.Entry, error) {
	var out []outboxDomain.Entry
	for _, e := range m.entries {
		if e.Status == outboxDomain.StatusPending || e.Status == outboxDomain.StatusRetrying {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockOutboxStore) ListFailed(_ context.Context, limit int) ([]outboxDomain.Entry, error) {
	var out []outboxDomain.Entry
	for _, e := range m.entries {
		if e.Status == outboxDomain.StatusFailed {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockOutboxStore) ListByActionType(_ context.Context, actionType string, status string, limit int) ([]outboxDomain.Entry, error) {
	var out []outboxDomain.Entry
	for _, e := range m.entries {
		if e.ActionType != actionType {
			continue
		}
		if status != "" && e.Status != status {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockOutboxStore) Delete(_ context.Context, id string) error {
	for i := range m.entries {
		if m.entries[i].ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

// completedRec builds a completed session row for tests.
func completedRec(mentor, student string, n int, date string) recordDomain.SessionRecord {
	d, _ := time.Parse(recordDomain.DateLayout, date)
	rec := recordDomain.SessionRecord{
		ID:            "rec-" + date,
		MentorName:    mentor,
		StudentName:   student,
		SessionDate:   d,
		SessionNumber: n,
		ProgressText:  "worked through recursion exercises",
		ExitTicketURL: "https://docs.google.com/document/d/abc",
		CreatedAt:     time.Now(),
	}
	rec.NormalizeKeys()
	return rec
}

// rosterEntry builds a roster entry whose timeline has the given completed
// session numbers marked.
func rosterEntry(mentor, student string, programLength int, completed ...int) recordstore.RosterEntry {
	tl, _ := timeline.New(programLength)
	tl.MentorName = mentor
	tl.StudentName = student
	for _, n := range completed {
		tl.Mark(n, time.Date(2026, 3, n, 0, 0, 0, 0, time.UTC), false)
	}
	return recordstore.RosterEntry{
		MentorName:  mentor,
		StudentName: student,
		MentorKey:   identity.MentorKey(mentor),
		StudentKey:  identity.StudentKey(student),
		Timeline:    tl,
	}
}
