package orchestrators

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	accountStore "mentorlog/internal/adapters/storage/account"
	outboxStore "mentorlog/internal/adapters/storage/outbox"
	recordstore "mentorlog/internal/adapters/storage/record"
	"mentorlog/internal/domain/account"
	"mentorlog/internal/domain/identity"
	"mentorlog/internal/domain/outbox"
	"mentorlog/internal/domain/timeline"
)

// RemindHolesDeps holds dependencies for the reminder sweep.
type RemindHolesDeps struct {
	RecordStore  recordstore.Store
	AccountStore accountStore.Store
	OutboxStore  outboxStore.Store
}

// RemindHolesResult summarizes one sweep.
type RemindHolesResult struct {
	MentorsWithHoles int
	RemindersQueued  int
}

// HoleReminderPayload is the queued JSON body for one mentor's reminder email.
type HoleReminderPayload struct {
	To       string                `json:"to"`
	Mentor   string                `json:"mentor"`
	Students []StudentHolesSummary `json:"students"`
}

// StudentHolesSummary lists one student's missing session numbers.
type StudentHolesSummary struct {
	StudentName    string `json:"student_name"`
	SessionNumbers []int  `json:"session_numbers"`
}

// ExecuteRemindHoles scans every mentor's roster for unfilled sessions and
// queues one reminder per mentor with outstanding holes. Delivery goes
// through the outbox so a mail outage never loses a reminder.
// POST: At most one entry queued per mentor per sweep; mentors without an
// account email are logged and skipped
func ExecuteRemindHoles(ctx context.Context, deps RemindHolesDeps) (RemindHolesResult, error) {
	// Hole detection only looks below each student's highest completed slot,
	// so the long grid also covers short-program students exactly.
	entries, err := deps.RecordStore.Roster(ctx, timeline.ProgramLong)
	if err != nil {
		return RemindHolesResult{}, fmt.Errorf("derive roster: %w", err)
	}

	// Group outstanding holes per mentor key.
	byMentor := map[identity.Key]*HoleReminderPayload{}
	for _, entry := range entries {
		res := entry.Timeline.FindHoles()
		if !res.HasHoles {
			continue
		}
		numbers := make([]int, 0, len(res.Holes))
		for _, h := range res.Holes {
			numbers = append(numbers, h.SessionNumber)
		}
		p, ok := byMentor[entry.MentorKey]
		if !ok {
			p = &HoleReminderPayload{Mentor: entry.MentorName}
			byMentor[entry.MentorKey] = p
		}
		p.Students = append(p.Students, StudentHolesSummary{
			StudentName:    entry.StudentName,
			SessionNumbers: numbers,
		})
	}

	result := RemindHolesResult{MentorsWithHoles: len(byMentor)}
	if len(byMentor) == 0 {
		return result, nil
	}

	emails, err := mentorEmails(ctx, deps.AccountStore)
	if err != nil {
		return result, fmt.Errorf("list mentor accounts: %w", err)
	}

	for key, payload := range byMentor {
		to, ok := emails[key]
		if !ok {
			slog.Warn("reminder_event", "event", "mentor_unreachable", "mentor", payload.Mentor)
			continue
		}
		payload.To = to
		sort.Slice(payload.Students, func(i, j int) bool {
			return payload.Students[i].StudentName < payload.Students[j].StudentName
		})

		body, err := json.Marshal(payload)
		if err != nil {
			return result, fmt.Errorf("marshal reminder payload: %w", err)
		}
		entry := outbox.Entry{
			ID:          uuid.NewString(),
			ActionType:  outbox.ActionTypeHoleReminder,
			Payload:     string(body),
			Status:      outbox.StatusPending,
			MaxAttempts: 5,
			CreatedAt:   time.Now().UTC(),
		}
		if err := entry.Validate(); err != nil {
			return result, err
		}
		if err := deps.OutboxStore.Save(ctx, entry); err != nil {
			return result, fmt.Errorf("queue reminder: %w", err)
		}
		result.RemindersQueued++
		slog.Info("reminder_event", "event", "reminder_queued",
			"mentor", payload.Mentor, "students", len(payload.Students))
	}

	return result, nil
}

// mentorEmails maps normalized mentor keys to account emails.
func mentorEmails(ctx context.Context, store accountStore.Store) (map[identity.Key]string, error) {
	accounts, err := store.List(ctx, accountStore.ListFilter{Role: account.RoleMentor})
	if err != nil {
		return nil, err
	}
	out := make(map[identity.Key]string, len(accounts))
	for _, acct := range accounts {
		if strings.TrimSpace(acct.MentorName) == "" {
			continue
		}
		out[identity.MentorKey(acct.MentorName)] = acct.Email
	}
	return out, nil
}
