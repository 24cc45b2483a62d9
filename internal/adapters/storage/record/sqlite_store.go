package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"mentorlog/internal/adapters/storage"
	"mentorlog/internal/domain/identity"
	domain "mentorlog/internal/domain/record"
	"mentorlog/internal/domain/timeline"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new record store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const recordColumns = "id, mentor_name, student_name, mentor_key, student_key, session_date, session_number, unexcused, progress_text, exit_ticket_url, special_answers, created_at"

// Append adds one attendance row.
// PRE: rec has been validated; keys are normalized via NormalizeKeys
// POST: Row is inserted; rows are never updated or deleted
func (s *SQLiteStore) Append(ctx context.Context, rec domain.SessionRecord) error {
	answers, err := json.Marshal(rec.SpecialAnswers)
	if err != nil {
		return fmt.Errorf("marshal special answers: %w", err)
	}
	if rec.SpecialAnswers == nil {
		answers = []byte("{}")
	}

	query := fmt.Sprintf("INSERT INTO attendance_record (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", recordColumns)
	_, err = s.db.ExecContext(ctx, query,
		rec.ID,
		rec.MentorName,
		rec.StudentName,
		string(rec.MentorKey),
		string(rec.StudentKey),
		rec.SessionDate.Format(domain.DateLayout),
		rec.SessionNumber,
		boolToInt(rec.Unexcused),
		rec.ProgressText,
		rec.ExitTicketURL,
		string(answers),
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("%w: append: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// ListByKeys returns rows matching the normalized key pair.
func (s *SQLiteStore) ListByKeys(ctx context.Context, mentorKey, studentKey identity.Key) ([]domain.SessionRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM attendance_record WHERE mentor_key = ? AND student_key = ? ORDER BY session_number, session_date", recordColumns)
	rows, err := s.db.QueryContext(ctx, query, string(mentorKey), string(studentKey))
	if err != nil {
		return nil, fmt.Errorf("%w: list by keys: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListByMentorKey returns all rows for one mentor.
func (s *SQLiteStore) ListByMentorKey(ctx context.Context, mentorKey identity.Key) ([]domain.SessionRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM attendance_record WHERE mentor_key = ? ORDER BY student_key, session_number", recordColumns)
	rows, err := s.db.QueryContext(ctx, query, string(mentorKey))
	if err != nil {
		return nil, fmt.Errorf("%w: list by mentor: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListAll returns every row.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]domain.SessionRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM attendance_record ORDER BY mentor_key, student_key, session_number", recordColumns)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: list all: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Roster rebuilds one timeline per (mentor, student) pair from the full row
// history. Rows with out-of-range session numbers are skipped by Mark; rows
// with unparseable dates become completed-without-date slots, which hole
// detection treats as not completed.
func (s *SQLiteStore) Roster(ctx context.Context, programLength int) ([]RosterEntry, error) {
	records, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	type pair struct{ mentor, student identity.Key }
	entries := map[pair]*RosterEntry{}
	for _, rec := range records {
		p := pair{rec.MentorKey, rec.StudentKey}
		e, ok := entries[p]
		if !ok {
			tl, err := timeline.New(programLength)
			if err != nil {
				return nil, err
			}
			e = &RosterEntry{
				MentorName:  rec.MentorName,
				StudentName: rec.StudentName,
				MentorKey:   rec.MentorKey,
				StudentKey:  rec.StudentKey,
				Timeline:    tl,
			}
			entries[p] = e
		}
		if rec.HasSessionNumber() {
			e.Timeline.Mark(rec.SessionNumber, rec.SessionDate, rec.Unexcused)
		}
	}

	out := make([]RosterEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MentorKey != out[j].MentorKey {
			return out[i].MentorKey < out[j].MentorKey
		}
		return out[i].StudentKey < out[j].StudentKey
	})
	return out, nil
}

// scanRecords reads all rows into SessionRecords. A row whose session date
// does not parse is kept with a zero date and logged, never fatal.
func scanRecords(rows *sql.Rows) ([]domain.SessionRecord, error) {
	var out []domain.SessionRecord
	for rows.Next() {
		var (
			rec        domain.SessionRecord
			mentorKey  string
			studentKey string
			dateStr    string
			unexcused  int
			answers    string
			createdAt  string
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.MentorName,
			&rec.StudentName,
			&mentorKey,
			&studentKey,
			&dateStr,
			&rec.SessionNumber,
			&unexcused,
			&rec.ProgressText,
			&rec.ExitTicketURL,
			&answers,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", domain.ErrStoreUnavailable, err)
		}
		rec.MentorKey = identity.Key(mentorKey)
		rec.StudentKey = identity.Key(studentKey)
		rec.Unexcused = unexcused != 0

		if d, err := time.Parse(domain.DateLayout, dateStr); err == nil {
			rec.SessionDate = d
		} else {
			slog.Warn("record_bad_date", "record_id", rec.ID, "session_date", dateStr)
		}
		if created, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			rec.CreatedAt = created
		}
		if answers != "" && answers != "{}" {
			if err := json.Unmarshal([]byte(answers), &rec.SpecialAnswers); err != nil {
				slog.Warn("record_bad_answers", "record_id", rec.ID)
			}
		}

		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", domain.ErrStoreUnavailable, err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
