package browser_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/google/uuid"

	recordDomain "mentorlog/internal/domain/record"
)

// TestLiveSessionFlow logs in as a mentor, records the first two sessions for
// a new student, and checks the timeline grid updates after each submission.
func TestLiveSessionFlow(t *testing.T) {
	app := newTestApp(t)
	page := app.newPage(t)
	app.loginMentor(t, page)

	timelineURL := app.BaseURL + "/students/timeline?student=Ada+Smith&program=10"
	if _, err := page.Goto(timelineURL); err != nil {
		t.Fatalf("failed to open timeline: %v", err)
	}

	// Fresh student: session 1 is open for logging
	heading := page.Locator("section.live-form h2")
	text, err := heading.TextContent()
	if err != nil {
		t.Fatalf("live form heading missing: %v", err)
	}
	if !strings.Contains(text, "Log session 1") {
		t.Fatalf("expected live form for session 1, got %q", text)
	}

	fillLiveForm(t, page, "Reviewed place value and practiced two-digit addition together.")
	if err := page.Locator("section.live-form button[type=submit]").Click(); err != nil {
		t.Fatalf("failed to submit live form: %v", err)
	}
	waitForTimeline(t, page, app.BaseURL)

	// Row 1 is now completed and session 2 is open
	row := page.Locator("table.timeline tbody tr").First()
	rowText, err := row.TextContent()
	if err != nil {
		t.Fatalf("failed to read first row: %v", err)
	}
	if !strings.Contains(rowText, "completed") {
		t.Fatalf("expected session 1 completed, got %q", rowText)
	}

	// Session 2 requires the project topic answer; submitting without it is
	// rejected with a field error.
	fillLiveForm(t, page, "Started exploring multiplication tables and skip counting.")
	if err := page.Locator("section.live-form button[type=submit]").Click(); err != nil {
		t.Fatalf("failed to submit live form: %v", err)
	}
	if err := page.Locator("span.field-error").First().WaitFor(playwright.LocatorWaitForOptions{
		Timeout: playwright.Float(5000),
	}); err != nil {
		t.Fatalf("expected a field error for the missing project topic: %v", err)
	}

	// Filling the project topic lets the submission through
	fillLiveForm(t, page, "Started exploring multiplication tables and skip counting.")
	if err := page.Locator("input[name=sq_projectTopic]").Fill("Build a times-table quiz game"); err != nil {
		t.Fatalf("failed to fill project topic: %v", err)
	}
	if err := page.Locator("section.live-form button[type=submit]").Click(); err != nil {
		t.Fatalf("failed to submit live form: %v", err)
	}
	waitForTimeline(t, page, app.BaseURL)

	text, err = page.Locator("section.live-form h2").TextContent()
	if err != nil {
		t.Fatalf("live form heading missing after session 2: %v", err)
	}
	if !strings.Contains(text, "Log session 3") {
		t.Fatalf("expected live form for session 3, got %q", text)
	}
}

// TestBackfillFlow seeds a gapped history directly in the store and backfills
// the missing session through the timeline page.
func TestBackfillFlow(t *testing.T) {
	app := newTestApp(t)

	// Sessions 1 and 3 exist, session 2 is a hole
	seedRecord(t, app, "Jane Doe", "Grace Ng", 1, "2026-03-02")
	seedRecord(t, app, "Jane Doe", "Grace Ng", 3, "2026-03-16")

	page := app.newPage(t)
	app.loginMentor(t, page)

	timelineURL := app.BaseURL + "/students/timeline?student=Grace+Ng&program=10"
	if _, err := page.Goto(timelineURL); err != nil {
		t.Fatalf("failed to open timeline: %v", err)
	}

	// Live logging is blocked while the hole is outstanding
	blocked := page.Locator("p.blocked")
	if err := blocked.WaitFor(playwright.LocatorWaitForOptions{Timeout: playwright.Float(5000)}); err != nil {
		t.Fatalf("expected live logging to be blocked: %v", err)
	}

	// Open the backfill form and fill the missing session
	if err := page.Locator("tr.backfill-row summary").Click(); err != nil {
		t.Fatalf("failed to open backfill form: %v", err)
	}
	form := page.Locator("tr.backfill-row form")
	if err := form.Locator("input[name=date]").Fill("2026-03-09"); err != nil {
		t.Fatalf("failed to fill backfill date: %v", err)
	}
	if err := form.Locator("textarea[name=progress]").Fill("Caught up on the fractions worksheet from the missed week."); err != nil {
		t.Fatalf("failed to fill backfill progress: %v", err)
	}
	if err := form.Locator("input[name=exit_ticket]").Fill("https://docs.google.com/document/d/backfill-grace-2"); err != nil {
		t.Fatalf("failed to fill backfill exit ticket: %v", err)
	}
	if err := form.Locator("button[type=submit]").Click(); err != nil {
		t.Fatalf("failed to submit backfill: %v", err)
	}
	waitForTimeline(t, page, app.BaseURL)

	// The hole is gone and live logging reopens at session 4
	if n, err := page.Locator("tr.backfill-row").Count(); err != nil || n != 0 {
		t.Fatalf("expected no remaining backfill rows, got %d (err %v)", n, err)
	}
	text, err := page.Locator("section.live-form h2").TextContent()
	if err != nil {
		t.Fatalf("live form heading missing after backfill: %v", err)
	}
	if !strings.Contains(text, "Log session 4") {
		t.Fatalf("expected live form for session 4, got %q", text)
	}
}

// fillLiveForm fills the always-required live submission fields.
func fillLiveForm(t *testing.T, page playwright.Page, progress string) {
	t.Helper()
	form := page.Locator("section.live-form form")
	if err := form.Locator("textarea[name=progress]").Fill(progress); err != nil {
		t.Fatalf("failed to fill progress: %v", err)
	}
	ticket := fmt.Sprintf("https://docs.google.com/document/d/ticket-%d", time.Now().UnixNano())
	if err := form.Locator("input[name=exit_ticket]").Fill(ticket); err != nil {
		t.Fatalf("failed to fill exit ticket: %v", err)
	}
}

// waitForTimeline waits for the post-submit redirect back to the timeline page.
func waitForTimeline(t *testing.T, page playwright.Page, baseURL string) {
	t.Helper()
	if err := page.WaitForURL(baseURL+"/students/timeline**", playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		t.Fatalf("expected redirect back to timeline: %v", err)
	}
}

// seedRecord appends a completed session row directly through the store.
func seedRecord(t *testing.T, app *testApp, mentor, student string, session int, date string) {
	t.Helper()
	d, err := time.Parse(recordDomain.DateLayout, date)
	if err != nil {
		t.Fatalf("bad seed date %q: %v", date, err)
	}
	rec := recordDomain.SessionRecord{
		ID:            uuid.NewString(),
		MentorName:    mentor,
		StudentName:   student,
		SessionDate:   d,
		SessionNumber: session,
		ProgressText:  "Worked through the planned exercises for the week.",
		ExitTicketURL: fmt.Sprintf("https://docs.google.com/document/d/seed-%d", session),
		CreatedAt:     time.Now().UTC(),
	}
	rec.NormalizeKeys()
	if err := app.Stores.RecordStore.Append(context.Background(), rec); err != nil {
		t.Fatalf("failed to seed record: %v", err)
	}
}
