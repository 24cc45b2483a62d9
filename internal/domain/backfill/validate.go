// Package backfill validates candidate submissions against a hole's date
// constraints and the shared content-quality rules. Validation is pure: the
// caller appends to the record store on success.
package backfill

import (
	"fmt"
	"strings"
	"time"

	"mentorlog/internal/domain/content"
	"mentorlog/internal/domain/requirements"
	"mentorlog/internal/domain/timeline"
)

// Candidate is a proposed submission for a hole or a live session.
type Candidate struct {
	Date           time.Time
	ProgressText   string
	ExitTicketURL  string
	SpecialAnswers map[string]string
}

// Result maps field names to human-readable rejection reasons. An empty map
// means the candidate is acceptable.
type Result struct {
	Fields map[string]string
}

// OK reports whether validation passed.
func (r Result) OK() bool {
	return len(r.Fields) == 0
}

func (r *Result) reject(field, reason string) {
	if r.Fields == nil {
		r.Fields = map[string]string{}
	}
	r.Fields[field] = reason
}

// Validate checks a backfill candidate against the hole's date range and the
// content rules for the given program length.
// PRE: hole came from a fresh FindHoles derivation
// POST: Returns per-field reasons; no side effects
func Validate(hole timeline.Hole, programLength int, c Candidate, reqs requirements.Table) Result {
	var res Result

	if c.Date.IsZero() {
		res.reject("date", "a session date is required")
	} else if !hole.Range.Contains(c.Date) {
		if hole.Range.OpenBelow() {
			res.reject("date", fmt.Sprintf("date must be on or before %s", hole.Range.Max.Format("2006-01-02")))
		} else {
			res.reject("date", fmt.Sprintf("date must fall between %s and %s",
				hole.Range.Min.Format("2006-01-02"), hole.Range.Max.Format("2006-01-02")))
		}
	}

	ValidateContent(c, programLength, hole.SessionNumber, reqs, &res)
	return res
}

// ValidateContent applies the content-quality rules shared by backfill and
// the live submission path: progress text, exit ticket URL, and the special
// answers required for (programLength, sessionNumber).
func ValidateContent(c Candidate, programLength, sessionNumber int, reqs requirements.Table, res *Result) {
	progress := strings.TrimSpace(c.ProgressText)
	switch {
	case progress == "":
		res.reject("progressText", "progress notes are required")
	case content.IsPlaceholderText(progress):
		res.reject("progressText", "progress notes must describe what was covered, not a placeholder")
	}

	if strings.TrimSpace(c.ExitTicketURL) == "" {
		res.reject("exitTicketUrl", "an exit ticket link is required")
	} else if !content.IsAcceptableDocURL(c.ExitTicketURL) {
		res.reject("exitTicketUrl", fmt.Sprintf("exit ticket must be a %s document or spreadsheet link", content.DocHost))
	}

	for _, f := range reqs.RequiredFor(programLength, sessionNumber) {
		answer := strings.TrimSpace(c.SpecialAnswers[f.Key])
		if answer == "" {
			res.reject(f.Key, fmt.Sprintf("%s is required for session %d", f.Label, sessionNumber))
			continue
		}
		if f.MinChars > 0 && content.NonWhitespaceLen(answer) < f.MinChars {
			res.reject(f.Key, fmt.Sprintf("%s needs at least %d characters", f.Label, f.MinChars))
		}
	}
}
