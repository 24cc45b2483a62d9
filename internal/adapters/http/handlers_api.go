package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"mentorlog/internal/application/orchestrators"
	"mentorlog/internal/application/projections"
	"mentorlog/internal/domain/backfill"
	recordDomain "mentorlog/internal/domain/record"
	"mentorlog/internal/domain/timeline"
)

// apiStudentParams resolves the (mentor, student, programLength) triple every
// reconciliation endpoint needs. Writes the error response itself on failure.
func apiStudentParams(w http.ResponseWriter, r *http.Request) (mentor, student string, programLength int, ok bool) {
	mentor, okMentor := resolveMentorName(r, r.URL.Query().Get("mentor"))
	if !okMentor {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return "", "", 0, false
	}
	student = strings.TrimSpace(r.URL.Query().Get("student"))
	if student == "" {
		http.Error(w, "student is required", http.StatusBadRequest)
		return "", "", 0, false
	}
	programLength, okProgram := parseProgramLength(r.URL.Query().Get("program"))
	if !okProgram {
		http.Error(w, "program must be 10 or 25", http.StatusBadRequest)
		return "", "", 0, false
	}
	return mentor, student, programLength, true
}

// handleAPINextSession returns the next session number for one student.
// GET /api/next-session?student=...&program=...
func handleAPINextSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	mentor, student, programLength, ok := apiStudentParams(w, r)
	if !ok {
		return
	}

	next, err := projections.QueryNextSessionNumber(r.Context(), projections.NextSessionNumberQuery{
		MentorName:  mentor,
		StudentName: student,
	}, projections.NextSessionNumberDeps{RecordStore: stores.RecordStore})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"next_session_number": next,
		"program_length":      programLength,
	})
}

// holeView is the JSON shape of one hole.
type holeView struct {
	SessionNumber int    `json:"session_number"`
	MinDate       string `json:"min_date,omitempty"` // omitted when the hole is open below
	MaxDate       string `json:"max_date"`
}

func holeViews(holes []timeline.Hole) []holeView {
	out := make([]holeView, 0, len(holes))
	for _, h := range holes {
		v := holeView{
			SessionNumber: h.SessionNumber,
			MaxDate:       h.Range.Max.Format(recordDomain.DateLayout),
		}
		if !h.Range.OpenBelow() {
			v.MinDate = h.Range.Min.Format(recordDomain.DateLayout)
		}
		out = append(out, v)
	}
	return out
}

// handleAPIHoles returns the current hole list for one student.
// GET /api/holes?student=...&program=...
func handleAPIHoles(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	mentor, student, programLength, ok := apiStudentParams(w, r)
	if !ok {
		return
	}

	result, err := projections.QueryDetectHoles(r.Context(), projections.DetectHolesQuery{
		MentorName:    mentor,
		StudentName:   student,
		ProgramLength: programLength,
	}, projections.DetectHolesDeps{RecordStore: stores.RecordStore})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"holes":               holeViews(result.Holes),
		"has_holes":           result.HasHoles,
		"next_session_number": result.NextSessionNumber,
	})
}

// handleAPIGate reports whether a live submission may proceed.
// GET /api/gate?student=...&program=...
func handleAPIGate(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	mentor, student, programLength, ok := apiStudentParams(w, r)
	if !ok {
		return
	}

	decision, err := projections.QueryGateLiveSubmission(r.Context(), projections.GateLiveSubmissionQuery{
		MentorName:    mentor,
		StudentName:   student,
		ProgramLength: programLength,
	}, projections.GateLiveSubmissionDeps{RecordStore: stores.RecordStore})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"allowed":               decision.Allowed,
		"blocking_holes":        holeViews(decision.BlockingHoles),
		"session_limit_reached": decision.SessionLimitReached,
		"next_session_number":   decision.NextSessionNumber,
	})
}

// submissionBody is the JSON request shape shared by the live and backfill
// endpoints.
type submissionBody struct {
	Mentor         string            `json:"mentor,omitempty"` // coordinator only
	Student        string            `json:"student"`
	Program        int               `json:"program"`
	Session        int               `json:"session,omitempty"` // backfill only
	Date           string            `json:"date"`
	Unexcused      bool              `json:"unexcused,omitempty"`
	Progress       string            `json:"progress"`
	ExitTicket     string            `json:"exit_ticket"`
	SpecialAnswers map[string]string `json:"special_answers,omitempty"`
}

func (b submissionBody) parseDate() (time.Time, bool) {
	if strings.TrimSpace(b.Date) == "" {
		return time.Time{}, true
	}
	d, err := time.Parse(recordDomain.DateLayout, b.Date)
	return d, err == nil
}

// handleAPIValidateBackfill dry-runs backfill validation without appending.
// POST /api/backfill/validate
func handleAPIValidateBackfill(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body submissionBody
	if err := strictDecode(r, &body); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	mentor, ok := resolveMentorName(r, body.Mentor)
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	if !timeline.ValidProgramLength(body.Program) {
		http.Error(w, "program must be 10 or 25", http.StatusBadRequest)
		return
	}
	date, ok := body.parseDate()
	if !ok {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	holesResult, err := projections.QueryDetectHoles(r.Context(), projections.DetectHolesQuery{
		MentorName:    mentor,
		StudentName:   body.Student,
		ProgramLength: body.Program,
	}, projections.DetectHolesDeps{RecordStore: stores.RecordStore})
	if err != nil {
		internalError(w, err)
		return
	}

	hole, isHole := timeline.HolesResult{
		Holes: holesResult.Holes, NextSessionNumber: holesResult.NextSessionNumber, HasHoles: holesResult.HasHoles,
	}.HoleFor(body.Session)
	if !isHole {
		writeJSON(w, http.StatusOK, map[string]any{
			"valid":  false,
			"fields": map[string]string{"session": "that session is not an open hole"},
		})
		return
	}

	res := backfill.Validate(hole, body.Program, backfill.Candidate{
		Date:           date,
		ProgressText:   body.Progress,
		ExitTicketURL:  body.ExitTicket,
		SpecialAnswers: body.SpecialAnswers,
	}, requirementTable)

	writeJSON(w, http.StatusOK, map[string]any{
		"valid":  res.OK(),
		"fields": res.Fields,
	})
}

// handleAPILiveSession records the next live session.
// POST /api/sessions
func handleAPILiveSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body submissionBody
	if err := strictDecode(r, &body); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	mentor, ok := resolveMentorName(r, body.Mentor)
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	date, ok := body.parseDate()
	if !ok {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	input := orchestrators.RecordLiveSessionInput{
		MentorName:     mentor,
		StudentName:    strings.TrimSpace(body.Student),
		ProgramLength:  body.Program,
		Date:           date,
		Unexcused:      body.Unexcused,
		ProgressText:   body.Progress,
		ExitTicketURL:  body.ExitTicket,
		SpecialAnswers: body.SpecialAnswers,
	}
	deps := orchestrators.RecordLiveSessionDeps{
		RecordStore:  stores.RecordStore,
		Cache:        stores.RecordCache,
		Requirements: requirementTable,
	}
	result, err := orchestrators.ExecuteRecordLiveSession(r.Context(), input, deps)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, map[string]any{
			"record_id":           result.RecordID,
			"session_number":      result.SessionNumber,
			"next_session_number": result.NextSessionNumber,
		})
	case errors.Is(err, orchestrators.ErrHolesBlocking):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":          "holes_blocking",
			"blocking_holes": holeViews(result.Gate.BlockingHoles),
		})
	case errors.Is(err, orchestrators.ErrSessionLimitReached):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": "session_limit_reached",
		})
	case errors.Is(err, orchestrators.ErrContentRejected):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation_failed",
			"fields": result.Validation.Fields,
		})
	case errors.Is(err, orchestrators.ErrInvalidProgramLength):
		http.Error(w, "program must be 10 or 25", http.StatusBadRequest)
	default:
		internalError(w, err)
	}
}

// handleAPIBackfillSession fills one hole.
// POST /api/sessions/backfill
func handleAPIBackfillSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body submissionBody
	if err := strictDecode(r, &body); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	mentor, ok := resolveMentorName(r, body.Mentor)
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	if !timeline.ValidProgramLength(body.Program) {
		http.Error(w, "program must be 10 or 25", http.StatusBadRequest)
		return
	}
	date, ok := body.parseDate()
	if !ok {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	input := orchestrators.BackfillSessionInput{
		MentorName:     mentor,
		StudentName:    strings.TrimSpace(body.Student),
		ProgramLength:  body.Program,
		SessionNumber:  body.Session,
		Date:           date,
		ProgressText:   body.Progress,
		ExitTicketURL:  body.ExitTicket,
		SpecialAnswers: body.SpecialAnswers,
	}
	deps := orchestrators.BackfillSessionDeps{
		RecordStore:  stores.RecordStore,
		Cache:        stores.RecordCache,
		Requirements: requirementTable,
	}
	result, err := orchestrators.ExecuteBackfillSession(r.Context(), input, deps)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, map[string]any{
			"record_id":       result.RecordID,
			"remaining_holes": result.RemainingHoles,
		})
	case errors.Is(err, orchestrators.ErrHoleNotFound):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": "not_a_hole",
		})
	case errors.Is(err, orchestrators.ErrContentRejected):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation_failed",
			"fields": result.Validation.Fields,
		})
	default:
		internalError(w, err)
	}
}
