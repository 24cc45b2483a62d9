package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"mentorlog/internal/adapters/http/middleware"
	"mentorlog/internal/application/listutil"
	"mentorlog/internal/application/orchestrators"
	"mentorlog/internal/application/projections"
	accountDomain "mentorlog/internal/domain/account"
	recordDomain "mentorlog/internal/domain/record"
	"mentorlog/internal/domain/timeline"
)

// timeNow is a variable for testability.
var timeNow = time.Now

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set), preventing XSS.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	if errors.Is(err, recordDomain.ErrStoreUnavailable) {
		slog.Error("store_unavailable", "error", err.Error())
		http.Error(w, "attendance history is unavailable right now; try again shortly", http.StatusServiceUnavailable)
		return
	}
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

const templatesDir = "internal/adapters/http/templates"

func isHTMLRequest(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") || strings.Contains(accept, "application/xhtml+xml")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data any) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	role := ""
	email := ""
	mentorName := ""
	if ok {
		role = sess.Role
		email = sess.Email
		mentorName = sess.MentorName
	}

	funcMap := template.FuncMap{
		"currentRole":       func() string { return role },
		"currentEmail":      func() string { return email },
		"currentMentorName": func() string { return mentorName },
		"isLoggedIn":        func() bool { return role != "" },
		"isCoordinator":     func() bool { return role == accountDomain.RoleCoordinator },
		"csrfToken":         func() string { return csrf.Token(r) },
		"add":               func(a, b int) int { return a + b },
		"sub":               func(a, b int) int { return a - b },
		"renderMarkdown": func(md string) template.HTML {
			var buf bytes.Buffer
			if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
				return template.HTML(template.HTMLEscapeString(md))
			}
			return template.HTML(buf.String())
		},
	}

	layoutPath := filepath.Join(templatesDir, "layout.html")
	pagePath := filepath.Join(templatesDir, templateName)
	tpl, err := template.New("layout.html").Funcs(funcMap).ParseFiles(layoutPath, pagePath)
	if err != nil {
		http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tpl.Execute(w, data); err != nil {
		http.Error(w, "Render error: "+err.Error(), http.StatusInternalServerError)
	}
}

// resolveMentorName returns the mentor identity a request acts for. Mentors
// are bound to their own name; coordinators may act for any mentor via the
// "mentor" parameter.
func resolveMentorName(r *http.Request, param string) (string, bool) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		return "", false
	}
	if sess.Role == accountDomain.RoleCoordinator {
		if param != "" {
			return param, true
		}
		return "", false
	}
	if sess.MentorName == "" {
		return "", false
	}
	return sess.MentorName, true
}

func parseProgramLength(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || !timeline.ValidProgramLength(n) {
		return 0, false
	}
	return n, true
}

func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", handleIndex)
	mux.HandleFunc("/login", handleLogin)
	mux.HandleFunc("/logout", handleLogout)
	mux.HandleFunc("/change-password", handleChangePassword)
	mux.HandleFunc("/dashboard", handleDashboard)
	mux.HandleFunc("/students/timeline", handleStudentTimeline)
	mux.HandleFunc("/sessions/live", handleLiveSubmit)
	mux.HandleFunc("/sessions/backfill", handleBackfillSubmit)

	mux.HandleFunc("/api/next-session", handleAPINextSession)
	mux.HandleFunc("/api/holes", handleAPIHoles)
	mux.HandleFunc("/api/gate", handleAPIGate)
	mux.HandleFunc("/api/backfill/validate", handleAPIValidateBackfill)
	mux.HandleFunc("/api/sessions", handleAPILiveSession)
	mux.HandleFunc("/api/sessions/backfill", handleAPIBackfillSession)

	mux.HandleFunc("/admin/outbox", handleAdminOutbox)
	mux.HandleFunc("/admin/outbox/", handleAdminOutbox)
	mux.HandleFunc("/admin/reminders/run", handleAdminRunReminders)
}

func handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if _, ok := middleware.GetSessionFromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		renderTemplate(w, r, "login.html", map[string]any{})
	case "POST":
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		input := orchestrators.LoginInput{
			Email:    strings.TrimSpace(r.FormValue("email")),
			Password: r.FormValue("password"),
		}
		result, err := orchestrators.ExecuteLogin(r.Context(), input, orchestrators.LoginDeps{
			AccountStore: stores.AccountStore,
		})
		if err != nil {
			msg := "Invalid email or password."
			if errors.Is(err, orchestrators.ErrAccountLocked) {
				msg = "Account locked after too many failed attempts. Try again later."
			}
			renderTemplate(w, r, "login.html", map[string]any{"Error": msg, "Email": input.Email})
			return
		}

		token, err := sessions.Create(result.AccountID, result.Email, result.Role, result.MentorName)
		if err != nil {
			internalError(w, err)
			return
		}
		middleware.SetSessionCookie(w, token)

		if result.PasswordChangeRequired {
			http.Redirect(w, r, "/change-password", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if cookie, err := r.Cookie("mentorlog_session"); err == nil {
		sessions.Delete(cookie.Value)
	}
	middleware.ClearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func handleChangePassword(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	switch r.Method {
	case "GET":
		renderTemplate(w, r, "change_password.html", map[string]any{})
	case "POST":
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		input := orchestrators.ChangePasswordInput{
			AccountID:       sess.AccountID,
			CurrentPassword: r.FormValue("current_password"),
			NewPassword:     r.FormValue("new_password"),
		}
		deps := orchestrators.ChangePasswordDeps{AccountStore: stores.AccountStore}
		if err := orchestrators.ExecuteChangePassword(r.Context(), input, deps); err != nil {
			renderTemplate(w, r, "change_password.html", map[string]any{"Error": err.Error()})
			return
		}
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleDashboard shows one mentor's students with completed counts and
// outstanding holes.
func handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	mentorName, ok := resolveMentorName(r, r.URL.Query().Get("mentor"))
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	programLength := timeline.ProgramShort
	if n, ok := parseProgramLength(r.URL.Query().Get("program")); ok {
		programLength = n
	}

	result, err := projections.QueryMentorOverview(r.Context(), projections.MentorOverviewQuery{
		MentorName:    mentorName,
		ProgramLength: programLength,
	}, projections.MentorOverviewDeps{RecordStore: stores.RecordStore})
	if err != nil {
		internalError(w, err)
		return
	}

	lp := listutil.ParseListParams(r.URL.Query(), []string{"name"}, nil)
	pageInfo := listutil.NewPageInfo(lp.Page, lp.PerPage, len(result.Students))
	start := pageInfo.Offset()
	end := start + lp.PerPage
	if start > len(result.Students) {
		start = len(result.Students)
	}
	if end > len(result.Students) {
		end = len(result.Students)
	}

	renderTemplate(w, r, "dashboard.html", map[string]any{
		"MentorName":    result.MentorName,
		"ProgramLength": programLength,
		"Students":      result.Students[start:end],
		"PageInfo":      pageInfo,
	})
}

// handleStudentTimeline renders the session grid for one student, with a
// backfill form on each hole.
func handleStudentTimeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	mentorName, ok := resolveMentorName(r, r.URL.Query().Get("mentor"))
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	studentName := strings.TrimSpace(r.URL.Query().Get("student"))
	if studentName == "" {
		http.Error(w, "student is required", http.StatusBadRequest)
		return
	}
	programLength, ok := parseProgramLength(r.URL.Query().Get("program"))
	if !ok {
		http.Error(w, "program must be 10 or 25", http.StatusBadRequest)
		return
	}

	result, err := projections.QueryStudentTimeline(r.Context(), projections.StudentTimelineQuery{
		MentorName:    mentorName,
		StudentName:   studentName,
		ProgramLength: programLength,
	}, projections.StudentTimelineDeps{RecordStore: stores.RecordStore})
	if err != nil {
		internalError(w, err)
		return
	}

	specialFields := requirementTable.RequiredFor(programLength, result.NextSessionNumber)

	renderTemplate(w, r, "timeline.html", map[string]any{
		"Timeline":      result,
		"SpecialFields": specialFields,
		"Today":         timeNow().Format(recordDomain.DateLayout),
	})
}

// liveInputFromForm builds the orchestrator input from a submitted form.
func liveInputFromForm(r *http.Request, mentorName string, programLength int) orchestrators.RecordLiveSessionInput {
	date, _ := time.Parse(recordDomain.DateLayout, r.FormValue("date"))
	input := orchestrators.RecordLiveSessionInput{
		MentorName:    mentorName,
		StudentName:   strings.TrimSpace(r.FormValue("student")),
		ProgramLength: programLength,
		Date:          date,
		Unexcused:     r.FormValue("unexcused") == "on" || r.FormValue("unexcused") == "true",
		ProgressText:  r.FormValue("progress"),
		ExitTicketURL: strings.TrimSpace(r.FormValue("exit_ticket")),
	}
	for key, values := range r.Form {
		if name, ok := strings.CutPrefix(key, "sq_"); ok && len(values) > 0 {
			if input.SpecialAnswers == nil {
				input.SpecialAnswers = map[string]string{}
			}
			input.SpecialAnswers[name] = values[0]
		}
	}
	return input
}

func timelineURL(input orchestrators.RecordLiveSessionInput) string {
	return "/students/timeline?student=" + url.QueryEscape(input.StudentName) +
		"&program=" + strconv.Itoa(input.ProgramLength)
}

// handleLiveSubmit records the next live session from the timeline form.
func handleLiveSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	mentorName, ok := resolveMentorName(r, r.FormValue("mentor"))
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	programLength, ok := parseProgramLength(r.FormValue("program"))
	if !ok {
		http.Error(w, "program must be 10 or 25", http.StatusBadRequest)
		return
	}

	input := liveInputFromForm(r, mentorName, programLength)
	deps := orchestrators.RecordLiveSessionDeps{
		RecordStore:  stores.RecordStore,
		Cache:        stores.RecordCache,
		Requirements: requirementTable,
	}
	result, err := orchestrators.ExecuteRecordLiveSession(r.Context(), input, deps)
	switch {
	case err == nil:
		http.Redirect(w, r, timelineURL(input), http.StatusSeeOther)
	case errors.Is(err, orchestrators.ErrHolesBlocking),
		errors.Is(err, orchestrators.ErrSessionLimitReached),
		errors.Is(err, orchestrators.ErrContentRejected):
		renderSubmitRejection(w, r, input, result, err)
	default:
		internalError(w, err)
	}
}

// renderSubmitRejection re-renders the timeline with the rejection reasons.
func renderSubmitRejection(w http.ResponseWriter, r *http.Request, input orchestrators.RecordLiveSessionInput, result orchestrators.RecordLiveSessionResult, cause error) {
	tlResult, err := projections.QueryStudentTimeline(r.Context(), projections.StudentTimelineQuery{
		MentorName:    input.MentorName,
		StudentName:   input.StudentName,
		ProgramLength: input.ProgramLength,
	}, projections.StudentTimelineDeps{RecordStore: stores.RecordStore})
	if err != nil {
		internalError(w, err)
		return
	}

	message := ""
	switch {
	case errors.Is(cause, orchestrators.ErrHolesBlocking):
		message = "Earlier sessions are missing. Backfill them before logging a new session."
	case errors.Is(cause, orchestrators.ErrSessionLimitReached):
		message = "Every session in this program has already been logged."
	case errors.Is(cause, orchestrators.ErrContentRejected):
		message = "The submission was rejected. Fix the fields below and resubmit."
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusUnprocessableEntity)
	renderTemplate(w, r, "timeline.html", map[string]any{
		"Timeline":      tlResult,
		"SpecialFields": requirementTable.RequiredFor(input.ProgramLength, tlResult.NextSessionNumber),
		"Today":         timeNow().Format(recordDomain.DateLayout),
		"Error":         message,
		"FieldErrors":   result.Validation.Fields,
	})
}

// handleBackfillSubmit fills one hole from the timeline form.
func handleBackfillSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	mentorName, ok := resolveMentorName(r, r.FormValue("mentor"))
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	programLength, ok := parseProgramLength(r.FormValue("program"))
	if !ok {
		http.Error(w, "program must be 10 or 25", http.StatusBadRequest)
		return
	}
	sessionNumber, err := strconv.Atoi(r.FormValue("session"))
	if err != nil || sessionNumber < 1 {
		http.Error(w, "session number is required", http.StatusBadRequest)
		return
	}

	live := liveInputFromForm(r, mentorName, programLength)
	input := orchestrators.BackfillSessionInput{
		MentorName:     live.MentorName,
		StudentName:    live.StudentName,
		ProgramLength:  live.ProgramLength,
		SessionNumber:  sessionNumber,
		Date:           live.Date,
		ProgressText:   live.ProgressText,
		ExitTicketURL:  live.ExitTicketURL,
		SpecialAnswers: live.SpecialAnswers,
	}
	deps := orchestrators.BackfillSessionDeps{
		RecordStore:  stores.RecordStore,
		Cache:        stores.RecordCache,
		Requirements: requirementTable,
	}
	result, err := orchestrators.ExecuteBackfillSession(r.Context(), input, deps)
	switch {
	case err == nil:
		http.Redirect(w, r, timelineURL(live), http.StatusSeeOther)
	case errors.Is(err, orchestrators.ErrHoleNotFound):
		http.Error(w, "that session is not an open hole", http.StatusConflict)
	case errors.Is(err, orchestrators.ErrContentRejected):
		liveResult := orchestrators.RecordLiveSessionResult{Validation: result.Validation}
		renderSubmitRejection(w, r, live, liveResult, err)
	default:
		internalError(w, err)
	}
}

// handleAdminRunReminders triggers a reminder sweep (coordinator only).
func handleAdminRunReminders(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !middleware.IsCoordinator(r.Context()) {
		http.Error(w, "coordinator required", http.StatusForbidden)
		return
	}

	result, err := orchestrators.ExecuteRemindHoles(r.Context(), orchestrators.RemindHolesDeps{
		RecordStore:  stores.RecordStore,
		AccountStore: stores.AccountStore,
		OutboxStore:  stores.OutboxStore,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"mentors_with_holes": result.MentorsWithHoles,
		"reminders_queued":   result.RemindersQueued,
	})
}
