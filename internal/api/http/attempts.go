package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-lingua/internal/attempt"
	auth "github.com/mind-engage/mindengage-lingua/internal/auth/middleware"
	"github.com/mind-engage/mindengage-lingua/internal/grading"
	"github.com/mind-engage/mindengage-lingua/internal/logger"
)

// Attempts is the student-facing side of the attempt ledger.
type Attempts interface {
	Start(ctx context.Context, assessmentID, userID string) (attempt.Started, error)
	Submit(ctx context.Context, attemptID, userID string, answers grading.Answers) (attempt.GradedAttempt, error)
	ListForUser(ctx context.Context, userID string, opts attempt.ListOpts) ([]attempt.Attempt, error)
}

type Results interface {
	Assemble(ctx context.Context, attemptID, requesterID string) (attempt.ResultView, error)
}

// POST /assessments/{id}/start
func StartAttemptHandler(ledger Attempts, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := ledger.Start(r.Context(), chi.URLParam(r, "id"), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, s)
	}
}

// POST /attempts/{id}/submit  { "answers": { "<item or question id>": "..." } }
func SubmitAttemptHandler(ledger Attempts, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Answers grading.Answers `json:"answers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badJSON(w)
			return
		}
		g, err := ledger.Submit(r.Context(), chi.URLParam(r, "id"), auth.SubjectFromContext(r.Context()), req.Answers)
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

// GET /attempts/{id}/results
func ResultsHandler(results Results, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := results.Assemble(r.Context(), chi.URLParam(r, "id"), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// GET /attempts?assessment_id=...&status=active|completed&limit=50&offset=0
// Always scoped to the caller.
func ListMyAttemptsHandler(ledger Attempts, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		list, err := ledger.ListForUser(r.Context(), auth.SubjectFromContext(r.Context()), attempt.ListOpts{
			AssessmentID: strings.TrimSpace(q.Get("assessment_id")),
			Status:       attempt.Status(strings.TrimSpace(q.Get("status"))),
			Limit:        parseIntDefault(q.Get("limit"), 50),
			Offset:       parseIntDefault(q.Get("offset"), 0),
		})
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
