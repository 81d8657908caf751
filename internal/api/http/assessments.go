package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-lingua/internal/assessment"
	auth "github.com/mind-engage/mindengage-lingua/internal/auth/middleware"
	"github.com/mind-engage/mindengage-lingua/internal/errs"
	"github.com/mind-engage/mindengage-lingua/internal/logger"
	"github.com/mind-engage/mindengage-lingua/internal/rbac"
)

// POST /assessments
func CreateAssessmentHandler(store assessment.Store, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var d assessment.Draft
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			badJSON(w)
			return
		}
		a, err := store.Create(r.Context(), auth.SubjectFromContext(r.Context()), d)
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

// GET /assessments?q=...&mine=1&limit=50&offset=0
func ListAssessmentsHandler(store assessment.Store, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := assessment.ListOpts{
			Q:      strings.TrimSpace(r.URL.Query().Get("q")),
			Limit:  parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset: parseIntDefault(r.URL.Query().Get("offset"), 0),
		}
		if r.URL.Query().Get("mine") == "1" {
			opts.CreatedBy = auth.SubjectFromContext(r.Context())
		}
		list, err := store.List(r.Context(), opts)
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /assessments/{id}
// Authors and admins get the full tree, everybody else the student view.
func GetAssessmentHandler(store assessment.Store, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := store.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		if !canManage(r, a) {
			a = a.StudentView()
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// PUT /assessments/{id}  body: Draft; the question set is replaced wholesale.
func ReplaceQuestionsHandler(store assessment.Store, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var d assessment.Draft
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			badJSON(w)
			return
		}
		cur, err := store.Get(r.Context(), id)
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		if !canManage(r, cur) {
			writeError(w, log, r, errs.ErrForbidden)
			return
		}
		a, err := store.ReplaceQuestions(r.Context(), id, d)
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// DELETE /assessments/{id}
func DeleteAssessmentHandler(store assessment.Store, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		cur, err := store.Get(r.Context(), id)
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		if !canManage(r, cur) {
			writeError(w, log, r, errs.ErrForbidden)
			return
		}
		if err := store.Delete(r.Context(), id); err != nil {
			writeError(w, log, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func canManage(r *http.Request, a assessment.Assessment) bool {
	return rbac.IsAdmin(r.Context()) || a.CreatedBy == auth.SubjectFromContext(r.Context())
}
