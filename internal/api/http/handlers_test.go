package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "github.com/mind-engage/mindengage-lingua/internal/api/http"
	"github.com/mind-engage/mindengage-lingua/internal/assessment"
	"github.com/mind-engage/mindengage-lingua/internal/attempt"
	auth "github.com/mind-engage/mindengage-lingua/internal/auth/middleware"
	"github.com/mind-engage/mindengage-lingua/internal/db/dbtest"
	"github.com/mind-engage/mindengage-lingua/internal/grading"
	"github.com/mind-engage/mindengage-lingua/internal/logger"
	"github.com/mind-engage/mindengage-lingua/internal/rbac"
	syncx "github.com/mind-engage/mindengage-lingua/internal/sync"
)

type server struct {
	t       *testing.T
	h       http.Handler
	authSvc *auth.AuthService
}

func newServer(t *testing.T) *server {
	t.Helper()
	dbx := dbtest.Open(t)
	events := syncx.NewEventRepo(dbx, "test")
	store := assessment.NewSQLStore(dbx, events)
	ledger := attempt.NewLedger(dbx, store, grading.NewEngine(), events, logger.Nop{})
	authSvc := auth.NewAuthService("test-secret")
	h := api.Routes(api.Deps{
		Auth:        authSvc,
		Assessments: store,
		Attempts:    ledger,
		Results:     attempt.NewAssembler(ledger, dbx, store),
		Events:      events,
		Log:         logger.Nop{},
		Ready:       dbx.PingContext,
	})
	return &server{t: t, h: h, authSvc: authSvc}
}

func (s *server) do(method, path, sub, role string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if sub != "" {
		tok, err := s.authSvc.IssueJWT(sub, role)
		require.NoError(s.t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func draft() assessment.Draft {
	return assessment.Draft{
		Title:       "Capitals",
		Description: "European capitals",
		Questions: []assessment.Question{
			{
				Variant: assessment.VariantMultipleChoice,
				MultipleChoice: []assessment.MultipleChoiceItem{
					{Text: "Capital of Italy?", Options: []string{"Rome (correct)", "Milan"}, CorrectAnswer: "Rome"},
				},
			},
			{
				Variant:     assessment.VariantFillInBlank,
				FillInBlank: []assessment.FillInBlankItem{{Sentence: "The capital of France is ___", Answer: "Paris"}},
			},
		},
	}
}

func TestStudentFlow(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodPost, "/assessments", "author", rbac.RoleInstructor, draft())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[assessment.Assessment](t, rec)

	rec = s.do(http.MethodPost, "/assessments/"+created.ID+"/start", "kim", rbac.RoleStudent, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	started := decode[attempt.Started](t, rec)
	assert.Empty(t, started.Assessment.Questions[0].MultipleChoice[0].CorrectAnswer)

	rec = s.do(http.MethodPost, "/assessments/"+created.ID+"/start", "kim", rbac.RoleStudent, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_active", decode[errBody](t, rec).Code)

	answers := map[string]any{"answers": map[string]string{
		started.Assessment.Questions[0].ID: "0",
		started.Assessment.Questions[1].ID: " paris",
	}}
	rec = s.do(http.MethodPost, "/attempts/"+started.Attempt.ID+"/submit", "kim", rbac.RoleStudent, answers)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	graded := decode[map[string]any](t, rec)
	assert.EqualValues(t, 100, graded["score"])
	assert.EqualValues(t, 2, graded["correct_count"])
	assert.EqualValues(t, 2, graded["total_questions"])

	rec = s.do(http.MethodPost, "/attempts/"+started.Attempt.ID+"/submit", "kim", rbac.RoleStudent, answers)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_completed", decode[errBody](t, rec).Code)

	rec = s.do(http.MethodGet, "/attempts/"+started.Attempt.ID+"/results", "kim", rbac.RoleStudent, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[attempt.ResultView](t, rec)
	assert.Equal(t, 100, view.Score)
	assert.Equal(t, "Paris", view.Questions[1].Items[0].CorrectAnswer)
	assert.Equal(t, "Rome", view.Questions[0].Items[0].CorrectAnswer)

	rec = s.do(http.MethodGet, "/attempts/"+started.Attempt.ID+"/results", "lee", rbac.RoleStudent, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/attempts?status=completed", "kim", rbac.RoleStudent, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]attempt.Attempt](t, rec), 1)
}

func TestSubmitErrors(t *testing.T) {
	s := newServer(t)
	created := decode[assessment.Assessment](t, s.do(http.MethodPost, "/assessments", "author", rbac.RoleInstructor, draft()))
	started := decode[attempt.Started](t, s.do(http.MethodPost, "/assessments/"+created.ID+"/start", "kim", rbac.RoleStudent, nil))

	rec := s.do(http.MethodPost, "/attempts/"+started.Attempt.ID+"/submit", "kim", rbac.RoleStudent,
		map[string]any{"answers": map[string]string{"nope": "x"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_answers", decode[errBody](t, rec).Code)

	rec = s.do(http.MethodGet, "/attempts/"+started.Attempt.ID+"/results", "kim", rbac.RoleStudent, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "not_completed", decode[errBody](t, rec).Code)

	rec = s.do(http.MethodPost, "/attempts/"+started.Attempt.ID+"/submit", "lee", rbac.RoleStudent,
		map[string]any{"answers": map[string]string{}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthoringPermissions(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodPost, "/assessments", "", "", draft())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/assessments", "kim", rbac.RoleStudent, draft())
	assert.Equal(t, http.StatusForbidden, rec.Code)

	bad := draft()
	bad.Questions = nil
	rec = s.do(http.MethodPost, "/assessments", "author", rbac.RoleInstructor, bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_draft", decode[errBody](t, rec).Code)

	created := decode[assessment.Assessment](t, s.do(http.MethodPost, "/assessments", "author", rbac.RoleInstructor, draft()))

	// other instructors see the student view and may not edit
	rec = s.do(http.MethodGet, "/assessments/"+created.ID, "other", rbac.RoleInstructor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[assessment.Assessment](t, rec).Questions[1].FillInBlank[0].Answer)

	rec = s.do(http.MethodGet, "/assessments/"+created.ID, "author", rbac.RoleInstructor, nil)
	assert.Equal(t, "Paris", decode[assessment.Assessment](t, rec).Questions[1].FillInBlank[0].Answer)

	next := draft()
	next.Title = "Capitals II"
	rec = s.do(http.MethodPut, "/assessments/"+created.ID, "other", rbac.RoleInstructor, next)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPut, "/assessments/"+created.ID, "author", rbac.RoleInstructor, next)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Capitals II", decode[assessment.Assessment](t, rec).Title)

	rec = s.do(http.MethodGet, "/assessments?q=capitals", "kim", rbac.RoleStudent, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]assessment.Summary](t, rec), 1)

	rec = s.do(http.MethodDelete, "/assessments/"+created.ID, "other", rbac.RoleInstructor, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(http.MethodDelete, "/assessments/"+created.ID, "root", rbac.RoleAdmin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, "/assessments/"+created.ID, "author", rbac.RoleInstructor, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthz", "", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/readyz", "", "", nil).Code)
}

func TestEvents(t *testing.T) {
	s := newServer(t)
	created := decode[assessment.Assessment](t, s.do(http.MethodPost, "/assessments", "author", rbac.RoleInstructor, draft()))
	rec := s.do(http.MethodPost, "/assessments/"+created.ID+"/start", "kim", rbac.RoleStudent, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/events", "kim", rbac.RoleStudent, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/events", "author", rbac.RoleInstructor, nil).Code)

	rec = s.do(http.MethodGet, "/events", "root", rbac.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[[]syncx.Event](t, rec)
	require.Len(t, all, 2)
	assert.Equal(t, syncx.EventAssessmentCreated, all[0].Type)
	assert.Equal(t, created.ID, all[0].Key)
	assert.Equal(t, syncx.EventAttemptStarted, all[1].Type)

	rec = s.do(http.MethodGet, "/events?after="+strconv.FormatInt(all[0].Seq, 10), "root", rbac.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rest := decode[[]syncx.Event](t, rec)
	require.Len(t, rest, 1)
	assert.Equal(t, all[1].Seq, rest[0].Seq)

	rec = s.do(http.MethodGet, "/events?after=-1", "root", rbac.RoleAdmin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_cursor", decode[errBody](t, rec).Code)
}

func TestLoginRouteOffWithoutLocalLogin(t *testing.T) {
	s := newServer(t)
	rec := s.do(http.MethodPost, "/auth/login", "", "", map[string]string{"username": "admin", "password": "admin"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
