package auth_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/mind-engage/mindengage-lingua/internal/auth/middleware"
	"github.com/mind-engage/mindengage-lingua/internal/rbac"
)

func TestIssueAndParse(t *testing.T) {
	a := auth.NewAuthService("secret")
	tok, err := a.IssueJWT("alice", rbac.RoleInstructor)
	require.NoError(t, err)

	c, err := a.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", c.Sub)
	assert.Equal(t, rbac.RoleInstructor, c.Role)

	_, err = auth.NewAuthService("other").Parse(tok)
	assert.Error(t, err)
}

func TestJWTMiddleware(t *testing.T) {
	a := auth.NewAuthService("secret")
	var sub, role string
	h := auth.JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub = auth.SubjectFromContext(r.Context())
		role = rbac.RoleFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, err := a.IssueJWT("bob", rbac.RoleStudent)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bob", sub)
	assert.Equal(t, rbac.RoleStudent, role)
}

func TestLoginHandler(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	a := auth.NewAuthService("secret")
	h := auth.LoginHandler(a, auth.LocalLogin{AdminUser: "admin", AdminPassHash: string(hash), AllowDevUsers: true})

	login := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)))
		return rec
	}

	assert.Equal(t, http.StatusOK, login(`{"username":"admin","password":"s3cret"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, login(`{"username":"admin","password":"admin"}`).Code)
	assert.Equal(t, http.StatusOK, login(`{"username":"kim","password":"kim","role":"student"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, login(`{"username":"kim","password":"kim","role":"admin"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, login(`{"username":"kim","password":"nope","role":"student"}`).Code)
	assert.Equal(t, http.StatusBadRequest, login(`{`).Code)

	rec := login(`{"username":"kim","password":"kim","role":"instructor"}`)
	assert.Contains(t, rec.Body.String(), `"role":"instructor"`)
}
