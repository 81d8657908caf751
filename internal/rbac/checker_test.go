package rbac_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mind-engage/mindengage-lingua/internal/rbac"
)

func TestChecker_DefaultPolicy(t *testing.T) {
	c := rbac.NewChecker(nil)

	assert.True(t, c.Has(rbac.RoleInstructor, "assessment:create"))
	assert.False(t, c.Has(rbac.RoleInstructor, "attempt:submit"))
	assert.True(t, c.Has(rbac.RoleStudent, "attempt:submit"))
	assert.False(t, c.Has(rbac.RoleStudent, "assessment:create"))
	assert.True(t, c.Has(rbac.RoleAdmin, "anything:at-all"))
	assert.False(t, c.Has("guest", "assessment:view"))
	assert.True(t, c.Any(rbac.RoleStudent, "assessment:create", "assessment:view"))
}

func TestChecker_PrefixWildcard(t *testing.T) {
	c := rbac.NewChecker(map[string][]string{"grader": {"attempt:*"}})
	assert.True(t, c.Has("grader", "attempt:view-own"))
	assert.False(t, c.Has("grader", "assessment:view"))
}

func TestChecker_Allowed(t *testing.T) {
	c := rbac.NewChecker(nil)
	assert.False(t, c.Allowed(context.Background(), "assessment:view"))
	ctx := rbac.WithRole(context.Background(), rbac.RoleStudent)
	assert.True(t, c.Allowed(ctx, "assessment:view"))
	assert.False(t, rbac.IsAdmin(ctx))
	assert.True(t, rbac.IsAdmin(rbac.WithRole(ctx, rbac.RoleAdmin)))
}

func TestRequire(t *testing.T) {
	h := rbac.Require("assessment:create")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	for role, want := range map[string]int{
		rbac.RoleInstructor: http.StatusTeapot,
		rbac.RoleAdmin:      http.StatusTeapot,
		rbac.RoleStudent:    http.StatusForbidden,
		"":                  http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodPost, "/assessments", nil)
		req = req.WithContext(rbac.WithRole(req.Context(), role))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "role %q", role)
	}
}

func TestRequireAny(t *testing.T) {
	h := rbac.RequireAny("assessment:create", "attempt:submit")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	for role, want := range map[string]int{
		rbac.RoleInstructor: http.StatusTeapot,
		rbac.RoleStudent:    http.StatusTeapot,
		rbac.RoleAdmin:      http.StatusTeapot,
		"guest":             http.StatusForbidden,
		"":                  http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(rbac.WithRole(req.Context(), role))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "role %q", role)
	}
}
