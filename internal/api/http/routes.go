package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mind-engage/mindengage-lingua/internal/assessment"
	auth "github.com/mind-engage/mindengage-lingua/internal/auth/middleware"
	"github.com/mind-engage/mindengage-lingua/internal/logger"
	"github.com/mind-engage/mindengage-lingua/internal/rbac"
)

type Deps struct {
	Auth        *auth.AuthService
	Login       *auth.LocalLogin // nil disables POST /auth/login
	Assessments assessment.Store
	Attempts    Attempts
	Results     Results
	Events      Events // nil disables GET /events
	Log         logger.Logger
	CORSOrigins []string
	Ready       func(ctx context.Context) error // backs /readyz
}

func Routes(d Deps) chi.Router {
	if d.Log == nil {
		d.Log = logger.Nop{}
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if d.Login != nil {
		r.Post("/auth/login", auth.LoginHandler(d.Auth, *d.Login))
	}

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))

		// Authoring
		pr.With(rbac.Require("assessment:create")).
			Post("/assessments", CreateAssessmentHandler(d.Assessments, d.Log))
		pr.With(rbac.Require("assessment:view")).
			Get("/assessments", ListAssessmentsHandler(d.Assessments, d.Log))
		pr.With(rbac.Require("assessment:view")).
			Get("/assessments/{id}", GetAssessmentHandler(d.Assessments, d.Log))
		pr.With(rbac.Require("assessment:edit_own")).
			Put("/assessments/{id}", ReplaceQuestionsHandler(d.Assessments, d.Log))
		pr.With(rbac.Require("assessment:delete_own")).
			Delete("/assessments/{id}", DeleteAssessmentHandler(d.Assessments, d.Log))

		// Student flow
		pr.With(rbac.Require("attempt:create")).
			Post("/assessments/{id}/start", StartAttemptHandler(d.Attempts, d.Log))
		pr.With(rbac.Require("attempt:submit")).
			Post("/attempts/{id}/submit", SubmitAttemptHandler(d.Attempts, d.Log))
		pr.With(rbac.Require("attempt:view-own")).
			Get("/attempts/{id}/results", ResultsHandler(d.Results, d.Log))
		pr.With(rbac.Require("attempt:view-own")).
			Get("/attempts", ListMyAttemptsHandler(d.Attempts, d.Log))

		// Change log for site replication
		if d.Events != nil {
			pr.With(rbac.RequireAny("events:read", "sync:pull")).
				Get("/events", EventsHandler(d.Events, d.Log))
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(r.Context()); err != nil {
				d.Log.Warn("not ready", "err", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	return r
}
