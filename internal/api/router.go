package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/QVF/internal/ahp"
	"github.com/MikeSquared-Agency/QVF/internal/events"
	"github.com/MikeSquared-Agency/QVF/internal/scoring"
	"github.com/MikeSquared-Agency/QVF/internal/store"
	"github.com/MikeSquared-Agency/QVF/internal/tracker"
)

func NewRouter(s store.Store, e events.Client, t tracker.Client, engine *ahp.Engine, scorer *scoring.Scorer, adminToken string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(120))

	sessions := NewSessionsHandler(s, e, engine)
	score := NewScoreHandler(s, e, t, scorer)
	admin := NewAdminHandler(s, e)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(StakeholderIDMiddleware)

		r.Post("/sessions", sessions.Create)
		r.Get("/sessions", sessions.List)
		r.Get("/sessions/{id}", sessions.Get)
		r.Put("/sessions/{id}/judgments", sessions.PutJudgments)
		r.Post("/sessions/{id}/derive", sessions.Derive)
		r.Post("/sessions/{id}/accept", sessions.Accept)

		r.Post("/score", score.Score)
		r.Get("/runs", score.ListRuns)
		r.Get("/runs/{id}", score.GetRun)
		r.Get("/runs/{id}/explain/{item_id}", score.Explain)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(adminToken))
			r.Get("/stats", admin.Stats)
			r.Post("/runs/{id}/rescore", admin.Rescore)
		})
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
