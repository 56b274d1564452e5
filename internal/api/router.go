package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/probe", app.ProbeHandler)
		r.Post("/extract", app.ExtractHandler)

		r.Post("/analyze/frame", app.AnalyzeFrameHandler)
		r.Post("/analyze/compare", app.CompareHandler)
		r.Post("/analyze/flow", app.FlowHandler)
		r.Post("/analyze/narrative", app.NarrativeHandler)
		r.Post("/analyze/batch", app.StartBatchHandler)

		r.Get("/sessions/{sessionID}", app.SessionHandler)
		r.Delete("/sessions/{sessionID}", app.StopSessionHandler)

		r.Get("/timeline", app.TimelineHandler)
		r.Delete("/timeline/{sceneID}", app.RemoveSceneHandler)
	})

	return r
}
