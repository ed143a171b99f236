/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the dashboard

ROUTE GROUPS:
  /api/reps/*           Rep profiles, deals, targets, KPIs, breakdowns
  /api/deals/*          Deal deletion
  /api/plans/*          Plan documents
  /api/admin/*          Overview and month close
  /api/holidays/*       Company holidays
  /api/scenarios/*      Demo scenarios (dev only)
  /                     Endpoint index

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Rep routes
		r.Route("/reps", func(r chi.Router) {
			r.Get("/", h.ListReps)
			r.Post("/", h.CreateRep)
			r.Get("/{id}", h.GetRep)
			r.Put("/{id}", h.UpdateRep)

			r.Get("/{id}/deals", h.ListDeals)
			r.Post("/{id}/deals", h.CreateDeal)

			r.Get("/{id}/targets/monthly", h.ListMonthlyTargets)
			r.Put("/{id}/targets/monthly", h.PutMonthlyTarget)
			r.Get("/{id}/targets/quarterly", h.ListQuarterlyTargets)
			r.Put("/{id}/targets/quarterly", h.PutQuarterlyTarget)
			r.Get("/{id}/kpis", h.ListKpis)
			r.Put("/{id}/kpis", h.PutKpi)

			r.Get("/{id}/breakdown", h.GetBreakdown)
			r.Get("/{id}/progress", h.GetProgress)
			r.Get("/{id}/snapshots", h.ListSnapshots)
			r.Post("/{id}/snapshots", h.CreateSnapshot)
		})

		// Deal routes
		r.Route("/deals", func(r chi.Router) {
			r.Delete("/{id}", h.DeleteDeal)
		})

		// Plan routes
		r.Route("/plans", func(r chi.Router) {
			r.Get("/", h.ListPlans)
			r.Post("/", h.CreatePlan)
			r.Get("/{id}", h.GetPlan)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Get("/overview", h.GetOverview)
			r.Post("/close", h.TriggerClose)
			r.Get("/close-runs", h.ListCloseRuns)
		})

		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Delete("/{id}", h.DeleteHoliday)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Commission Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Commission Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/reps">/api/reps</a> - List reps</li>
<li><a href="/api/plans">/api/plans</a> - List plans</li>
<li><a href="/api/admin/overview">/api/admin/overview</a> - Team overview</li>
<li><a href="/api/scenarios">/api/scenarios</a> - List scenarios</li>
</ul>
</body>
</html>`))
	})

	return r
}
