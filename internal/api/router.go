package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-fleet/internal/auth"
)

// healthCheckTimeout bounds each component check behind /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.With(s.requirePermission(auth.PermTokenIssue)).Post("/auth/token", s.handleIssueToken)
			r.With(s.requirePermission(auth.PermFleetRead)).Get("/audit", s.handleListAudit)

			// One collection per entity kind: applications, endpoints,
			// gateways, supervisors, discoverers, publishers.
			r.Route("/{kind}", func(r chi.Router) {
				r.Use(s.kindMiddleware)

				r.With(s.requirePermission(auth.PermFleetRead)).Get("/", s.handleListEntities)
				r.With(s.requirePermission(auth.PermFleetManage)).Post("/", s.handleRegisterEntity)

				r.Route("/{id}", func(r chi.Router) {
					r.With(s.requirePermission(auth.PermFleetRead)).Get("/", s.handleGetEntity)

					r.Group(func(r chi.Router) {
						r.Use(s.requirePermission(auth.PermFleetManage))
						r.Patch("/", s.handleUpdateEntity)
						r.Delete("/", s.handleDeleteEntity)
						r.Post("/disable", s.handleDisableEntity)
						r.Post("/enable", s.handleEnableEntity)
					})
				})
			})
		})
	})

	return r
}

// componentStatus is one entry of the health report.
type componentStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// handleHealth returns the server health status. Database failures make
// the service unhealthy; broker and telemetry failures only degrade it.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	components := map[string]componentStatus{}
	resp := map[string]any{
		"version": s.version,
	}

	if s.db != nil {
		if err := s.db.HealthCheck(ctx); err != nil {
			components["database"] = componentStatus{Status: "down", Error: err.Error()}
			status, code = "unhealthy", http.StatusServiceUnavailable
		} else {
			components["database"] = componentStatus{Status: "ok"}
			if v, err := s.db.SchemaVersion(ctx); err == nil && v != "" {
				resp["schema_version"] = v
			}
		}
	}

	optional := []struct {
		name    string
		checker HealthChecker
	}{
		{"mqtt", s.mqtt},
		{"influxdb", s.influx},
	}
	for _, c := range optional {
		if c.checker == nil {
			continue
		}
		if err := c.checker.HealthCheck(ctx); err != nil {
			components[c.name] = componentStatus{Status: "down", Error: err.Error()}
			if status == "ok" {
				status = "degraded"
			}
			continue
		}
		components[c.name] = componentStatus{Status: "ok"}
	}

	resp["status"] = status
	if len(components) > 0 {
		resp["components"] = components
	}
	writeJSON(w, code, resp)
}
