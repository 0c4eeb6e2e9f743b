package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/konewka17/localtuya/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)

		// System metrics (no auth required for basic monitoring)
		r.Get("/metrics", s.handleMetrics)

		// WebSocket upgrade. Browsers cannot set headers on WS dials, so
		// auth happens via a single-use ticket validated in the handler.
		r.Get("/ws", s.handleWebSocket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/auth/me", s.handleMe)
			r.Post("/auth/logout", s.handleLogout)
			r.Post("/auth/password", s.handleChangePassword)

			// WS ticket requires authentication - user must be logged in to request a ticket
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			// Device endpoints
			r.Route("/devices", func(r chi.Router) {
				r.Get("/", s.handleListDevices)
				r.Get("/stats", s.handleDeviceStats)
				r.With(s.requirePermission(auth.PermDeviceConfigure)).Post("/", s.handleCreateDevice)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetDevice)
					r.With(s.requirePermission(auth.PermDeviceConfigure)).Patch("/", s.handleUpdateDevice)
					r.With(s.requirePermission(auth.PermDeviceConfigure)).Delete("/", s.handleDeleteDevice)
					r.Get("/state", s.handleGetDeviceState)
					r.With(s.requirePermission(auth.PermDeviceOperate)).Post("/command", s.handleDeviceCommand)
				})
			})

			// User management endpoints (admin only)
			r.Route("/users", func(r chi.Router) {
				r.Use(s.requirePermission(auth.PermUserManage))

				r.Get("/", s.handleListUsers)
				r.Post("/", s.handleCreateUser)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetUser)
					r.Patch("/", s.handleUpdateUser)
					r.Delete("/", s.handleDeleteUser)
					r.Get("/sessions", s.handleListUserSessions)
					r.Delete("/sessions", s.handleRevokeUserSessions)
				})
			})

			// Audit trail (admin only)
			r.With(s.requirePermission(auth.PermSystemAdmin)).Get("/audit", s.handleListAuditLogs)

			// Factory reset (owner only)
			r.With(s.requirePermission(auth.PermSystemDangerous)).Post("/system/factory-reset", s.handleFactoryReset)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
