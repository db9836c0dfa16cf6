// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler implements the JSON API surface. Handlers decode and
// validate requests, delegate to the access facade and map its errors onto
// HTTP status codes.
package handler

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/rmcosta/fedsite-go/internal/facade"
	"github.com/rmcosta/fedsite-go/internal/identity"
	"github.com/rmcosta/fedsite-go/internal/middleware"
)

// RouterOptions carries the dependencies of the route tree.
type RouterOptions struct {
	DB             *sql.DB
	Facade         *facade.Facade
	Resolver       *identity.Resolver
	SessionManager *scs.SessionManager
	CSRFKey        []byte
	IsDevelopment  bool
}

// NewRouter builds the full route tree with the standard middleware stack.
func NewRouter(opts RouterOptions) chi.Router {
	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())

	healthHandler := NewHealthHandler(opts.DB, opts.Facade)
	authHandler := NewAuthHandler(opts.SessionManager, opts.Resolver, opts.Facade, loginProtection)
	documentHandler := NewDocumentHandler(opts.Facade)
	eventHandler := NewEventHandler(opts.Facade)
	categoryHandler := NewCategoryHandler(opts.Facade)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(opts.IsDevelopment)))
	r.Use(opts.SessionManager.LoadAndSave)
	r.Use(middleware.LoadIdentity(opts.SessionManager, opts.Resolver))

	// Probe endpoints, no CSRF or auth
	r.Get("/ping", healthHandler.Ping)
	r.Get("/demo", healthHandler.Demo)
	r.Get("/health", healthHandler.Health)
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	csrfMiddleware := middleware.CSRF(middleware.DefaultCSRFConfig(opts.CSRFKey, opts.IsDevelopment))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(csrfMiddleware)

		r.Route("/auth", func(r chi.Router) {
			r.With(loginProtection.Middleware).Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/session", authHandler.Session)
		})

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", documentHandler.List)
			r.Get("/{id}", documentHandler.Get)
			r.Get("/{id}/download", documentHandler.Download)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Post("/", documentHandler.Create)
				r.Patch("/{id}", documentHandler.Update)
				r.Delete("/{id}", documentHandler.Delete)
			})
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", eventHandler.List)
			r.Get("/{id}", eventHandler.Get)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Post("/", eventHandler.Create)
				r.Patch("/{id}", eventHandler.Update)
				r.Delete("/{id}", eventHandler.Delete)
			})
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireModerator)
				r.Post("/{id}/approve", eventHandler.Approve)
				r.Post("/{id}/reject", eventHandler.Reject)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categoryHandler.List)
			r.Get("/{id}", categoryHandler.Get)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireModerator)
				r.Post("/", categoryHandler.Create)
				r.Patch("/{id}", categoryHandler.Update)
				r.Put("/{id}/visibility", categoryHandler.SetVisibility)
				r.Delete("/{id}", categoryHandler.Delete)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}
