// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// simpleblog API. It organizes routes into public, authentication and admin
// groups with appropriate middleware stacks.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"simpleblog/internal/handlers"
	"simpleblog/internal/metrics"
	"simpleblog/internal/middleware"
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up. loginLimiter guards the login endpoint;
// allowedOrigins configures CORS for browser front-ends. trustProxy makes
// forwarding headers set the client address, so enable it only behind a
// proxy that overwrites them.
func New(
	tokens middleware.TokenParser,
	loginLimiter *middleware.RateLimiter,
	allowedOrigins []string,
	trustProxy bool,
	admin *handlers.Admin,
	auth *handlers.Auth,
	public *handlers.Public,
	uploads *handlers.Uploads,
) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	if trustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(metrics.Middleware)
	r.Use(middleware.SecureHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Cache", "Retry-After"},
		MaxAge:         300,
	}))

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	r.Get("/health", healthHandler)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", public.Ping)

		r.Get("/posts", public.ListPosts)
		r.Get("/posts/{slug}", public.ShowPost)

		r.With(loginLimiter.Middleware).Post("/auth/login", auth.Login)

		// Everything below needs a valid bearer token.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireToken(tokens))

			r.Post("/auth/logout", auth.Logout)
			r.Get("/auth/me", auth.Me)

			r.Route("/admin", func(r chi.Router) {
				r.Post("/2fa/setup", auth.TwoFASetup)
				r.Post("/2fa/enable", auth.TwoFAEnable)
				r.Post("/uploads", uploads.Thumbnail)

				r.Route("/posts", func(r chi.Router) {
					r.Get("/trashed", admin.PostsTrashed)
					r.Get("/", admin.PostsList)
					r.Post("/", admin.PostCreate)
					r.Get("/{id}", admin.PostShow)
					r.Put("/{id}", admin.PostUpdate)
					r.Delete("/{id}", admin.PostDelete)
					r.Patch("/{id}/restore", admin.PostRestore)
					r.Delete("/{id}/force", admin.PostForceDelete)
				})
			})
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
