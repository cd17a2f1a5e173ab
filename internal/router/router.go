// Package router sets up all HTTP routes and middleware chains for
// NovelPress. It organizes routes into public, auth and dashboard groups
// with appropriate middleware stacks.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"novelpress/internal/handlers"
	"novelpress/internal/middleware"
	"novelpress/internal/session"
)

// loginRateLimit caps login attempts per client IP.
const (
	loginRateLimit  = 10
	loginRateWindow = time.Minute
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(sessionStore *session.Store, novels *handlers.Novels, auth *handlers.Auth, public *handlers.Public) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.LoadSession(sessionStore))

	// Health check: no auth, no CSRF.
	r.Get("/health", healthHandler)

	loginLimiter := middleware.NewRateLimiter(loginRateLimit, loginRateWindow)

	// Auth pages.
	r.Group(func(r chi.Router) {
		r.Use(middleware.CSRF)

		r.Get("/login", auth.LoginPage)
		r.With(loginLimiter.Middleware).Post("/login", auth.LoginSubmit)
		r.Post("/logout", auth.Logout)

		// 2FA requires a session but NOT completed verification.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/2fa/setup", auth.TwoFASetupPage)
			r.Post("/2fa/setup", auth.TwoFAConfirmSetup)
			r.Get("/2fa/verify", auth.TwoFAVerifyPage)
			r.Post("/2fa/verify", auth.TwoFAVerifySubmit)
		})
	})

	// Author dashboard: authenticated, 2FA-verified, CSRF-protected.
	r.Route("/dashboard", func(r chi.Router) {
		r.Use(middleware.MethodOverride(handlers.MaxUploadBytes))
		r.Use(middleware.CSRF)
		r.Use(middleware.RequireAuth)
		r.Use(middleware.Require2FA)

		r.Get("/", redirectTo("/dashboard/post"))

		r.Route("/post", func(r chi.Router) {
			r.Get("/", novels.List)
			r.Get("/create", novels.New)
			r.Post("/", novels.Create)

			// Slug checker is registered before {id} so the static segment wins.
			r.Get("/check-slug", novels.CheckSlug)
			r.Post("/check-slug", novels.CheckSlug)

			r.Get("/{id}", novels.Show)
			r.Get("/{id}/edit", novels.Edit)
			r.Put("/{id}", novels.Update)
			r.Patch("/{id}", novels.Update)
			r.Delete("/{id}", novels.Delete)
		})
	})

	// Public site.
	r.Get("/", public.Homepage)
	r.Get("/novel/{slug}", public.Novel)

	return r
}

// redirectTo returns a handler that redirects to the given path.
func redirectTo(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, path, http.StatusSeeOther)
	}
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
