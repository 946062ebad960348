package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskmanager/backend/internal/middleware"
)

// SetupRoutes builds the /auth router. limiter throttles the credential
// endpoints and may be nil.
func SetupRoutes(h *Handler, verifier middleware.IdentityVerifier, limiter *middleware.RateLimiter) http.Handler {
	r := chi.NewRouter()
	authenticate := middleware.Authenticate(verifier, h.logger)

	r.Group(func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Middleware)
		}
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
	})

	r.Post("/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Post("/change-password", h.ChangePassword)
		r.Get("/profile", h.Profile)
		r.Get("/validate-token", h.ValidateToken)
	})

	r.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.With(middleware.RequireRole(RoleAdmin)).Get("/accounts/{id}", h.AccountByID)
		r.With(middleware.RequireRole(RoleAdmin, RoleManager)).Get("/accounts", h.AccountByEmail)
	})

	return r
}
