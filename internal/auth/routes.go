package auth

import (
	"net/http"

	"github.com/MentorLoop/LMS-Backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

func pathParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// SetupRoutes mounts the user/auth endpoints. The same middleware.Auth the
// rest of the app uses is passed in so login-gating decisions stay in one
// place.
func (h *Handler) SetupRoutes(mw *middleware.Auth, loginLimit *middleware.LoginRateLimiter) http.Handler {
	r := chi.NewRouter()

	// Reachable only without a live session.
	r.Group(func(r chi.Router) {
		r.Use(mw.CantAccessAfterLogin)
		r.With(loginLimit.Middleware).Post("/login", h.LoginHandler)
		r.Post("/forgot-password", h.ForgotPasswordHandler)
		r.Put("/reset-password/{token}", h.ResetPasswordHandler)
		r.Post("/new-first-login-link-request", h.NewLoginLinkRequestHandler)
	})

	// Authenticated.
	r.Group(func(r chi.Router) {
		r.Use(mw.TokenAuthentication)
		r.Get("/logout", h.LogoutHandler)
		r.Put("/change-password", h.ChangePasswordHandler)
		r.Put("/change-password-on-first-access/{token}", h.ChangePasswordOnFirstAccessHandler)
		r.With(middleware.RequireAdmin).Post("/register-user", h.RegisterUserHandler)
	})

	return r
}
