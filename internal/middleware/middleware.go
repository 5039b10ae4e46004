package middleware

import (
	"net/http"
	"strings"

	"github.com/MentorLoop/LMS-Backend/internal/cache"
	"github.com/MentorLoop/LMS-Backend/internal/token"
	"github.com/MentorLoop/LMS-Backend/internal/utils"
)

// UserFetcher resolves the user a verified token belongs to. The auth
// package implements it; keeping it an interface here avoids an import
// cycle and makes the middleware testable on its own.
type UserFetcher interface {
	FindUserByUsername(username string) (utils.AuthUser, error)
}

// Auth carries the pieces every authentication decision needs.
type Auth struct {
	Codec *token.Codec
	Store *cache.SessionStore
	Users UserFetcher
}

// extractToken pulls the bearer token out of the Authorization header. The
// clients send the raw token; a conventional "Bearer " prefix is tolerated.
func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return header
}

// firstAccessRoute reports whether a user stuck in the first-login state is
// still allowed to reach this path.
func firstAccessRoute(path string) bool {
	return strings.Contains(path, "/logout") ||
		strings.Contains(path, "/change-password-on-first-access")
}

// TokenAuthentication gates every protected request:
//
//	no token            -> 401 with a login redirect hint
//	codec says invalid  -> 401
//	cache has no entry or a different token -> 401 (logout / new device)
//	user mid first-login on a normal route  -> 403
//
// On success the resolved user is attached to the request context. The
// token's expiry is never refreshed here.
func (a *Auth) TokenAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := extractToken(r)
		if tok == "" {
			utils.RespondExtra(w, http.StatusUnauthorized,
				"You have to login to access this resource",
				map[string]any{"path": "/user/login/?next=" + r.URL.Path})
			return
		}

		claims, err := a.Codec.Verify(tok)
		if err != nil {
			utils.Respond(w, http.StatusUnauthorized, "You have to login to access this resource")
			return
		}

		// Cache mismatch covers logout and cross-device invalidation.
		// A broken cache reads as "no match" rather than a 5xx.
		if !a.Store.Matches(r.Context(), claims.Username, tok) {
			utils.Respond(w, http.StatusUnauthorized, "You have to login to access this resource")
			return
		}

		user, err := a.Users.FindUserByUsername(claims.Username)
		if err != nil {
			utils.Respond(w, http.StatusUnauthorized, "You have to login to access this resource")
			return
		}

		if user.FirstLogin && !firstAccessRoute(r.URL.Path) {
			utils.Respond(w, http.StatusForbidden,
				"You need to change password to access this resource")
			return
		}

		next.ServeHTTP(w, r.WithContext(utils.WithAuthUser(r.Context(), user)))
	})
}

// CantAccessAfterLogin blocks login/forgot/reset style endpoints for callers
// who already hold a live session.
func (a *Auth) CantAccessAfterLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := extractToken(r)
		if tok != "" {
			if claims, err := a.Codec.Verify(tok); err == nil {
				if a.Store.Matches(r.Context(), claims.Username, tok) {
					utils.Respond(w, http.StatusNotAcceptable,
						"You need to logout to access this resource")
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin allows Admins and superusers only.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := utils.GetAuthUserFromContext(r.Context())
		if !ok {
			utils.Respond(w, http.StatusUnauthorized, "You have to login to access this resource")
			return
		}
		if user.IsSuperuser {
			next.ServeHTTP(w, r)
			return
		}
		switch user.Role {
		case utils.RoleAdmin:
			next.ServeHTTP(w, r)
		case utils.RoleMentor, utils.RoleStudent:
			utils.Respond(w, http.StatusForbidden, "Admin access required")
		default:
			utils.Respond(w, http.StatusForbidden, "Admin access required")
		}
	})
}

// RequireMentorOrAdmin allows Mentors and Admins.
func RequireMentorOrAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := utils.GetAuthUserFromContext(r.Context())
		if !ok {
			utils.Respond(w, http.StatusUnauthorized, "You have to login to access this resource")
			return
		}
		switch user.Role {
		case utils.RoleAdmin, utils.RoleMentor:
			next.ServeHTTP(w, r)
		case utils.RoleStudent:
			utils.Respond(w, http.StatusForbidden, "Mentor or Admin access required")
		default:
			utils.Respond(w, http.StatusForbidden, "Mentor or Admin access required")
		}
	})
}

// RequireStudent allows Students only. Admins do not pass; the superuser
// bypass applies to the admin check alone.
func RequireStudent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := utils.GetAuthUserFromContext(r.Context())
		if !ok {
			utils.Respond(w, http.StatusUnauthorized, "You have to login to access this resource")
			return
		}
		switch user.Role {
		case utils.RoleStudent:
			next.ServeHTTP(w, r)
		case utils.RoleAdmin, utils.RoleMentor:
			utils.Respond(w, http.StatusForbidden, "Student access required")
		default:
			utils.Respond(w, http.StatusForbidden, "Student access required")
		}
	})
}
