package utils

import (
	"context"
)

// Role is the closed set of account roles. Permission checks switch on it
// exhaustively; anything outside the three constants is rejected at
// registration time.
type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleMentor  Role = "Mentor"
	RoleStudent Role = "Student"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleMentor, RoleStudent:
		return true
	}
	return false
}

// AuthUser is the resolved identity the authentication middleware attaches
// to the request context.
type AuthUser struct {
	UserID      string
	Username    string
	Role        Role
	IsSuperuser bool
	FirstLogin  bool
}

type contextKey string

const ContextAuthUserKey contextKey = "authUser"

func GetAuthUserFromContext(ctx context.Context) (AuthUser, bool) {
	u, ok := ctx.Value(ContextAuthUserKey).(AuthUser)
	return u, ok
}

func WithAuthUser(ctx context.Context, u AuthUser) context.Context {
	return context.WithValue(ctx, ContextAuthUserKey, u)
}
