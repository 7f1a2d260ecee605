package panelcore

import (
	"context"
	"time"

	"github.com/MrEthical07/panelcore/jwt"
	"github.com/MrEthical07/panelcore/permission"
)

// Role is a user's authorization tier.
type Role string

const (
	RoleUnrestricted Role = permission.RoleUnrestricted
	RoleUnitManager  Role = permission.RoleUnitManager
	RoleStaff        Role = permission.RoleStaff
)

// Status is a user's account state. Only active users may hold sessions.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// User is the identity returned to callers. It never carries secrets.
type User struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	UnitID string `json:"unitId,omitempty"`
	Status Status `json:"status"`
}

// UserRecord is what a [UserProvider] returns. PasswordHash is stripped before the
// user leaves the Engine.
type UserRecord struct {
	User
	PasswordHash string
}

// UserProvider resolves users from the external user store. GetUserByID returns an
// error matching [ErrUserNotFound] for unknown ids.
type UserProvider interface {
	GetUserByID(ctx context.Context, userID string) (*UserRecord, error)
}

// CredentialVerifier checks a login and returns the user id. Invalid credentials
// give an error matching [ErrInvalidCredentials].
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, email, password string) (string, error)
}

// SessionGrant is returned by [Engine.CreateSession].
type SessionGrant struct {
	Token     string    `json:"-"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RoutingClaims is the payload of a stateless routing token.
type RoutingClaims = jwt.RoutingClaims
