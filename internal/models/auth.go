package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the session token and the signed in user.
type LoginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	User      *User      `json:"user"`
}

// SessionClaims is the JWT payload. The subject is the user id.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// RequestMeta carries client details recorded with audit entries.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// Principal is the resolved identity of a request. A nil Principal is the
// anonymous caller.
type Principal struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	SessionID string `json:"-"`
}

// Authenticated is false for the anonymous principal.
func (p *Principal) Authenticated() bool {
	return p != nil && p.UserID != ""
}

// IsAdmin reports whether the principal holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p.Authenticated() && p.Role == RoleAdmin
}

// ActorID returns the user id for audit attribution, or nil when anonymous.
func (p *Principal) ActorID() *string {
	if !p.Authenticated() {
		return nil
	}
	id := p.UserID
	return &id
}

// Session is the server side record behind a token.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
}
