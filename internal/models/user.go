package models

import "time"

// Role is the authorization level of a user
type Role string

const (
	RoleDoctor Role = "doctor"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleDoctor || r == RoleAdmin
}

// User represents a clinic staff account
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FullName     string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Snapshot returns the user fields carried inside a session
func (u *User) Snapshot() SessionUser {
	return SessionUser{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		Role:     u.Role,
	}
}

// SessionUser is the copy of the user stored with a session and returned to clients
type SessionUser struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"name"`
	Role     Role   `json:"role"`
}

// Session represents an authenticated session
type Session struct {
	ID        string      `json:"id"`
	UserID    int64       `json:"user_id"`
	User      SessionUser `json:"user"`
	Remember  bool        `json:"remember"`
	ExpiresAt time.Time   `json:"expires_at"`
	CreatedAt time.Time   `json:"created_at"`
}

// ExpiredAt reports whether the session is expired at the given instant
func (s *Session) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// MaxAge is the lifetime granted at creation
func (s *Session) MaxAge() time.Duration {
	return s.ExpiresAt.Sub(s.CreatedAt)
}
