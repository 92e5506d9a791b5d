// Package recovery holds outstanding password recovery codes.
package recovery

import (
	"context"
	"time"
)

// Code is an outstanding recovery code for one email
type Code struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store keeps at most one code per email. Put replaces any previous code.
// Get returns (nil, nil) when no code is held. Consume removes the code only
// if it is still the outstanding one, and reports whether it did; a code that
// was superseded in the meantime is left alone.
type Store interface {
	Put(ctx context.Context, c Code) error
	Get(ctx context.Context, email string) (*Code, error)
	Consume(ctx context.Context, email, code string) (bool, error)
}
