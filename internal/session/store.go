// Package session defines where sessions live between requests.
package session

import (
	"context"
	"time"

	"clinichistory/internal/models"
)

// Store persists sessions. Get returns (nil, nil) for an unknown ID and
// leaves expiry checks to the caller. Delete is idempotent.
type Store interface {
	Save(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
