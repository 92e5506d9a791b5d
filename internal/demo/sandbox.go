// Package demo keeps per-user, in-memory copies of the record schema for
// allow-listed demo identities. Nothing written here reaches the database.
package demo

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"clinichistory/internal/models"
	"clinichistory/internal/records"
)

const (
	// DefaultMaxAge is how long an entry lives after it was seeded
	DefaultMaxAge = 2 * time.Hour
	// DefaultSweepInterval is how often Run purges old entries
	DefaultSweepInterval = 30 * time.Minute

	patientIDOffset      int64 = 1000
	consultationIDOffset int64 = 2000
	appointmentIDOffset  int64 = 3000
)

// entry is one demo user's data set
type entry struct {
	mu            sync.Mutex
	patients      []models.Patient
	consultations []models.Consultation
	appointments  []models.Appointment

	nextPatient      int64
	nextConsultation int64
	nextAppointment  int64

	createdAt time.Time
}

// Sandbox owns every demo entry in the process. Create one at startup and
// pass it to whatever needs it.
type Sandbox struct {
	mu      sync.RWMutex
	entries map[int64]*entry
	emails  map[string]struct{}
	maxAge  time.Duration
	now     func() time.Time
}

// NewSandbox creates a sandbox for the given allow-list. A zero maxAge uses DefaultMaxAge.
func NewSandbox(emails []string, maxAge time.Duration) *Sandbox {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	allow := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			allow[e] = struct{}{}
		}
	}
	return &Sandbox{
		entries: make(map[int64]*entry),
		emails:  allow,
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// IsDemo reports whether email belongs to the demo allow-list (case-insensitive)
func (s *Sandbox) IsDemo(email string) bool {
	_, ok := s.emails[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// ForUser returns the sandbox view of userID's records. The entry is seeded
// on first use, so a purged user gets fresh fixtures on the next call.
func (s *Sandbox) ForUser(userID int64) records.Store {
	return &userStore{sandbox: s, userID: userID}
}

// entry returns userID's entry, seeding it if absent
func (s *Sandbox) entry(userID int64) *entry {
	s.mu.RLock()
	e, ok := s.entries[userID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[userID]; ok {
		return e
	}
	e = seed(userID, s.now())
	s.entries[userID] = e
	log.Debug().Int64("user_id", userID).Msg("Seeded demo sandbox")
	return e
}

// Clear drops userID's entry. Safe to call for users without one.
func (s *Sandbox) Clear(userID int64) {
	s.mu.Lock()
	delete(s.entries, userID)
	s.mu.Unlock()
}

// Has reports whether userID currently has a seeded entry
func (s *Sandbox) Has(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[userID]
	return ok
}

// Len returns the number of live entries
func (s *Sandbox) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Sweep deletes entries seeded more than maxAge before now, regardless of
// activity, and returns how many were removed.
func (s *Sandbox) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if now.Sub(e.createdAt) > s.maxAge {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is cancelled
func (s *Sandbox) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(s.now()); n > 0 {
				log.Info().Int("removed", n).Msg("Purged expired demo sandboxes")
			}
		}
	}
}
