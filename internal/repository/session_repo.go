package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"clinichistory/internal/database"
	"clinichistory/internal/models"
)

// SessionRepository persists sessions in the sessions table, so every
// process instance sharing the database sees the same sessions.
type SessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// sessionData is the JSON payload kept in the data column
type sessionData struct {
	User     models.SessionUser `json:"user"`
	Remember bool               `json:"remember"`
}

// Save inserts or replaces a session
func (r *SessionRepository) Save(ctx context.Context, s *models.Session) error {
	data, err := json.Marshal(sessionData{User: s.User, Remember: s.Remember})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	err = r.db.WithTx(ctx, func(tx *database.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", s.ID); err != nil {
			return err
		}
		query := `
			INSERT INTO sessions (id, user_id, data, expires_at, created_at)
			VALUES (?, ?, ?, ?, ?)
		`
		_, err := tx.ExecContext(ctx, query, s.ID, s.UserID, string(data), s.ExpiresAt.UTC(), s.CreatedAt.UTC())
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID. Returns nil when absent; expiry is left to the caller.
func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, user_id, data, expires_at, created_at
		FROM sessions
		WHERE id = ?
	`
	var (
		session models.Session
		data    string
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&data,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var payload sessionData
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	session.User = payload.User
	session.Remember = payload.Remember

	return &session, nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions that expired before now
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
