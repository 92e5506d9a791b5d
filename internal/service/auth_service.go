package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"clinichistory/internal/apperr"
	"clinichistory/internal/models"
	"clinichistory/internal/repository"
	"clinichistory/internal/security"
	"clinichistory/internal/session"
	"clinichistory/internal/validation"
)

// DemoPolicy decides which identities run against the sandbox and drops
// their data at logout. *demo.Sandbox implements it.
type DemoPolicy interface {
	IsDemo(email string) bool
	Clear(userID int64)
}

// AuthService handles authentication business logic
type AuthService struct {
	userRepo         *repository.UserRepository
	sessions         session.Store
	demo             DemoPolicy
	sessionDuration  time.Duration
	rememberDuration time.Duration
	now              func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo *repository.UserRepository, sessions session.Store, demo DemoPolicy, sessionDuration, rememberDuration time.Duration) *AuthService {
	return &AuthService{
		userRepo:         userRepo,
		sessions:         sessions,
		demo:             demo,
		sessionDuration:  sessionDuration,
		rememberDuration: rememberDuration,
		now:              time.Now,
	}
}

// Login checks credentials and issues a fresh session. Any session named by
// previousID is destroyed first so a planted identifier never becomes
// authenticated. The new session is persisted before Login returns.
func (s *AuthService) Login(ctx context.Context, email, password string, remember bool, previousID string) (*models.Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, apperr.Validation("Email and password are required")
	}

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Internal("Failed to log in", err)
	}
	if user == nil {
		return nil, apperr.NotFound("User not found")
	}
	if !security.CheckPassword(password, user.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid credentials")
	}

	if previousID != "" {
		if err := s.sessions.Delete(ctx, previousID); err != nil {
			log.Warn().Err(err).Msg("Failed to drop previous session at login")
		}
	}

	maxAge := s.sessionDuration
	if remember {
		maxAge = s.rememberDuration
	}
	now := s.now()
	sess := &models.Session{
		ID:        security.GenerateSessionID(),
		UserID:    user.ID,
		User:      user.Snapshot(),
		Remember:  remember,
		ExpiresAt: now.Add(maxAge),
		CreatedAt: now,
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, apperr.Internal("Failed to log in", err)
	}

	log.Info().Int64("user_id", user.ID).Bool("remember", remember).Msg("User logged in")
	return sess, nil
}

// Verify resolves a session id to an identity. It never writes: missing and
// expired sessions are simply Anonymous. A store failure is returned
// alongside Anonymous so callers can log it.
func (s *AuthService) Verify(ctx context.Context, sessionID string) (models.Identity, error) {
	if sessionID == "" {
		return models.Anonymous{}, nil
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return models.Anonymous{}, fmt.Errorf("failed to load session: %w", err)
	}
	if sess == nil || sess.ExpiredAt(s.now()) {
		return models.Anonymous{}, nil
	}
	return models.Authenticated{
		Session: sess,
		Demo:    s.demo.IsDemo(sess.User.Email),
	}, nil
}

// Logout destroys the session. Demo identities lose their sandbox first.
// sessionID is the signed cookie value; it is deleted even when the identity
// is Anonymous because the store could not be read.
func (s *AuthService) Logout(ctx context.Context, identity models.Identity, sessionID string) error {
	switch id := identity.(type) {
	case models.Anonymous:
		if sessionID == "" {
			return nil
		}
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			return apperr.Internal("Failed to log out", err)
		}
		return nil
	case models.Authenticated:
		if id.Demo {
			s.demo.Clear(id.Session.UserID)
			log.Info().Int64("user_id", id.Session.UserID).Msg("Cleared demo sandbox")
		}
		if err := s.sessions.Delete(ctx, id.Session.ID); err != nil {
			return apperr.Internal("Failed to log out", err)
		}
		return nil
	default:
		return apperr.Internal("Failed to log out", fmt.Errorf("unknown identity %T", identity))
	}
}

// IsDemo reports whether email is a demo identity
func (s *AuthService) IsDemo(email string) bool {
	return s.demo.IsDemo(email)
}

// ValidateRegistration normalizes and checks registration input without
// touching the store. An empty role becomes doctor.
func (s *AuthService) ValidateRegistration(email, fullName, password string, role models.Role) (models.SessionUser, error) {
	email = strings.TrimSpace(email)
	fullName = strings.TrimSpace(fullName)

	if email == "" || fullName == "" || password == "" {
		return models.SessionUser{}, apperr.Validation("All fields are required")
	}
	if err := validation.ValidateEmail(email); err != nil {
		return models.SessionUser{}, err
	}
	if err := validation.ValidateName(fullName); err != nil {
		return models.SessionUser{}, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return models.SessionUser{}, err
	}
	if role == "" {
		role = models.RoleDoctor
	}
	if !role.Valid() {
		return models.SessionUser{}, validation.ValidationError{Field: "role", Message: "unknown role"}
	}
	return models.SessionUser{Email: email, FullName: fullName, Role: role}, nil
}

// Register creates a new staff account. Callers enforce the admin role.
func (s *AuthService) Register(ctx context.Context, email, fullName, password string, role models.Role) (*models.User, error) {
	input, err := s.ValidateRegistration(email, fullName, password, role)
	if err != nil {
		return nil, err
	}
	email, fullName, role = input.Email, input.FullName, input.Role

	existing, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Internal("Failed to register user", err)
	}
	if existing != nil {
		return nil, apperr.Conflict("User already exists")
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, apperr.Internal("Failed to register user", err)
	}

	user, err := s.userRepo.CreateUser(ctx, email, passwordHash, fullName, role)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperr.Conflict("User already exists")
		}
		return nil, apperr.Internal("Failed to register user", err)
	}

	log.Info().Int64("user_id", user.ID).Str("role", string(role)).Msg("User registered")
	return user, nil
}

// Profile returns the current user. Demo identities see their session snapshot.
func (s *AuthService) Profile(ctx context.Context, auth models.Authenticated) (models.SessionUser, error) {
	if auth.Demo {
		return auth.User(), nil
	}
	user, err := s.userRepo.GetUserByID(ctx, auth.Session.UserID)
	if err != nil {
		return models.SessionUser{}, apperr.Internal("Failed to load profile", err)
	}
	if user == nil {
		return models.SessionUser{}, apperr.NotFound("User not found")
	}
	return user.Snapshot(), nil
}

// UpdateProfile changes email and name and refreshes the session snapshot.
// Demo identities only change the snapshot and cannot change their email,
// since the email is what keeps them in the sandbox. Real accounts cannot
// take a demo email for the same reason.
func (s *AuthService) UpdateProfile(ctx context.Context, auth models.Authenticated, email, fullName string) (models.SessionUser, error) {
	email = strings.TrimSpace(email)
	fullName = strings.TrimSpace(fullName)
	if err := validation.ValidateEmail(email); err != nil {
		return models.SessionUser{}, err
	}
	if err := validation.ValidateName(fullName); err != nil {
		return models.SessionUser{}, err
	}

	sess := *auth.Session
	if auth.Demo {
		if !strings.EqualFold(email, sess.User.Email) {
			return models.SessionUser{}, apperr.Forbidden("Demo accounts cannot change their email")
		}
	} else {
		if s.demo.IsDemo(email) {
			return models.SessionUser{}, apperr.Forbidden("That email is reserved for demo accounts")
		}
		if err := s.userRepo.UpdateProfile(ctx, sess.UserID, email, fullName); err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) {
				return models.SessionUser{}, apperr.Conflict("Email already in use")
			}
			return models.SessionUser{}, apperr.Internal("Failed to update profile", err)
		}
		sess.User.Email = email
	}
	sess.User.FullName = fullName

	if err := s.sessions.Save(ctx, &sess); err != nil {
		return models.SessionUser{}, apperr.Internal("Failed to update profile", err)
	}
	return sess.User, nil
}

// ChangePassword replaces the password after checking the current one.
// Demo identities are checked but nothing is persisted.
func (s *AuthService) ChangePassword(ctx context.Context, auth models.Authenticated, current, next string) error {
	if current == "" {
		return validation.ValidationError{Field: "current_password", Message: "current_password is required"}
	}
	if err := validation.ValidatePassword(next); err != nil {
		return err
	}

	user, err := s.userRepo.GetUserByID(ctx, auth.Session.UserID)
	if err != nil {
		return apperr.Internal("Failed to change password", err)
	}
	if user == nil {
		return apperr.NotFound("User not found")
	}
	if !security.CheckPassword(current, user.PasswordHash) {
		return apperr.Unauthorized("Current password is incorrect")
	}
	if auth.Demo {
		return nil
	}

	passwordHash, err := security.HashPassword(next)
	if err != nil {
		return apperr.Internal("Failed to change password", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		return apperr.Internal("Failed to change password", err)
	}
	return nil
}

// CleanupExpiredSessions removes expired sessions from the store
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	return n, nil
}
