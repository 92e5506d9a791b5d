package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"clinichistory/internal/apperr"
	"clinichistory/internal/credentials"
	"clinichistory/internal/recovery"
	"clinichistory/internal/repository"
	"clinichistory/internal/security"
	"clinichistory/internal/validation"
)

// DefaultCodeTTL is how long a recovery code stays valid
const DefaultCodeTTL = 15 * time.Minute

// RecoveryService runs the code based password reset flow
type RecoveryService struct {
	userRepo *repository.UserRepository
	codes    recovery.Store
	sender   CodeSender
	demo     DemoPolicy
	ttl      time.Duration
	now      func() time.Time
	generate func() (string, error)
}

// NewRecoveryService creates a new recovery service. A zero ttl uses DefaultCodeTTL.
func NewRecoveryService(userRepo *repository.UserRepository, codes recovery.Store, sender CodeSender, demo DemoPolicy, ttl time.Duration) *RecoveryService {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	return &RecoveryService{
		userRepo: userRepo,
		codes:    codes,
		sender:   sender,
		demo:     demo,
		ttl:      ttl,
		now:      time.Now,
		generate: credentials.GenerateRecoveryCode,
	}
}

// RequestReset issues a new code for email, replacing any outstanding one
func (s *RecoveryService) RequestReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperr.Validation("Email is required")
	}

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return apperr.Internal("Failed to request recovery code", err)
	}
	if user == nil {
		return apperr.NotFound("User not found")
	}

	code, err := s.generate()
	if err != nil {
		return apperr.Internal("Failed to request recovery code", err)
	}
	c := recovery.Code{Email: email, Code: code, ExpiresAt: s.now().Add(s.ttl)}
	if err := s.codes.Put(ctx, c); err != nil {
		return apperr.Internal("Failed to request recovery code", err)
	}

	if err := s.sender.SendRecoveryCode(ctx, user.Email, user.FullName, code); err != nil {
		return apperr.Internal("Failed to send recovery code", err)
	}
	log.Info().Int64("user_id", user.ID).Time("expires_at", c.ExpiresAt).Msg("Recovery code requested")
	return nil
}

// ResetWithCode sets a new password if code is the outstanding, unexpired
// code for email. The code is consumed with a compare-and-delete before the
// password is written, so concurrent resets with one code cannot both succeed
// and a code issued in between is never removed by a stale reset. Demo identities
// consume the code but keep their password; the returned flag reports that.
func (s *RecoveryService) ResetWithCode(ctx context.Context, email, code, password string) (bool, error) {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" || password == "" {
		return false, apperr.Validation("Email, code and password are required")
	}

	outstanding, err := s.codes.Get(ctx, email)
	if err != nil {
		return false, apperr.Internal("Failed to reset password", err)
	}
	if outstanding == nil {
		return false, apperr.Validation("Request a recovery code first")
	}
	if !s.now().Before(outstanding.ExpiresAt) {
		if _, err := s.codes.Consume(ctx, email, outstanding.Code); err != nil {
			log.Warn().Err(err).Msg("Failed to drop expired recovery code")
		}
		return false, apperr.Validation("Recovery code expired")
	}
	if outstanding.Code != code {
		return false, apperr.Validation("Invalid recovery code")
	}
	if err := validation.ValidatePassword(password); err != nil {
		return false, err
	}

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return false, apperr.Internal("Failed to reset password", err)
	}
	if user == nil {
		return false, apperr.NotFound("User not found")
	}

	consumed, err := s.codes.Consume(ctx, email, code)
	if err != nil {
		return false, apperr.Internal("Failed to reset password", err)
	}
	if !consumed {
		return false, apperr.Validation("Invalid recovery code")
	}

	if s.demo.IsDemo(user.Email) {
		log.Info().Int64("user_id", user.ID).Msg("Demo password reset accepted without persisting")
		return true, nil
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return false, apperr.Internal("Failed to reset password", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		return false, apperr.Internal("Failed to reset password", err)
	}

	log.Info().Int64("user_id", user.ID).Msg("Password reset with recovery code")
	return false, nil
}
