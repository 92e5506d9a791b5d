package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"
)

// mailDialer is the part of gomail.Dialer the sender uses
type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender delivers recovery codes through a plain SMTP relay
type SMTPSender struct {
	dialer     mailDialer
	from       string
	ttlMinutes int
}

// NewSMTPSender creates a sender for the given relay
func NewSMTPSender(host string, port int, username, password, from string, ttlMinutes int) *SMTPSender {
	return &SMTPSender{
		dialer:     gomail.NewDialer(host, port, username, password),
		from:       from,
		ttlMinutes: ttlMinutes,
	}
}

// SendRecoveryCode emails a recovery code. gomail has no context support, so
// ctx is only checked before dialing.
func (s *SMTPSender) SendRecoveryCode(ctx context.Context, toEmail, toName, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, htmlBody, textBody := recoveryMessage(toName, code, s.ttlMinutes)

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send recovery email: %w", err)
	}

	log.Info().Str("to", toEmail).Msg("Recovery email sent")
	return nil
}
