package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// CodeSender delivers a recovery code out of band
type CodeSender interface {
	SendRecoveryCode(ctx context.Context, toEmail, toName, code string) error
}

// LogSender writes codes to the application log instead of delivering them.
// It is the default for development and demo deployments.
type LogSender struct{}

func (LogSender) SendRecoveryCode(_ context.Context, toEmail, _ string, code string) error {
	log.Info().Str("email", toEmail).Str("code", code).Msg("Recovery code issued (log delivery)")
	return nil
}

// recoveryMessage renders the subject and bodies shared by the mail senders
func recoveryMessage(toName, code string, ttlMinutes int) (subject, htmlBody, textBody string) {
	subject = "Your password recovery code"
	htmlBody = fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.code { font-size: 28px; letter-spacing: 6px; font-weight: bold; text-align: center; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<p>Hi %s,</p>
		<p>Use this code to reset your password:</p>
		<p class="code">%s</p>
		<p><strong>The code expires in %d minutes.</strong></p>
		<p>If you didn't request a password reset, you can safely ignore this email.</p>
		<div class="footer">
			<p>This is an automated email. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, toName, code, ttlMinutes)

	textBody = fmt.Sprintf(`Hi %s,

Use this code to reset your password: %s

The code expires in %d minutes.

If you didn't request a password reset, you can safely ignore this email.
`, toName, code, ttlMinutes)
	return subject, htmlBody, textBody
}
