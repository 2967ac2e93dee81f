package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"

	"account-service/internal/config"
	"account-service/internal/logger"
	appErrors "account-service/pkg/errors"

	"go.uber.org/zap"
)

// SMTPMailer delivers account emails over plain-auth SMTP. Sending is
// synchronous and happens inline in the request path; a failed relay
// surfaces as ErrMailUnavailable.
type SMTPMailer struct {
	cfg config.SMTPConfig
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) SendAccountConfirmation(ctx context.Context, recipient, username, link string) error {
	subject := "Verify Your Account"
	body := fmt.Sprintf(
		"Hi %s,\n\nYour registration is completed.\n\n"+
			"Please click the following link to confirm your account:\n%s\n\n"+
			"The link is valid for 15 minutes.\n",
		username, link,
	)

	return m.send(ctx, recipient, subject, body)
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, recipient, username, link string) error {
	subject := "Reset Your Password"
	body := fmt.Sprintf(
		"Hi %s,\n\nA password reset was requested for your account.\n\n"+
			"Please click the following link to choose a new password:\n%s\n\n"+
			"The link is valid for 15 minutes. If you did not request this, ignore this email.\n",
		username, link,
	)

	return m.send(ctx, recipient, subject, body)
}

func (m *SMTPMailer) SendEmailChangeConfirmation(ctx context.Context, recipient, username, link string) error {
	subject := "Confirm Your Email Address"
	body := fmt.Sprintf(
		"Hi %s,\n\nYou asked to use this address for your account.\n\n"+
			"Please click the following link to confirm the change:\n%s\n\n"+
			"The link is valid for 15 minutes.\n",
		username, link,
	)

	return m.send(ctx, recipient, subject, body)
}

func (m *SMTPMailer) send(ctx context.Context, recipient, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)

	from := m.cfg.From
	if from == "" {
		from = m.cfg.User
	}

	msg := []byte(
		"From: " + from + "\r\n" +
			"To: " + recipient + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=\"UTF-8\"\r\n" +
			"\r\n" + body,
	)

	if err := smtp.SendMail(addr, auth, from, []string{recipient}, msg); err != nil {
		logger.Error("Failed to send email",
			zap.String("recipient", recipient),
			zap.String("subject", subject),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", appErrors.ErrMailUnavailable, err)
	}

	logger.Info("Email sent",
		zap.String("recipient", recipient),
		zap.String("subject", subject),
		zap.String("event", "email_sent"),
	)

	return nil
}
