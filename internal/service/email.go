package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

var ErrEmailNotConfigured = errors.New("email service not configured (missing RESEND_API_KEY)")

type EmailService struct {
	client  *resend.Client
	from    string
	isDev   bool
	appURL  string
	appName string
}

func NewEmailService(apiKey, from, appURL, appName string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:  client,
		from:    from,
		isDev:   isDev,
		appURL:  appURL,
		appName: appName,
	}
}

func (s *EmailService) SendWelcomeEmail(ctx context.Context, email string) error {
	subject, body := welcomeEmailTemplate(s.appURL+"/timeline", s.appName)
	return s.send(ctx, "welcome", email, subject, body)
}

func (s *EmailService) SendPremiumEmail(ctx context.Context, email string) error {
	subject, body := premiumEmailTemplate(s.appURL+"/settings", s.appName)
	return s.send(ctx, "premium", email, subject, body)
}

func (s *EmailService) SendAccountDeletedEmail(ctx context.Context, email string) error {
	subject, body := accountDeletedEmailTemplate(s.appName)
	return s.send(ctx, "account_deleted", email, subject, body)
}

func (s *EmailService) send(ctx context.Context, kind, to, subject, body string) error {
	if s.isDev {
		slog.Info("email sent (dev mode)", "type", kind, "to", to, "subject", subject)
		return nil
	}

	if s.client == nil {
		return ErrEmailNotConfigured
	}

	_, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	})
	if err != nil {
		return fmt.Errorf("failed to send %s email: %w", kind, err)
	}

	slog.Info("email sent", "type", kind, "to", to)
	return nil
}
