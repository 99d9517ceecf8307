package services

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"

	"github.com/resend/resend-go/v2"

	"github.com/artcontest/judging-system/config"
)

//go:embed templates/emails/*.html
var emailTemplates embed.FS

// Mailer is what the auth and judge services need from the email layer.
// Tests substitute a recording fake.
type Mailer interface {
	SendJudgeInvitation(ctx context.Context, to, inviteLink string) error
	SendMagicLink(ctx context.Context, to, loginLink string) error
	SendLoginCode(ctx context.Context, to, code string) error
	SendPasswordReset(ctx context.Context, to, resetLink string) error
}

// EmailService delivers transactional email through the Resend API. When
// disabled (local development) it logs the message instead of sending.
type EmailService struct {
	client    *resend.Client
	from      string
	enabled   bool
	templates *template.Template
	logger    *slog.Logger
}

func NewEmailService(cfg *config.Config, client *resend.Client, logger *slog.Logger) (*EmailService, error) {
	if cfg.EmailEnabled {
		if err := validateEmailAddress(cfg.EmailFrom); err != nil {
			return nil, fmt.Errorf("invalid sender email in config: %w", err)
		}
	}

	templates, err := template.ParseFS(emailTemplates, "templates/emails/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &EmailService{
		client:    client,
		from:      cfg.EmailFrom,
		enabled:   cfg.EmailEnabled,
		templates: templates,
		logger:    logger,
	}, nil
}

func (s *EmailService) SendJudgeInvitation(ctx context.Context, to, inviteLink string) error {
	if err := validateLinkURL(inviteLink); err != nil {
		return fmt.Errorf("invalid invite link: %w", err)
	}
	data := struct {
		Email      string
		InviteLink string
	}{Email: to, InviteLink: inviteLink}

	return s.sendTemplate(ctx, to, "You are invited to judge the art contest", "judge_invitation.html", data)
}

func (s *EmailService) SendMagicLink(ctx context.Context, to, loginLink string) error {
	if err := validateLinkURL(loginLink); err != nil {
		return fmt.Errorf("invalid login link: %w", err)
	}
	data := struct {
		Email     string
		LoginLink string
	}{Email: to, LoginLink: loginLink}

	return s.sendTemplate(ctx, to, "Your sign-in link", "magic_link.html", data)
}

func (s *EmailService) SendLoginCode(ctx context.Context, to, code string) error {
	data := struct {
		Email string
		Code  string
	}{Email: to, Code: code}

	return s.sendTemplate(ctx, to, "Your one-time login code", "login_code.html", data)
}

func (s *EmailService) SendPasswordReset(ctx context.Context, to, resetLink string) error {
	if err := validateLinkURL(resetLink); err != nil {
		return fmt.Errorf("invalid reset link: %w", err)
	}
	data := struct {
		Email     string
		ResetLink string
	}{Email: to, ResetLink: resetLink}

	return s.sendTemplate(ctx, to, "Reset your password", "password_reset.html", data)
}

func (s *EmailService) sendTemplate(ctx context.Context, to, subject, templateName string, data interface{}) error {
	if err := validateEmailAddress(to); err != nil {
		return fmt.Errorf("invalid recipient email: %w", err)
	}

	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return fmt.Errorf("failed to render template %s: %w", templateName, err)
	}

	if !s.enabled {
		s.logger.Info("email disabled, skipping send",
			slog.String("to", to),
			slog.String("subject", subject),
		)
		return nil
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    body.String(),
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		var rateLimitErr *resend.RateLimitError
		if errors.As(err, &rateLimitErr) {
			return fmt.Errorf("email rate limit exceeded (resets in %s seconds): %w", rateLimitErr.Reset, err)
		}
		return fmt.Errorf("resend API error: %w", err)
	}

	s.logger.Info("email sent",
		slog.String("email_id", sent.Id),
		slog.String("to", to),
		slog.String("subject", subject),
	)
	return nil
}

func validateEmailAddress(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	// Reject header injection attempts.
	if strings.ContainsAny(addr.Address, "\r\n") {
		return fmt.Errorf("invalid email address: contains newline characters")
	}
	return nil
}

// validateLinkURL rejects anything but http(s) so a poisoned base URL can
// never smuggle javascript: or data: schemes into an email.
func validateLinkURL(link string) error {
	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme %q is not allowed", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL host is required")
	}
	return nil
}
