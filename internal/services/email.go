package services

import (
	"context"
	"fmt"
	"log/slog"

	"eventhub/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer, logger: logger}
}

// SendSignupCode sends the verification code email.
func (s *emailService) SendSignupCode(ctx context.Context, data *domain.SignupCodeEmailData) error {
	if data == nil {
		return fmt.Errorf("signup code email data is nil")
	}
	if data.Email == "" {
		return domain.NewValidationError("email", "is required")
	}
	msg, err := s.renderer.Render(domain.TemplateSignupCode, data)
	if err != nil {
		return fmt.Errorf("failed to render %s template: %w", domain.TemplateSignupCode, err)
	}
	if err := s.mailer.Send(ctx, data.Email, msg.Subject, msg.HTML, msg.Text); err != nil {
		return fmt.Errorf("failed to send signup code email: %w", err)
	}
	s.logger.InfoContext(ctx, "signup code sent", "email", data.Email)
	return nil
}
