package domain

import "context"

// Mailer sends a rendered email.
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// EmailTemplate names a template set: a subject line, an HTML body and a
// plain-text body.
type EmailTemplate string

const TemplateSignupCode EmailTemplate = "signup_code"

// RenderedEmail is a template set executed against its data.
type RenderedEmail struct {
	Subject string
	HTML    string
	Text    string
}

// EmailTemplateRenderer renders a known template set with the given data.
type EmailTemplateRenderer interface {
	Render(name EmailTemplate, data any) (*RenderedEmail, error)
}

// SignupCodeEmailData holds data for the sign-up verification code email.
type SignupCodeEmailData struct {
	Email            string
	FullName         string
	Code             string
	ExpiresInMinutes int
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendSignupCode(ctx context.Context, data *SignupCodeEmailData) error
}
