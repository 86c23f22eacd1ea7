package services

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"

	"warsjawa/internal/domain"
)

type emailService struct {
	logger     *slog.Logger
	mailer     domain.Mailer
	renderer   domain.EmailTemplateRenderer
	mailErrors domain.MailErrorRepository
	codec      *domain.AliasCodec
	sender     string
}

// NewEmailService returns an EmailService that renders the embedded templates
// and sends through the given Mailer. sender is the system from address used
// for all lifecycle emails (forwards keep the original sender instead).
func NewEmailService(
	logger *slog.Logger,
	mailer domain.Mailer,
	renderer domain.EmailTemplateRenderer,
	mailErrors domain.MailErrorRepository,
	codec *domain.AliasCodec,
	sender string,
) domain.EmailService {
	return &emailService{
		logger:     logger,
		mailer:     mailer,
		renderer:   renderer,
		mailErrors: mailErrors,
		codec:      codec,
		sender:     sender,
	}
}

// userEmailData holds data for the registration and confirmation templates.
type userEmailData struct {
	Name         string
	Key          string
	Email        string
	EscapedEmail string
}

// forwardEmailData holds data for the workshop forward template. HTMLBody is
// the sender's own markup and must not be escaped again when templated.
type forwardEmailData struct {
	WorkshopName    string
	OriginalSubject string
	PlainBody       string
	HTMLBody        template.HTML
}

// mentorWelcomeData holds data for the mentor welcome template.
type mentorWelcomeData struct {
	WorkshopName  string
	WorkshopEmail string
}

func (s *emailService) SendRegistrationInvite(ctx context.Context, user *domain.User) error {
	return s.sendUserTemplate(ctx, "user_registration", user)
}

func (s *emailService) SendRegistrationDenied(ctx context.Context, user *domain.User) error {
	return s.sendUserTemplate(ctx, "registration_denied", user)
}

func (s *emailService) SendConfirmationWelcome(ctx context.Context, user *domain.User) error {
	return s.sendUserTemplate(ctx, "user_confirmation", user)
}

func (s *emailService) SendConfirmationDenied(ctx context.Context, user *domain.User) error {
	return s.sendUserTemplate(ctx, "confirmation_denied", user)
}

func (s *emailService) SendMentorWelcome(ctx context.Context, workshop *domain.Workshop, mentor string) error {
	data := &mentorWelcomeData{
		WorkshopName:  workshop.DisplayName(),
		WorkshopEmail: s.codec.Address(workshop.EmailSecret),
	}
	subject, html, text, err := s.renderer.Render("mentor_welcome", data)
	if err != nil {
		return fmt.Errorf("render mentor_welcome: %w", err)
	}
	return s.send(ctx, &domain.OutboundMessage{
		To:      mentor,
		From:    s.sender,
		Subject: subject,
		Text:    &text,
		HTML:    &html,
	})
}

func (s *emailService) ForwardWorkshopMessage(ctx context.Context, workshop *domain.Workshop, msg *domain.EmailMessage, recipient string) error {
	data := &forwardEmailData{
		WorkshopName:    workshop.DisplayName(),
		OriginalSubject: msg.Subject,
	}
	if msg.Text != nil {
		data.PlainBody = *msg.Text
	}
	if msg.HTML != nil {
		data.HTMLBody = template.HTML(*msg.HTML)
	}
	subject, html, text, err := s.renderer.Render("workshop_forward", data)
	if err != nil {
		return fmt.Errorf("render workshop_forward: %w", err)
	}

	out := &domain.OutboundMessage{
		To:      recipient,
		From:    msg.Sender,
		Subject: subject,
		Text:    &text,
	}
	// A text-only original stays text-only; rendering must not invent an
	// html part the sender never wrote.
	if msg.HTML != nil {
		out.HTML = &html
	}
	return s.send(ctx, out)
}

func (s *emailService) sendUserTemplate(ctx context.Context, templateName string, user *domain.User) error {
	data := &userEmailData{
		Name:         user.Name,
		Key:          user.Key,
		Email:        user.Email,
		EscapedEmail: url.QueryEscape(user.Email),
	}
	subject, html, text, err := s.renderer.Render(templateName, data)
	if err != nil {
		return fmt.Errorf("render %s: %w", templateName, err)
	}
	return s.send(ctx, &domain.OutboundMessage{
		To:      user.Email,
		From:    s.sender,
		Subject: subject,
		Text:    &text,
		HTML:    &html,
	})
}

// send hands the message to the transport and, on failure, records it in the
// mail error log. Failures are never retried.
func (s *emailService) send(ctx context.Context, out *domain.OutboundMessage) error {
	if err := s.mailer.Send(ctx, out); err != nil {
		if recErr := s.mailErrors.Record(ctx, out, err); recErr != nil {
			s.logger.ErrorContext(ctx, "recording mail error failed", "recipient", out.To, "err", recErr)
		}
		return fmt.Errorf("send to %s: %w", out.To, err)
	}
	return nil
}
