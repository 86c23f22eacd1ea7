package domain

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

// EmailMessage is one message in a workshop's append-only log. It is immutable
// once created. EmailID is the identity used for delivery deduplication: two
// messages with identical content but different ids are distinct deliveries.
// Text and HTML are optional; a nil pointer means the part is absent and must
// stay absent through persistence and outbound sending (never an empty string).
type EmailMessage struct {
	EmailID    string
	Sender     string
	Subject    string
	Text       *string
	HTML       *string
	Date       time.Time
	RawMessage *string
}

// NewEmailID returns a fresh message id: 32 random bytes, hex-encoded.
// Effectively collision-free.
func NewEmailID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

// NewInboundEmail builds an EmailMessage from inbound transport fields,
// stamping a fresh id and the capture time.
func NewInboundEmail(sender, subject string, text, html *string) *EmailMessage {
	return &EmailMessage{
		EmailID: NewEmailID(),
		Sender:  sender,
		Subject: subject,
		Text:    text,
		HTML:    html,
		Date:    time.Now(),
	}
}

// Outbound maps the message to a send request for the given recipient. The
// original sender is kept as the from address.
func (m *EmailMessage) Outbound(to string) *OutboundMessage {
	return &OutboundMessage{
		To:      to,
		From:    m.Sender,
		Subject: m.Subject,
		Text:    m.Text,
		HTML:    m.HTML,
	}
}

// PublicEmail is the redacted projection of an EmailMessage for read-only
// listing endpoints: no message id, no html, no raw payload.
// swagger:model PublicEmail
type PublicEmail struct {
	From    string    `json:"from"`
	Subject string    `json:"subject"`
	Text    *string   `json:"text,omitempty"`
	Date    time.Time `json:"date"`
}

// PublicView returns the redacted projection of the message.
func (m *EmailMessage) PublicView() PublicEmail {
	return PublicEmail{
		From:    m.Sender,
		Subject: m.Subject,
		Text:    m.Text,
		Date:    m.Date,
	}
}

// OutboundMessage is the request handed to the outbound transport.
// Nil Text/HTML means the part is omitted from the provider request entirely.
type OutboundMessage struct {
	To      string
	From    string
	Subject string
	Text    *string
	HTML    *string
}

// InboundEmail is what the inbound webhook hands to the relay.
type InboundEmail struct {
	Recipient string
	Sender    string
	Subject   string
	Text      *string
	HTML      *string
}

// Mailer defines the contract for the outbound email transport.
type Mailer interface {
	Send(ctx context.Context, msg *OutboundMessage) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// MailErrorRepository records failed outbound sends for operator visibility.
// Failed sends are never retried automatically; the log is the only trace.
type MailErrorRepository interface {
	Record(ctx context.Context, msg *OutboundMessage, sendErr error) error
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendRegistrationInvite(ctx context.Context, user *User) error
	SendRegistrationDenied(ctx context.Context, user *User) error
	SendConfirmationWelcome(ctx context.Context, user *User) error
	SendConfirmationDenied(ctx context.Context, user *User) error
	SendMentorWelcome(ctx context.Context, workshop *Workshop, mentor string) error
	// ForwardWorkshopMessage wraps the original message in the workshop
	// forward template and sends it to one recipient, keeping the original
	// sender as the from address. A message without an html part is forwarded
	// without one.
	ForwardWorkshopMessage(ctx context.Context, workshop *Workshop, msg *EmailMessage, recipient string) error
}
