package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"warsjawa/internal/domain"
)

type mockMailer struct {
	sent []*domain.OutboundMessage
	err  error
}

func (m *mockMailer) Send(ctx context.Context, msg *domain.OutboundMessage) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type mockMailErrorRepo struct {
	recorded []*domain.OutboundMessage
}

func (m *mockMailErrorRepo) Record(ctx context.Context, msg *domain.OutboundMessage, sendErr error) error {
	m.recorded = append(m.recorded, msg)
	return nil
}

// stubRenderer echoes its inputs so tests can assert data flow without
// depending on template wording.
type stubRenderer struct{}

func (stubRenderer) Render(templateName string, data any) (string, string, string, error) {
	switch d := data.(type) {
	case *forwardEmailData:
		return "[" + d.WorkshopName + "] " + d.OriginalSubject, string(d.HTMLBody), d.PlainBody, nil
	case *userEmailData:
		return templateName + " for " + d.Name, "<p>" + d.Key + "</p>", d.Key, nil
	case *mentorWelcomeData:
		return templateName, d.WorkshopEmail, d.WorkshopEmail, nil
	}
	return templateName, "", "", nil
}

func newEmailFixture(mailer *mockMailer) (domain.EmailService, *mockMailErrorRepo) {
	mailErrors := &mockMailErrorRepo{}
	svc := NewEmailService(testLogger(), mailer, stubRenderer{}, mailErrors, domain.NewAliasCodec(testDomain), testSender)
	return svc, mailErrors
}

func TestForwardWorkshopMessage_KeepsOriginalSender(t *testing.T) {
	mailer := &mockMailer{}
	svc, _ := newEmailFixture(mailer)
	msg := domain.NewInboundEmail("mentor@example.com", "Link to repository", strptr("text"), strptr("<p>text</p>"))

	if err := svc.ForwardWorkshopMessage(context.Background(), testWorkshop(), msg, "jan@kowalski.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("expected one send, got %d", len(mailer.sent))
	}
	out := mailer.sent[0]
	if out.From != "mentor@example.com" {
		t.Fatalf("forward must keep the original sender, got %q", out.From)
	}
	if out.To != "jan@kowalski.com" {
		t.Fatalf("unexpected recipient %q", out.To)
	}
	if !strings.Contains(out.Subject, "Link to repository") {
		t.Fatalf("subject must carry the original subject, got %q", out.Subject)
	}
	if out.HTML == nil || *out.HTML == "" {
		t.Fatal("html original must be forwarded with an html part")
	}
}

func TestForwardWorkshopMessage_TextOnlyStaysTextOnly(t *testing.T) {
	mailer := &mockMailer{}
	svc, _ := newEmailFixture(mailer)
	msg := domain.NewInboundEmail("mentor@example.com", "Intro", strptr("plain"), nil)

	if err := svc.ForwardWorkshopMessage(context.Background(), testWorkshop(), msg, "jan@kowalski.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mailer.sent[0].HTML != nil {
		t.Fatal("a text-only original must not grow an html part")
	}
}

func TestSend_FailureIsRecorded(t *testing.T) {
	mailer := &mockMailer{err: errors.New("mailgun 500")}
	svc, mailErrors := newEmailFixture(mailer)
	user := confirmedUser("jan@kowalski.com")

	err := svc.SendRegistrationInvite(context.Background(), user)
	if err == nil {
		t.Fatal("expected the transport error to propagate")
	}
	if len(mailErrors.recorded) != 1 {
		t.Fatalf("expected the failure recorded, got %d records", len(mailErrors.recorded))
	}
	if mailErrors.recorded[0].To != "jan@kowalski.com" {
		t.Fatalf("unexpected recorded recipient: %q", mailErrors.recorded[0].To)
	}
}

func TestSendMentorWelcome_CarriesAlias(t *testing.T) {
	mailer := &mockMailer{}
	svc, _ := newEmailFixture(mailer)
	workshop := testWorkshop()

	if err := svc.SendMentorWelcome(context.Background(), workshop, "jan@kowalski.pl"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := mailer.sent[0]
	if out.From != testSender {
		t.Fatalf("mentor welcome must come from the system sender, got %q", out.From)
	}
	if out.Text == nil || !strings.Contains(*out.Text, "workshop-tajny-kod@"+testDomain) {
		t.Fatalf("mentor welcome must carry the workshop alias, got %v", out.Text)
	}
}
