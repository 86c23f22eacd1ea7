package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"warsjawa/internal/domain"
)

type workshopService struct {
	logger       *slog.Logger
	codec        *domain.AliasCodec
	workshops    domain.WorkshopRepository
	users        domain.UserRepository
	tracker      *DeliveryTracker
	emails       domain.EmailService
	systemSender string
}

// NewWorkshopService creates the workshop relay with the given dependencies.
// systemSender is the from address used for messages injected over the API
// without an explicit sender.
func NewWorkshopService(
	logger *slog.Logger,
	codec *domain.AliasCodec,
	workshops domain.WorkshopRepository,
	users domain.UserRepository,
	tracker *DeliveryTracker,
	emails domain.EmailService,
	systemSender string,
) domain.WorkshopService {
	return &workshopService{
		logger:       logger,
		codec:        codec,
		workshops:    workshops,
		users:        users,
		tracker:      tracker,
		emails:       emails,
		systemSender: systemSender,
	}
}

func (s *workshopService) HandleInbound(ctx context.Context, in *domain.InboundEmail) error {
	secret, err := s.codec.ParseAddress(in.Recipient)
	if err != nil {
		return err
	}
	workshop, err := s.workshops.GetBySecret(ctx, secret)
	if err != nil {
		if errors.Is(err, domain.ErrWorkshopNotFound) {
			return domain.ErrWorkshopNotFound
		}
		return fmt.Errorf("get workshop by secret: %w", err)
	}
	msg := domain.NewInboundEmail(in.Sender, in.Subject, in.Text, in.HTML)
	return s.relay(ctx, workshop, msg)
}

// relay appends msg to the workshop log and fans it out to the recipient set
// snapshotted at append time. Mentors receive every message unconditionally;
// only attendee deliveries go through the ledger. A failure for one recipient
// never aborts the rest of the fan-out.
func (s *workshopService) relay(ctx context.Context, workshop *domain.Workshop, msg *domain.EmailMessage) error {
	snapshot, err := s.workshops.AppendEmail(ctx, workshop.WorkshopID, msg)
	if err != nil {
		return fmt.Errorf("append workshop email: %w", err)
	}

	for _, mentor := range snapshot.Mentors {
		if err := s.emails.ForwardWorkshopMessage(ctx, workshop, msg, mentor); err != nil {
			s.logger.WarnContext(ctx, "mentor forward failed",
				"workshop", workshop.WorkshopID, "mentor", mentor, "email_id", msg.EmailID, "err", err)
		}
	}
	for _, member := range snapshot.Members {
		if _, err := s.tracker.Deliver(ctx, workshop, msg, member); err != nil {
			s.logger.ErrorContext(ctx, "attendee delivery failed",
				"workshop", workshop.WorkshopID, "recipient", member, "email_id", msg.EmailID, "err", err)
		}
	}
	return nil
}

func (s *workshopService) Join(ctx context.Context, workshopID, email string) (bool, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return false, domain.ErrUserNotFound
		}
		return false, fmt.Errorf("get user: %w", err)
	}
	if !user.IsConfirmed {
		return false, domain.ErrUserNotConfirmed
	}

	workshop, err := s.workshops.GetByID(ctx, workshopID)
	if err != nil {
		if errors.Is(err, domain.ErrWorkshopNotFound) {
			return false, domain.ErrWorkshopNotFound
		}
		return false, fmt.Errorf("get workshop: %w", err)
	}

	added, err := s.workshops.AddMember(ctx, workshopID, email)
	if err != nil {
		return false, fmt.Errorf("add member: %w", err)
	}
	if !added {
		// Re-join. The ledger already covers everything sent before, so
		// replaying the backlog would be pure no-ops; skip it.
		return false, nil
	}

	backlog, err := s.workshops.ListEmails(ctx, workshopID)
	if err != nil {
		return true, fmt.Errorf("list workshop emails: %w", err)
	}
	for _, msg := range backlog {
		if _, err := s.tracker.Deliver(ctx, workshop, msg, email); err != nil {
			s.logger.ErrorContext(ctx, "backlog delivery failed",
				"workshop", workshopID, "recipient", email, "email_id", msg.EmailID, "err", err)
		}
	}
	return true, nil
}

func (s *workshopService) Leave(ctx context.Context, workshopID, email string) (bool, error) {
	// Membership only. The delivery ledger survives so rejoining later does
	// not re-send messages the attendee already received.
	removed, err := s.workshops.RemoveMember(ctx, workshopID, email)
	if err != nil {
		return false, fmt.Errorf("remove member: %w", err)
	}
	return removed, nil
}

func (s *workshopService) RegisterMessage(ctx context.Context, workshopID, sender, subject string, text, html *string) (*domain.EmailMessage, error) {
	workshop, err := s.workshops.GetByID(ctx, workshopID)
	if err != nil {
		if errors.Is(err, domain.ErrWorkshopNotFound) {
			return nil, domain.ErrWorkshopNotFound
		}
		return nil, fmt.Errorf("get workshop: %w", err)
	}
	if strings.TrimSpace(sender) == "" {
		sender = s.systemSender
	}
	msg := domain.NewInboundEmail(sender, subject, text, html)
	if err := s.relay(ctx, workshop, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *workshopService) Messages(ctx context.Context, workshopID string) ([]domain.PublicEmail, error) {
	if _, err := s.workshops.GetByID(ctx, workshopID); err != nil {
		if errors.Is(err, domain.ErrWorkshopNotFound) {
			return nil, domain.ErrWorkshopNotFound
		}
		return nil, fmt.Errorf("get workshop: %w", err)
	}
	msgs, err := s.workshops.ListEmails(ctx, workshopID)
	if err != nil {
		return nil, fmt.Errorf("list workshop emails: %w", err)
	}
	views := make([]domain.PublicEmail, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, m.PublicView())
	}
	return views, nil
}
