package services

import (
	"context"
	"fmt"
	"log/slog"

	"warsjawa/internal/domain"
)

// DeliveryTracker guarantees that a given (message, recipient) pair triggers
// at most one outbound send, across retries and concurrent relay invocations.
// The decision is a single atomic conditional update against the recipient's
// delivery ledger; exactly one concurrent attempt wins it.
type DeliveryTracker struct {
	logger *slog.Logger
	users  domain.UserRepository
	emails domain.EmailService
}

// NewDeliveryTracker creates a DeliveryTracker.
func NewDeliveryTracker(logger *slog.Logger, users domain.UserRepository, emails domain.EmailService) *DeliveryTracker {
	return &DeliveryTracker{
		logger: logger,
		users:  users,
		emails: emails,
	}
}

// Deliver forwards msg to recipient unless the recipient's ledger already
// holds the message id. The ledger is marked before the send: a duplicate
// invocation must never cause a duplicate send, even though this means a
// transport failure after the mark leaves the message undelivered to that
// recipient. Such failures are recorded and do not produce an error here, so
// a fan-out over many recipients is never aborted by one bad send.
//
// Reports sent=false when the pair was already delivered, the recipient is
// unknown (indistinguishable by contract), or the transport rejected the send.
func (t *DeliveryTracker) Deliver(ctx context.Context, workshop *domain.Workshop, msg *domain.EmailMessage, recipient string) (sent bool, err error) {
	marked, err := t.users.MarkDelivered(ctx, recipient, msg.EmailID)
	if err != nil {
		return false, fmt.Errorf("mark delivered: %w", err)
	}
	if !marked {
		return false, nil
	}
	if err := t.emails.ForwardWorkshopMessage(ctx, workshop, msg, recipient); err != nil {
		// The ledger mark stays. No automatic retry exists for this pair.
		t.logger.WarnContext(ctx, "workshop forward failed after ledger mark",
			"workshop", workshop.WorkshopID,
			"recipient", recipient,
			"email_id", msg.EmailID,
			"err", err,
		)
		return false, nil
	}
	return true, nil
}
