package domain

import (
	"context"
	"errors"
	"time"
)

// ErrWorkshopNotFound is returned when a workshop id or alias secret matches
// no known workshop. Inbound mail for an unknown alias is dropped without a
// bounce.
var ErrWorkshopNotFound = errors.New("workshop not found")

// Workshop is a conference workshop with its own inbound mailing alias.
// EmailSecret is assigned once at creation and never changes; it is used only
// to build and parse the alias address. Mentors are fixed at creation.
// swagger:model Workshop
type Workshop struct {
	WorkshopID  string    `json:"workshopId"`
	EmailSecret string    `json:"-"`
	Name        string    `json:"name"`
	Mentors     []string  `json:"mentors"`
	CreatedAt   time.Time `json:"created_at"`
}

// DisplayName returns the workshop name, falling back to the id.
func (w *Workshop) DisplayName() string {
	if w.Name != "" {
		return w.Name
	}
	return w.WorkshopID
}

// RecipientSnapshot is the recipient set of a workshop as it existed at the
// moment a message was appended to its log.
type RecipientSnapshot struct {
	Members []string
	Mentors []string
}

// WorkshopRepository defines storage operations for workshops, their mutable
// membership set, and their append-only message log.
type WorkshopRepository interface {
	// Ensure creates the workshop if it does not exist yet. The caller
	// provides a freshly generated email secret, which is persisted only on
	// first insert; an existing workshop keeps its original secret.
	Ensure(ctx context.Context, workshop *Workshop) (created bool, err error)
	GetByID(ctx context.Context, workshopID string) (*Workshop, error)
	GetBySecret(ctx context.Context, secret string) (*Workshop, error)
	// AppendEmail appends the message to the workshop's log and returns the
	// recipient set as it existed at append time, in one atomic operation.
	AppendEmail(ctx context.Context, workshopID string, msg *EmailMessage) (*RecipientSnapshot, error)
	// AddMember adds the attendee to the workshop's recipient set. Reports
	// false when the attendee was already a member; re-joining is a no-op,
	// not an error.
	AddMember(ctx context.Context, workshopID, email string) (added bool, err error)
	RemoveMember(ctx context.Context, workshopID, email string) (removed bool, err error)
	// ListEmails returns the full message log in chronological order.
	ListEmails(ctx context.Context, workshopID string) ([]*EmailMessage, error)
	ListByMember(ctx context.Context, email string) ([]*Workshop, error)
}

// WorkshopService is the relay: it fans inbound workshop mail out to mentors
// and members, and drives backlog replay when an attendee joins.
type WorkshopService interface {
	// HandleInbound resolves the workshop from the recipient alias, appends
	// the message to its log and relays it to the recipient snapshot.
	// Returns ErrMalformedAddress or ErrWorkshopNotFound without side effects.
	HandleInbound(ctx context.Context, in *InboundEmail) error
	// Join adds a confirmed attendee to the workshop and, on first-time join,
	// replays the whole message backlog through the delivery ledger. Reports
	// joined=false for a re-join, which triggers nothing.
	Join(ctx context.Context, workshopID, email string) (joined bool, err error)
	// Leave removes the attendee from the recipient set. The delivery ledger
	// is deliberately left intact so a later re-join does not re-send
	// anything already seen.
	Leave(ctx context.Context, workshopID, email string) (removed bool, err error)
	// RegisterMessage injects a message into the workshop log directly (for
	// announcements posted over the API rather than by inbound mail) and
	// relays it exactly like inbound mail. An empty sender falls back to the
	// system sender.
	RegisterMessage(ctx context.Context, workshopID, sender, subject string, text, html *string) (*EmailMessage, error)
	Messages(ctx context.Context, workshopID string) ([]PublicEmail, error)
}
