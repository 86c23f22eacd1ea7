package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for user operations.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserNotConfirmed  = errors.New("user not confirmed")
	ErrAlreadyRegistered = errors.New("user already registered and confirmed")
	ErrAlreadyConfirmed  = errors.New("user already confirmed")
	ErrInvalidEmail      = errors.New("invalid email format")
)

// User represents a prospective or confirmed attendee. Email is the unique key.
// Key is the registration secret mailed to the user; it is rotated on every
// repeat registration until the user confirms, and fixed afterwards.
// DeliveredEmails is the per-user delivery ledger: the set of workshop message
// ids already forwarded to this user. It only grows, even when the user leaves
// a workshop.
// swagger:model User
type User struct {
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Key              string    `json:"-"`
	IsConfirmed      bool      `json:"isConfirmed"`
	IsConfirmedTwice bool      `json:"isConfirmedTwice"`
	DeliveredEmails  []string  `json:"-"`
	NfcTags          []string  `json:"-"`
	DeletedNfcTags   []string  `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewUser returns an unconfirmed User with the given registration key and an
// empty delivery ledger.
func NewUser(email, name, key string, now time.Time) *User {
	return &User{
		Email:           email,
		Name:            name,
		Key:             key,
		DeliveredEmails: []string{},
		NfcTags:         []string{},
		DeletedNfcTags:  []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Contact is the public projection of a confirmed user for the badge directory.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserRepository defines the interface for user storage. All conditional
// updates are single-statement atomic operations; the reported bool is derived
// from the store's modified-row count, never from a prior read.
type UserRepository interface {
	Create(ctx context.Context, user *User) (created bool, err error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// RotateKey replaces name and key for an unconfirmed user. Reports false
	// when the user is missing or already confirmed.
	RotateKey(ctx context.Context, email, name, key string) (rotated bool, err error)
	// Confirm flips is_confirmed for the user matching email and key. The flip
	// is monotone: a confirmed user never matches again.
	Confirm(ctx context.Context, email, key string) (confirmed bool, err error)
	MarkConfirmedTwice(ctx context.Context, email string) error
	// MarkDelivered adds emailID to the user's delivery ledger, but only when
	// the ledger does not already contain it. Reports false both for an
	// already-delivered pair and for an unknown user; callers that need to
	// tell those apart must check existence first.
	MarkDelivered(ctx context.Context, email, emailID string) (marked bool, err error)
	ListContacts(ctx context.Context) ([]Contact, error)
	// ListConfirmedEmails returns confirmed addresses containing the given
	// substring, in stable order, capped at limit.
	ListConfirmedEmails(ctx context.Context, contains string, limit int) ([]string, error)
	FindByTag(ctx context.Context, tagID string) (*User, error)
	AddTag(ctx context.Context, email, tagID string) (added bool, err error)
	// RetireTag removes the tag from the user's live tags and records it in
	// the deleted set, so the history of reassigned badges is kept.
	RetireTag(ctx context.Context, email, tagID string) error
}

// UserService defines the business logic for registration and confirmation.
type UserService interface {
	// Register creates or refreshes an unconfirmed registration. Returns
	// created=true for a brand new user, created=false when an existing
	// unconfirmed registration had its key rotated, and ErrAlreadyRegistered
	// when the user is already confirmed.
	Register(ctx context.Context, email, name string) (user *User, created bool, err error)
	Confirm(ctx context.Context, email, key string) (*User, error)
	// ConfirmationLanding marks the user as twice-confirmed and returns the
	// workshops they are currently signed up for.
	ConfirmationLanding(ctx context.Context, email string) (*User, []*Workshop, error)
	// SendConfirmationReminders re-sends the confirmation email to up to count
	// confirmed users whose address contains query. Returns the number sent.
	SendConfirmationReminders(ctx context.Context, query string, count int) (int, error)
}
