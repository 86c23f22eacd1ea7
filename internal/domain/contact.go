package domain

import (
	"context"
	"errors"
	"time"
)

// ErrRateLimited is returned when a requester exceeds the tag lookup quota.
var ErrRateLimited = errors.New("too many lookups")

// Vote is one badge vote: a device (mac) voting on an NFC tag.
// swagger:model Vote
type Vote struct {
	Mac        string    `json:"mac"`
	TagID      string    `json:"tagId"`
	IsPositive bool      `json:"isPositive"`
	VotedAt    time.Time `json:"timestamp"`
}

// VoteOutcome distinguishes a first vote, a changed vote, and a repeated
// identical vote. Repeats are no-ops, not errors.
type VoteOutcome int

const (
	VoteCreated VoteOutcome = iota
	VoteChanged
	VoteUnchanged
)

// VoteRepository stores badge votes keyed by (mac, tagId).
type VoteRepository interface {
	Put(ctx context.Context, vote *Vote) (VoteOutcome, error)
}

// SellDataRepository records "sell my data" consents from the badge system.
type SellDataRepository interface {
	Record(ctx context.Context, mac, tagID string) error
}

// RateLimiter limits repeated operations per key. Allow reports whether one
// more operation is within quota.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// ContactService defines the badge-facing directory and voting operations.
type ContactService interface {
	ListContacts(ctx context.Context) ([]Contact, error)
	// AssignTag associates the tag with the user, stealing it from a previous
	// owner if necessary. Reports created=false when the user already holds
	// the tag.
	AssignTag(ctx context.Context, email, tagID string) (created bool, err error)
	// FindByTag resolves a tag to a contact. When requester is non-empty the
	// lookup counts against that requester's quota and may return
	// ErrRateLimited.
	FindByTag(ctx context.Context, tagID, requester string) (Contact, error)
	Vote(ctx context.Context, vote *Vote) (VoteOutcome, error)
	SellData(ctx context.Context, mac, tagID string) error
}
