package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"warsjawa/internal/domain"
)

type contactService struct {
	logger   *slog.Logger
	users    domain.UserRepository
	votes    domain.VoteRepository
	sellData domain.SellDataRepository
	limiter  domain.RateLimiter
}

// NewContactService creates the badge directory service. limiter guards tag
// lookups per requester; votes and sellData record badge interactions.
func NewContactService(
	logger *slog.Logger,
	users domain.UserRepository,
	votes domain.VoteRepository,
	sellData domain.SellDataRepository,
	limiter domain.RateLimiter,
) domain.ContactService {
	return &contactService{
		logger:   logger,
		users:    users,
		votes:    votes,
		sellData: sellData,
		limiter:  limiter,
	}
}

func (s *contactService) ListContacts(ctx context.Context) ([]domain.Contact, error) {
	contacts, err := s.users.ListContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	if contacts == nil {
		contacts = []domain.Contact{}
	}
	return contacts, nil
}

func (s *contactService) AssignTag(ctx context.Context, email, tagID string) (bool, error) {
	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return false, domain.ErrUserNotFound
		}
		return false, fmt.Errorf("get user: %w", err)
	}

	holder, err := s.users.FindByTag(ctx, tagID)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return false, fmt.Errorf("find tag holder: %w", err)
	}
	if holder != nil {
		if holder.Email == email {
			return false, nil
		}
		// Badge handed to someone else: the previous owner keeps the tag in
		// their deleted set so old scans stay auditable.
		if err := s.users.RetireTag(ctx, holder.Email, tagID); err != nil {
			return false, fmt.Errorf("retire tag from previous owner: %w", err)
		}
	}

	added, err := s.users.AddTag(ctx, email, tagID)
	if err != nil {
		return false, fmt.Errorf("add tag: %w", err)
	}
	return added, nil
}

func (s *contactService) FindByTag(ctx context.Context, tagID, requester string) (domain.Contact, error) {
	if requester != "" {
		allowed, err := s.limiter.Allow(ctx, "contact-lookup:"+requester)
		if err != nil {
			// A broken limiter must not take the directory down with it.
			s.logger.WarnContext(ctx, "lookup limiter unavailable, allowing", "requester", requester, "err", err)
		} else if !allowed {
			return domain.Contact{}, domain.ErrRateLimited
		}
	}

	user, err := s.users.FindByTag(ctx, tagID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.Contact{}, domain.ErrUserNotFound
		}
		return domain.Contact{}, fmt.Errorf("find by tag: %w", err)
	}
	return domain.Contact{Name: user.Name, Email: user.Email}, nil
}

func (s *contactService) Vote(ctx context.Context, vote *domain.Vote) (domain.VoteOutcome, error) {
	outcome, err := s.votes.Put(ctx, vote)
	if err != nil {
		return 0, fmt.Errorf("store vote: %w", err)
	}
	return outcome, nil
}

func (s *contactService) SellData(ctx context.Context, mac, tagID string) error {
	if err := s.sellData.Record(ctx, mac, tagID); err != nil {
		return fmt.Errorf("record sell data: %w", err)
	}
	return nil
}
