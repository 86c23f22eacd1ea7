package services

import (
	"context"
	"errors"
	"testing"

	"warsjawa/internal/domain"
)

type mockVoteRepo struct {
	outcome domain.VoteOutcome
	votes   []*domain.Vote
}

func (m *mockVoteRepo) Put(ctx context.Context, vote *domain.Vote) (domain.VoteOutcome, error) {
	m.votes = append(m.votes, vote)
	return m.outcome, nil
}

type mockSellDataRepo struct {
	records [][2]string
}

func (m *mockSellDataRepo) Record(ctx context.Context, mac, tagID string) error {
	m.records = append(m.records, [2]string{mac, tagID})
	return nil
}

type stubLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (s *stubLimiter) Allow(ctx context.Context, key string) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.err
}

func newContactFixture(users *mockUserRepo, limiter domain.RateLimiter) (domain.ContactService, *mockVoteRepo, *mockSellDataRepo) {
	votes := &mockVoteRepo{}
	sells := &mockSellDataRepo{}
	return NewContactService(testLogger(), users, votes, sells, limiter), votes, sells
}

func TestListContacts_OnlyConfirmed(t *testing.T) {
	ctx := context.Background()
	users := newMockUserRepo(
		confirmedUser("jan@kowalski.com"),
		domain.NewUser("pending@example.com", "Pending", "KEY", testTime()),
	)
	svc, _, _ := newContactFixture(users, &stubLimiter{allowed: true})

	contacts, err := svc.ListContacts(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contacts) != 1 || contacts[0].Email != "jan@kowalski.com" {
		t.Fatalf("unexpected contacts: %+v", contacts)
	}
}

func TestAssignTag(t *testing.T) {
	ctx := context.Background()
	users := newMockUserRepo(confirmedUser("jan@kowalski.com"), confirmedUser("bob@example.com"))
	svc, _, _ := newContactFixture(users, &stubLimiter{allowed: true})

	created, err := svc.AssignTag(ctx, "bob@example.com", "TAG_ID")
	if err != nil || !created {
		t.Fatalf("first assignment: created=%v err=%v", created, err)
	}

	created, err = svc.AssignTag(ctx, "bob@example.com", "TAG_ID")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatal("re-assigning to the same user must be a no-op")
	}

	// Tag moves to another user; the previous owner keeps a deleted record.
	created, err = svc.AssignTag(ctx, "jan@kowalski.com", "TAG_ID")
	if err != nil || !created {
		t.Fatalf("reassignment: created=%v err=%v", created, err)
	}
	bob, _ := users.GetByEmail(ctx, "bob@example.com")
	if len(bob.NfcTags) != 0 || len(bob.DeletedNfcTags) != 1 || bob.DeletedNfcTags[0] != "TAG_ID" {
		t.Fatalf("previous owner bookkeeping wrong: %+v", bob)
	}
	holder, _ := users.FindByTag(ctx, "TAG_ID")
	if holder.Email != "jan@kowalski.com" {
		t.Fatalf("tag must resolve to the new owner, got %s", holder.Email)
	}

	if _, err := svc.AssignTag(ctx, "ghost@example.com", "TAG_ID"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestFindByTag(t *testing.T) {
	ctx := context.Background()
	owner := confirmedUser("jan@kowalski.com")
	owner.NfcTags = []string{"TAG_ID"}
	users := newMockUserRepo(owner)

	t.Run("anonymous lookup skips the limiter", func(t *testing.T) {
		limiter := &stubLimiter{allowed: false}
		svc, _, _ := newContactFixture(users, limiter)
		contact, err := svc.FindByTag(ctx, "TAG_ID", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if contact.Email != "jan@kowalski.com" {
			t.Fatalf("unexpected contact: %+v", contact)
		}
		if len(limiter.keys) != 0 {
			t.Fatal("anonymous lookups must not consume quota")
		}
	})

	t.Run("over quota", func(t *testing.T) {
		svc, _, _ := newContactFixture(users, &stubLimiter{allowed: false})
		if _, err := svc.FindByTag(ctx, "TAG_ID", "x"); !errors.Is(err, domain.ErrRateLimited) {
			t.Fatalf("expected ErrRateLimited, got %v", err)
		}
	})

	t.Run("limiter outage fails open", func(t *testing.T) {
		svc, _, _ := newContactFixture(users, &stubLimiter{err: errors.New("redis down")})
		if _, err := svc.FindByTag(ctx, "TAG_ID", "x"); err != nil {
			t.Fatalf("limiter outage must not block lookups, got %v", err)
		}
	})

	t.Run("unknown tag", func(t *testing.T) {
		svc, _, _ := newContactFixture(users, &stubLimiter{allowed: true})
		if _, err := svc.FindByTag(ctx, "OTHER", ""); !errors.Is(err, domain.ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})
}

func TestVoteAndSellData(t *testing.T) {
	ctx := context.Background()
	users := newMockUserRepo()
	svc, votes, sells := newContactFixture(users, &stubLimiter{allowed: true})
	votes.outcome = domain.VoteChanged

	outcome, err := svc.Vote(ctx, &domain.Vote{Mac: "MAC", TagID: "TAG_ID", IsPositive: true, VotedAt: testTime()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != domain.VoteChanged {
		t.Fatalf("unexpected outcome: %v", outcome)
	}
	if len(votes.votes) != 1 {
		t.Fatalf("expected vote stored, got %d", len(votes.votes))
	}

	if err := svc.SellData(ctx, "MAC", "TAG_ID"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sells.records) != 1 || sells.records[0] != [2]string{"MAC", "TAG_ID"} {
		t.Fatalf("unexpected sell data records: %+v", sells.records)
	}
}
