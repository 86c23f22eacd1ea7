package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"warsjawa/internal/domain"
)

func testTime() time.Time {
	return time.Date(2014, 9, 18, 10, 32, 59, 0, time.UTC)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func strptr(s string) *string { return &s }

// mockUserRepo keeps users in memory. MarkDelivered mimics the store's atomic
// conditional update under a mutex so concurrent tests exercise the
// one-winner contract.
type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMockUserRepo(users ...*domain.User) *mockUserRepo {
	m := &mockUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		m.users[u.Email] = u
	}
	return m
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; ok {
		return false, nil
	}
	copy := *user
	m.users[user.Email] = &copy
	return true, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copy := *u
	return &copy, nil
}

func (m *mockUserRepo) RotateKey(ctx context.Context, email, name, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok || u.IsConfirmed {
		return false, nil
	}
	u.Name = name
	u.Key = key
	return true, nil
}

func (m *mockUserRepo) Confirm(ctx context.Context, email, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok || u.IsConfirmed || u.Key != key {
		return false, nil
	}
	u.IsConfirmed = true
	return true, nil
}

func (m *mockUserRepo) MarkConfirmedTwice(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[email]; ok {
		u.IsConfirmedTwice = true
	}
	return nil
}

func (m *mockUserRepo) MarkDelivered(ctx context.Context, email, emailID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return false, nil
	}
	for _, id := range u.DeliveredEmails {
		if id == emailID {
			return false, nil
		}
	}
	u.DeliveredEmails = append(u.DeliveredEmails, emailID)
	return true, nil
}

func (m *mockUserRepo) ListContacts(ctx context.Context) ([]domain.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var contacts []domain.Contact
	for _, u := range m.users {
		if u.IsConfirmed {
			contacts = append(contacts, domain.Contact{Name: u.Name, Email: u.Email})
		}
	}
	return contacts, nil
}

func (m *mockUserRepo) ListConfirmedEmails(ctx context.Context, contains string, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for email, u := range m.users {
		if u.IsConfirmed && len(out) < limit && containsStr(email, contains) {
			out = append(out, email)
		}
	}
	return out, nil
}

func containsStr(s, sub string) bool {
	if sub == "" {
		return true
	}
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

func (m *mockUserRepo) FindByTag(ctx context.Context, tagID string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		for _, tag := range u.NfcTags {
			if tag == tagID {
				copy := *u
				return &copy, nil
			}
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepo) AddTag(ctx context.Context, email, tagID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return false, nil
	}
	for _, tag := range u.NfcTags {
		if tag == tagID {
			return false, nil
		}
	}
	u.NfcTags = append(u.NfcTags, tagID)
	return true, nil
}

func (m *mockUserRepo) RetireTag(ctx context.Context, email, tagID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil
	}
	var kept []string
	for _, tag := range u.NfcTags {
		if tag != tagID {
			kept = append(kept, tag)
		}
	}
	u.NfcTags = kept
	u.DeletedNfcTags = append(u.DeletedNfcTags, tagID)
	return nil
}

// mockWorkshopRepo keeps workshops, membership and message logs in memory.
type mockWorkshopRepo struct {
	mu        sync.Mutex
	workshops map[string]*domain.Workshop
	members   map[string]map[string]struct{}
	emails    map[string][]*domain.EmailMessage
}

func newMockWorkshopRepo(workshops ...*domain.Workshop) *mockWorkshopRepo {
	m := &mockWorkshopRepo{
		workshops: make(map[string]*domain.Workshop),
		members:   make(map[string]map[string]struct{}),
		emails:    make(map[string][]*domain.EmailMessage),
	}
	for _, w := range workshops {
		m.workshops[w.WorkshopID] = w
		m.members[w.WorkshopID] = make(map[string]struct{})
	}
	return m
}

func (m *mockWorkshopRepo) Ensure(ctx context.Context, workshop *domain.Workshop) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workshops[workshop.WorkshopID]; ok {
		return false, nil
	}
	m.workshops[workshop.WorkshopID] = workshop
	m.members[workshop.WorkshopID] = make(map[string]struct{})
	return true, nil
}

func (m *mockWorkshopRepo) GetByID(ctx context.Context, workshopID string) (*domain.Workshop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workshops[workshopID]
	if !ok {
		return nil, domain.ErrWorkshopNotFound
	}
	return w, nil
}

func (m *mockWorkshopRepo) GetBySecret(ctx context.Context, secret string) (*domain.Workshop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.workshops {
		if w.EmailSecret == secret {
			return w, nil
		}
	}
	return nil, domain.ErrWorkshopNotFound
}

func (m *mockWorkshopRepo) AppendEmail(ctx context.Context, workshopID string, msg *domain.EmailMessage) (*domain.RecipientSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workshops[workshopID]
	if !ok {
		return nil, domain.ErrWorkshopNotFound
	}
	m.emails[workshopID] = append(m.emails[workshopID], msg)
	snapshot := &domain.RecipientSnapshot{Mentors: append([]string(nil), w.Mentors...)}
	for member := range m.members[workshopID] {
		snapshot.Members = append(snapshot.Members, member)
	}
	return snapshot, nil
}

func (m *mockWorkshopRepo) AddMember(ctx context.Context, workshopID, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.members[workshopID]
	if !ok {
		return false, domain.ErrWorkshopNotFound
	}
	if _, exists := set[email]; exists {
		return false, nil
	}
	set[email] = struct{}{}
	return true, nil
}

func (m *mockWorkshopRepo) RemoveMember(ctx context.Context, workshopID, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.members[workshopID]
	if !ok {
		return false, domain.ErrWorkshopNotFound
	}
	if _, exists := set[email]; !exists {
		return false, nil
	}
	delete(set, email)
	return true, nil
}

func (m *mockWorkshopRepo) ListEmails(ctx context.Context, workshopID string) ([]*domain.EmailMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.EmailMessage(nil), m.emails[workshopID]...), nil
}

func (m *mockWorkshopRepo) ListByMember(ctx context.Context, email string) ([]*domain.Workshop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Workshop
	for id, set := range m.members {
		if _, ok := set[email]; ok {
			out = append(out, m.workshops[id])
		}
	}
	return out, nil
}

// forwardCall records one ForwardWorkshopMessage invocation.
type forwardCall struct {
	workshopID string
	emailID    string
	recipient  string
}

// mockEmailSender implements domain.EmailService and records every call.
type mockEmailSender struct {
	mu            sync.Mutex
	forwards      []forwardCall
	invites       []string
	denied        []string
	welcomes      []string
	confirmDenied []string
	failFor       map[string]error
}

func newMockEmailSender() *mockEmailSender {
	return &mockEmailSender{failFor: make(map[string]error)}
}

func (m *mockEmailSender) SendRegistrationInvite(ctx context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invites = append(m.invites, u.Email)
	return nil
}

func (m *mockEmailSender) SendRegistrationDenied(ctx context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denied = append(m.denied, u.Email)
	return nil
}

func (m *mockEmailSender) SendConfirmationWelcome(ctx context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.welcomes = append(m.welcomes, u.Email)
	return nil
}

func (m *mockEmailSender) SendConfirmationDenied(ctx context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmDenied = append(m.confirmDenied, u.Email)
	return nil
}

func (m *mockEmailSender) SendMentorWelcome(ctx context.Context, w *domain.Workshop, mentor string) error {
	return nil
}

func (m *mockEmailSender) ForwardWorkshopMessage(ctx context.Context, w *domain.Workshop, msg *domain.EmailMessage, recipient string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failFor[recipient]; ok {
		return err
	}
	m.forwards = append(m.forwards, forwardCall{workshopID: w.WorkshopID, emailID: msg.EmailID, recipient: recipient})
	return nil
}

func (m *mockEmailSender) forwardsTo(recipient string) []forwardCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []forwardCall
	for _, f := range m.forwards {
		if f.recipient == recipient {
			out = append(out, f)
		}
	}
	return out
}

func (m *mockEmailSender) forwardCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.forwards)
}
