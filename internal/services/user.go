package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"warsjawa/internal/domain"
)

const registrationKeyBytes = 128

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type userService struct {
	logger    *slog.Logger
	users     domain.UserRepository
	workshops domain.WorkshopRepository
	emails    domain.EmailService
}

// NewUserService creates a UserService with the given repositories and email sender.
func NewUserService(logger *slog.Logger, users domain.UserRepository, workshops domain.WorkshopRepository, emails domain.EmailService) domain.UserService {
	return &userService{
		logger:    logger,
		users:     users,
		workshops: workshops,
		emails:    emails,
	}
}

func (s *userService) Register(ctx context.Context, email, name string) (*domain.User, bool, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	name = strings.TrimSpace(name)
	if !emailRegexp.MatchString(email) {
		return nil, false, fmt.Errorf("%w: %q", domain.ErrInvalidEmail, email)
	}

	key, err := generateRegistrationKey()
	if err != nil {
		return nil, false, fmt.Errorf("generate registration key: %w", err)
	}

	user := domain.NewUser(email, name, key, time.Now())
	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	if !created {
		// A registration already exists. Rotating the key is conditioned on
		// the user still being unconfirmed, so a concurrent confirmation
		// cannot be clobbered here.
		rotated, err := s.users.RotateKey(ctx, email, name, key)
		if err != nil {
			return nil, false, fmt.Errorf("rotate registration key: %w", err)
		}
		if !rotated {
			existing, err := s.users.GetByEmail(ctx, email)
			if err != nil {
				return nil, false, fmt.Errorf("get user: %w", err)
			}
			s.sendOrLog(ctx, "registration denial", s.emails.SendRegistrationDenied, existing)
			return nil, false, domain.ErrAlreadyRegistered
		}
		user, err = s.users.GetByEmail(ctx, email)
		if err != nil {
			return nil, false, fmt.Errorf("get user: %w", err)
		}
	}

	s.sendOrLog(ctx, "registration invite", s.emails.SendRegistrationInvite, user)
	return user, created, nil
}

func (s *userService) Confirm(ctx context.Context, email, key string) (*domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	confirmed, err := s.users.Confirm(ctx, email, key)
	if err != nil {
		return nil, fmt.Errorf("confirm user: %w", err)
	}
	if !confirmed {
		user, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				return nil, domain.ErrUserNotFound
			}
			return nil, fmt.Errorf("get user: %w", err)
		}
		if user.IsConfirmed {
			s.sendOrLog(ctx, "confirmation denial", s.emails.SendConfirmationDenied, user)
			return nil, domain.ErrAlreadyConfirmed
		}
		// Exists but the key did not match. Kept indistinguishable from an
		// unknown user so confirmation links cannot probe registrations.
		return nil, domain.ErrUserNotFound
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	s.sendOrLog(ctx, "confirmation welcome", s.emails.SendConfirmationWelcome, user)
	return user, nil
}

func (s *userService) ConfirmationLanding(ctx context.Context, email string) (*domain.User, []*domain.Workshop, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil, domain.ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}
	if err := s.users.MarkConfirmedTwice(ctx, email); err != nil {
		return nil, nil, fmt.Errorf("mark confirmed twice: %w", err)
	}
	workshops, err := s.workshops.ListByMember(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("list workshops: %w", err)
	}
	return user, workshops, nil
}

func (s *userService) SendConfirmationReminders(ctx context.Context, query string, count int) (int, error) {
	if count <= 0 {
		return 0, nil
	}
	addresses, err := s.users.ListConfirmedEmails(ctx, query, count)
	if err != nil {
		return 0, fmt.Errorf("list confirmed users: %w", err)
	}
	sent := 0
	for _, address := range addresses {
		user, err := s.users.GetByEmail(ctx, address)
		if err != nil {
			s.logger.WarnContext(ctx, "reminder recipient vanished", "email", address, "err", err)
			continue
		}
		if err := s.emails.SendConfirmationWelcome(ctx, user); err != nil {
			s.logger.WarnContext(ctx, "confirmation reminder failed", "email", address, "err", err)
			continue
		}
		sent++
	}
	return sent, nil
}

// sendOrLog sends a lifecycle email and only logs a failure: registration
// state has already been committed and the transport error is recorded by the
// email service itself.
func (s *userService) sendOrLog(ctx context.Context, kind string, send func(context.Context, *domain.User) error, user *domain.User) {
	if err := send(ctx, user); err != nil {
		s.logger.WarnContext(ctx, "lifecycle email failed", "kind", kind, "email", user.Email, "err", err)
	}
}

func generateRegistrationKey() (string, error) {
	b := make([]byte, registrationKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
