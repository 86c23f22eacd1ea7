// Package seed loads the workshop catalogue from a YAML file and makes sure
// every listed workshop exists before the server starts taking traffic.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"warsjawa/internal/domain"
)

// WorkshopSeed is one entry of the workshops file.
type WorkshopSeed struct {
	WorkshopID  string   `yaml:"workshopId"`
	Name        string   `yaml:"name"`
	Mentors     []string `yaml:"mentors"`
	EmailSecret string   `yaml:"emailSecret"`
}

// LoadWorkshops reads and parses the workshops file.
func LoadWorkshops(path string) ([]WorkshopSeed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workshops file: %w", err)
	}
	var seeds []WorkshopSeed
	if err := yaml.Unmarshal(raw, &seeds); err != nil {
		return nil, fmt.Errorf("parse workshops file: %w", err)
	}
	for i, s := range seeds {
		if s.WorkshopID == "" {
			return nil, fmt.Errorf("workshops file entry %d: workshopId is required", i)
		}
		// Inbound alias parsing folds the secret to lower case, so a
		// mixed-case secret in the file would never match at relay time.
		seeds[i].EmailSecret = strings.ToLower(s.EmailSecret)
	}
	return seeds, nil
}

// ApplyWorkshops upserts each seed entry. Existing workshops are left alone;
// for a brand new workshop every mentor gets a welcome email with the
// workshop's mailing address. A missing emailSecret gets a generated one.
func ApplyWorkshops(
	ctx context.Context,
	logger *slog.Logger,
	seeds []WorkshopSeed,
	workshops domain.WorkshopRepository,
	emails domain.EmailService,
) error {
	for _, s := range seeds {
		secret := s.EmailSecret
		if secret == "" {
			secret = domain.NewEmailSecret()
		}
		workshop := &domain.Workshop{
			WorkshopID:  s.WorkshopID,
			EmailSecret: secret,
			Name:        s.Name,
			Mentors:     s.Mentors,
		}
		created, err := workshops.Ensure(ctx, workshop)
		if err != nil {
			return fmt.Errorf("ensure workshop %s: %w", s.WorkshopID, err)
		}
		if !created {
			continue
		}
		logger.InfoContext(ctx, "workshop created", "workshop", s.WorkshopID)
		for _, mentor := range s.Mentors {
			if err := emails.SendMentorWelcome(ctx, workshop, mentor); err != nil {
				// The workshop exists either way; a failed welcome is logged
				// and already recorded in the mail error log.
				logger.WarnContext(ctx, "mentor welcome failed", "workshop", s.WorkshopID, "mentor", mentor, "err", err)
			}
		}
	}
	return nil
}
