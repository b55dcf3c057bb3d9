package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/example/facility-booking/internal/scheduler"
)

// Settings holds the tunable booking policy. Values absent from a rules
// file keep whatever the caller put in before loading.
type Settings struct {
	Rules                scheduler.Rules `yaml:"rules"`
	LeadDays             int             `yaml:"lead_days"`
	AccessGraceMinutes   int             `yaml:"access_grace_minutes"`
	PendingLifetimeDays  int             `yaml:"pending_lifetime_days"`
	ExpiryReminderDays   int             `yaml:"expiry_reminder_days"`
	SuspendedExpiryDays  int             `yaml:"suspended_expiry_days"`
	ApprovalHorizonWeeks int             `yaml:"approval_horizon_weeks"`
	SecondaryOwnerHours  int             `yaml:"secondary_owner_hours"`
	MinStaff             int             `yaml:"min_staff"`
}

// DefaultSettings returns the production booking policy.
func DefaultSettings() Settings {
	return Settings{
		Rules:                scheduler.DefaultRules(),
		LeadDays:             2,
		AccessGraceMinutes:   10,
		PendingLifetimeDays:  30,
		ExpiryReminderDays:   10,
		SuspendedExpiryDays:  30,
		ApprovalHorizonWeeks: 5,
		SecondaryOwnerHours:  24,
	}
}

// LoadRulesFile overlays the YAML document at path onto settings.
// Environment references such as ${BOOKING_FUTURE_CAP} are expanded first.
func LoadRulesFile(path string, settings *Settings) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rules file: %w", err)
	}
	data = []byte(os.ExpandEnv(string(data)))

	if err := yaml.Unmarshal(data, settings); err != nil {
		return fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return settings.Validate()
}

// Validate reports the first inconsistent setting.
func (s Settings) Validate() error {
	if err := s.Rules.Validate(); err != nil {
		return err
	}
	switch {
	case s.LeadDays < 0:
		return fmt.Errorf("config: lead_days must not be negative")
	case s.AccessGraceMinutes < 0:
		return fmt.Errorf("config: access_grace_minutes must not be negative")
	case s.PendingLifetimeDays < 1:
		return fmt.Errorf("config: pending_lifetime_days must be positive")
	case s.ExpiryReminderDays < 0:
		return fmt.Errorf("config: expiry_reminder_days must not be negative")
	case s.SuspendedExpiryDays < 1:
		return fmt.Errorf("config: suspended_expiry_days must be positive")
	case s.ApprovalHorizonWeeks < 1:
		return fmt.Errorf("config: approval_horizon_weeks must be positive")
	case s.SecondaryOwnerHours < 1:
		return fmt.Errorf("config: secondary_owner_hours must be positive")
	case s.MinStaff < 0:
		return fmt.Errorf("config: min_staff must not be negative")
	}
	return nil
}
