package scheduler

import (
	"errors"
	"time"
)

// FourWeeks is the span of the sliding quota window.
const FourWeeks = 28 * 24 * time.Hour

// BusinessHours bounds the coworking day, in local whole hours.
type BusinessHours struct {
	StartHour int `yaml:"start_hour"`
	EndHour   int `yaml:"end_hour"`
}

// Rules holds the tunable constraints applied by the engine.
type Rules struct {
	MinSpacingMinutes int           `yaml:"min_spacing_minutes"`
	FutureCap         int           `yaml:"future_cap"`
	FourWeekCap       int           `yaml:"four_week_cap"`
	BusinessHours     BusinessHours `yaml:"business_hours"`
	SharedSpaceRooms  []string      `yaml:"shared_space_rooms"`
	// MaxRepetitions bounds how many occurrences one recurring request may
	// expand to, privileged actors included.
	MaxRepetitions int `yaml:"max_repetitions"`
}

// DefaultRules returns the production constraint set.
func DefaultRules() Rules {
	return Rules{
		MinSpacingMinutes: 30,
		FutureCap:         10,
		FourWeekCap:       6,
		BusinessHours:     BusinessHours{StartHour: 9, EndHour: 17},
		SharedSpaceRooms:  []string{"Deck", "Savanna"},
		MaxRepetitions:    100,
	}
}

// Validate reports the first inconsistent setting.
func (r Rules) Validate() error {
	switch {
	case r.MinSpacingMinutes < 0:
		return errors.New("scheduler: min spacing must not be negative")
	case r.FutureCap < 1:
		return errors.New("scheduler: future cap must be positive")
	case r.FourWeekCap < 1:
		return errors.New("scheduler: four-week cap must be positive")
	case r.MaxRepetitions < 1:
		return errors.New("scheduler: max repetitions must be positive")
	case r.BusinessHours.StartHour < 0 || r.BusinessHours.EndHour > 23:
		return errors.New("scheduler: business hours must be within 0-23")
	case r.BusinessHours.StartHour >= r.BusinessHours.EndHour:
		return errors.New("scheduler: business hours start must precede end")
	}
	return nil
}
