package deadline

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultJoursDelai = 21
	MinJoursDelai     = 1
	MaxJoursDelai     = 365
)

var ErrInvalidConfig = errors.New("invalid deadline config")

// HolidayFunc builds the holiday predicate for one computation.
type HolidayFunc func(ctx context.Context) func(time.Time) bool

// Service serves the current configuration with a freshly computed deadline.
type Service struct {
	store    *Store
	holidays HolidayFunc
	loc      *time.Location
	nowFunc  func() time.Time
}

func NewService(store *Store, holidays HolidayFunc, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:    store,
		holidays: holidays,
		loc:      loc,
		nowFunc:  time.Now,
	}
}

// Get returns the current configuration, or the defaults when none was saved,
// with dateLimite computed for today.
func (s *Service) Get(ctx context.Context) (*Config, error) {
	cfg, err := s.store.Current(ctx)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &Config{JoursDelai: DefaultJoursDelai, JoursOuvrables: DefaultWorkingDays()}
	}
	if err := s.fill(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidJoursDelai bounds a configured delay to [MinJoursDelai, MaxJoursDelai].
func ValidJoursDelai(n int) error {
	if n < MinJoursDelai || n > MaxJoursDelai {
		return fmt.Errorf("joursDelai must be between %d and %d", MinJoursDelai, MaxJoursDelai)
	}
	return nil
}

// Set validates and appends a new configuration.
func (s *Service) Set(ctx context.Context, joursDelai int, joursOuvrables map[string]bool) (*Config, error) {
	if err := ValidJoursDelai(joursDelai); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := ValidWorkingDays(joursOuvrables); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	days := DefaultWorkingDays()
	for name := range days {
		days[name] = joursOuvrables[name]
	}
	cfg := Config{JoursDelai: joursDelai, JoursOuvrables: days}
	if err := s.fill(ctx, &cfg); err != nil {
		return nil, err
	}
	return s.store.Append(ctx, cfg)
}

// Deadline computes today's deadline from the current configuration.
func (s *Service) Deadline(ctx context.Context) (time.Time, error) {
	cfg, err := s.Get(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return time.ParseInLocation("2006-01-02", cfg.DateLimite, s.loc)
}

func (s *Service) fill(ctx context.Context, cfg *Config) error {
	var isHoliday func(time.Time) bool
	if s.holidays != nil {
		isHoliday = s.holidays(ctx)
	}
	d, err := ComputeDeadline(s.nowFunc().In(s.loc), cfg.JoursDelai, cfg.JoursOuvrables, isHoliday)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.DateLimite = d.Format("2006-01-02")
	return nil
}
