package search

import (
	"fmt"
	"log/slog"

	"github.com/poiesic/wayfarer/resilience"
)

const (
	// DefaultFanout is the number of neighbours fetched per entity.
	DefaultFanout = 10

	// DefaultWorkers bounds concurrent per-entity graph fetches.
	DefaultWorkers = 4
)

// settings holds the values shared by the constructors in this package.
type settings struct {
	logger       *slog.Logger
	policy       resilience.Policy
	fanout       int
	workers      int
	graphSwitch  *resilience.Switch
	systemPrompt string
}

func defaultSettings() *settings {
	return &settings{
		policy:       resilience.DefaultPolicy(),
		fanout:       DefaultFanout,
		workers:      DefaultWorkers,
		systemPrompt: DefaultSystemPrompt,
	}
}

// Option configures a component of this package.
// Options that do not apply to a component are ignored by it.
type Option func(*settings) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithPolicy sets the retry policy wrapped around external calls.
// Default is resilience.DefaultPolicy().
func WithPolicy(policy resilience.Policy) Option {
	return func(s *settings) error {
		if err := policy.Validate(); err != nil {
			return err
		}
		s.policy = policy
		return nil
	}
}

// WithFanout sets how many neighbours the enricher fetches per entity.
func WithFanout(fanout int) Option {
	return func(s *settings) error {
		if fanout < 1 {
			return fmt.Errorf("fanout must be positive, got %d", fanout)
		}
		s.fanout = fanout
		return nil
	}
}

// WithWorkers sets the maximum number of concurrent graph fetches.
func WithWorkers(workers int) Option {
	return func(s *settings) error {
		if workers < 1 {
			workers = 1
		}
		s.workers = workers
		return nil
	}
}

// WithGraphSwitch shares a capability switch with the enricher, so that
// other components can observe the graph being disabled.
func WithGraphSwitch(sw *resilience.Switch) Option {
	return func(s *settings) error {
		s.graphSwitch = sw
		return nil
	}
}

// WithSystemPrompt replaces the assembler's system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(s *settings) error {
		if prompt != "" {
			s.systemPrompt = prompt
		}
		return nil
	}
}

func applyOptions(component string, opts []Option) (*settings, error) {
	s := defaultSettings()
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", component)
	if s.policy.Logger == nil {
		s.policy.Logger = s.logger
	}
	return s, nil
}
