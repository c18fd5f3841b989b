package resilience

import (
	"log/slog"
	"sync"
)

// Capability is the availability of an optional subsystem.
type Capability int

const (
	Enabled Capability = iota
	DisabledByConfig
	DisabledByFailure
)

func (c Capability) String() string {
	switch c {
	case Enabled:
		return "enabled"
	case DisabledByConfig:
		return "disabled_by_config"
	case DisabledByFailure:
		return "disabled_by_failure"
	default:
		return "unknown"
	}
}

// Switch tracks the Capability of one optional subsystem.
// A nil *Switch reports Enabled. Safe for concurrent use.
type Switch struct {
	name   string
	mu     sync.RWMutex
	state  Capability
	reason error
}

// NewSwitch returns a switch that starts Enabled, or DisabledByConfig when
// enabled is false.
func NewSwitch(name string, enabled bool) *Switch {
	s := &Switch{name: name, state: Enabled}
	if !enabled {
		s.state = DisabledByConfig
	}
	return s
}

// Name returns the subsystem name.
func (s *Switch) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// State returns the current capability.
func (s *Switch) State() Capability {
	if s == nil {
		return Enabled
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Enabled reports whether the subsystem may be used.
func (s *Switch) Enabled() bool {
	return s.State() == Enabled
}

// Reason returns the error that disabled the subsystem, if any.
func (s *Switch) Reason() error {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reason
}

// Disable moves an enabled subsystem to DisabledByFailure. It returns true
// only for the call that performed the transition.
func (s *Switch) Disable(reason error) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Enabled {
		return false
	}
	s.state = DisabledByFailure
	s.reason = reason
	slog.Default().With("component", "resilience").Warn("subsystem disabled",
		"subsystem", s.name, "err", reason)
	return true
}
