package metrics

import (
	"fmt"
	"regexp"

	"github.com/prometheus/client_golang/prometheus"
)

// nameComponent is the Prometheus rule for a namespace or subsystem.
var nameComponent = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`) //nolint:gochecknoglobals // compiled once

// Option configures a Manager.
type Option func(*Manager) error

// WithNamespace prefixes every metric name. Empty keeps the default.
func WithNamespace(namespace string) Option {
	return func(m *Manager) error {
		if namespace == "" {
			return nil
		}
		if !nameComponent.MatchString(namespace) {
			return fmt.Errorf("%w: namespace %q", ErrInvalidName, namespace)
		}
		m.namespace = namespace
		return nil
	}
}

// WithSubsystem sets the second name component. Empty keeps the default.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) error {
		if subsystem == "" {
			return nil
		}
		if !nameComponent.MatchString(subsystem) {
			return fmt.Errorf("%w: subsystem %q", ErrInvalidName, subsystem)
		}
		m.subsystem = subsystem
		return nil
	}
}

// WithRegisterer registers the collectors somewhere other than the default
// registerer.
func WithRegisterer(registry prometheus.Registerer) Option {
	return func(m *Manager) error {
		if registry != nil {
			m.registry = registry
		}
		return nil
	}
}
