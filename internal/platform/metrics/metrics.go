// Package metrics exposes Prometheus instrumentation for identity reconciliation
// and reading session lifecycle operations.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultNamespace = "readjourney"

// Recorder is the narrow view consumed by modules. A nil *Manager is valid and records nothing.
type Recorder interface {
	IdentityTransition(state string)
	IdentityCacheWrite(op string)
	LifecycleOperation(op, outcome string)
	Error(component, kind string)
}

type Manager struct {
	namespace string
	registry  *prometheus.Registry

	identityTransitions *prometheus.CounterVec
	identityCacheWrites *prometheus.CounterVec
	lifecycleOps        *prometheus.CounterVec
	errors              *prometheus.CounterVec
}

type Option func(*Manager)

func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRegistry registers metrics on registry instead of a fresh one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{namespace: defaultNamespace}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	auto := promauto.With(m.registry)
	m.identityTransitions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "identity",
		Name:      "transitions_total",
		Help:      "Identity reconciler transitions by resulting state",
	}, []string{"state"})
	m.identityCacheWrites = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "identity",
		Name:      "cache_writes_total",
		Help:      "Writes to the persisted identity cache by operation",
	}, []string{"op"})
	m.lifecycleOps = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "reading",
		Name:      "lifecycle_operations_total",
		Help:      "Reading session lifecycle operations by operation and outcome",
	}, []string{"op", "outcome"})
	m.errors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "errors_total",
		Help:      "Errors returned to callers by component and kind",
	}, []string{"component", "kind"})
	return m
}

func (m *Manager) IdentityTransition(state string) {
	if m == nil {
		return
	}
	m.identityTransitions.WithLabelValues(state).Inc()
}

func (m *Manager) IdentityCacheWrite(op string) {
	if m == nil {
		return
	}
	m.identityCacheWrites.WithLabelValues(op).Inc()
}

func (m *Manager) LifecycleOperation(op, outcome string) {
	if m == nil {
		return
	}
	m.lifecycleOps.WithLabelValues(op, outcome).Inc()
}

func (m *Manager) Error(component, kind string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(component, kind).Inc()
}

func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (m *Manager) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Nop records nothing.
type Nop struct{}

func (Nop) IdentityTransition(string)         {}
func (Nop) IdentityCacheWrite(string)         {}
func (Nop) LifecycleOperation(string, string) {}
func (Nop) Error(string, string)              {}
