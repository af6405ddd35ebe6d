package mutationkit

import (
	"errors"
	"time"

	mutErrors "github.com/c0deZ3R0/go-mutation-kit/errors"
	"github.com/c0deZ3R0/go-mutation-kit/logging"
)

// ControllerOption is a functional option for configuring a Controller via
// NewController.
type ControllerOption func(*Controller) error

// NewController constructs a Controller using functional options. A store,
// a remote and at least one registered mutation kind are required.
func NewController(opts ...ControllerOption) (*Controller, error) {
	c := &Controller{
		registry: NewRegistry(),
		metrics:  &NoOpMetricsCollector{},
		logger:   logging.Default(),
		timeout:  30 * time.Second,
		seq:      make(map[string]uint64),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, mutErrors.E(
				mutErrors.Op("NewController"),
				mutErrors.Component("mutationkit"),
				mutErrors.KindInvalid,
				err,
			)
		}
	}

	if c.store == nil {
		return nil, mutErrors.E(
			mutErrors.Op("NewController"),
			mutErrors.Component("mutationkit"),
			mutErrors.KindInvalid,
			errors.New("store is required (use WithStore(...))"),
		)
	}
	if c.remote == nil {
		return nil, mutErrors.E(
			mutErrors.Op("NewController"),
			mutErrors.Component("mutationkit"),
			mutErrors.KindInvalid,
			errors.New("remote is required (use WithRemote(...))"),
		)
	}
	if len(c.registry.Kinds()) == 0 {
		return nil, mutErrors.E(
			mutErrors.Op("NewController"),
			mutErrors.Component("mutationkit"),
			mutErrors.KindInvalid,
			errors.New("at least one mutation kind is required (use WithKinds(...))"),
		)
	}

	return c, nil
}

// WithStore injects the entity store.
func WithStore(s EntityStore) ControllerOption {
	return func(c *Controller) error {
		c.store = s
		return nil
	}
}

// WithRemote injects the remote collaborator mutations are dispatched to.
func WithRemote(r Remote) ControllerOption {
	return func(c *Controller) error {
		c.remote = r
		return nil
	}
}

// WithRegistry replaces the mutation kind registry.
func WithRegistry(r *Registry) ControllerOption {
	return func(c *Controller) error {
		if r == nil {
			return errors.New("registry cannot be nil")
		}
		c.registry = r
		return nil
	}
}

// WithKinds registers mutation kinds on the controller's registry.
func WithKinds(specs ...KindSpec) ControllerOption {
	return func(c *Controller) error {
		for _, spec := range specs {
			if err := c.registry.Register(spec); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithAuditor sets the fire-and-forget audit sink.
func WithAuditor(a Auditor) ControllerOption {
	return func(c *Controller) error {
		c.auditor = a
		return nil
	}
}

// WithNotifier sets the user-facing notification sink.
func WithNotifier(n Notifier) ControllerOption {
	return func(c *Controller) error {
		c.notifier = n
		return nil
	}
}

// WithMetricsCollector sets the metrics collector.
func WithMetricsCollector(m MetricsCollector) ControllerOption {
	return func(c *Controller) error {
		if m == nil {
			return errors.New("metrics collector cannot be nil")
		}
		c.metrics = m
		return nil
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *logging.Logger) ControllerOption {
	return func(c *Controller) error {
		if l == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = l
		return nil
	}
}

// WithHooks sets lifecycle observation hooks.
func WithHooks(h *Hooks) ControllerOption {
	return func(c *Controller) error {
		c.hooks = h
		return nil
	}
}

// WithSubmitTimeout bounds each remote submit. Defaults to 30 seconds; the
// remote must resolve within it or the outcome becomes unknown.
func WithSubmitTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) error {
		if d <= 0 {
			return errors.New("submit timeout must be positive")
		}
		c.timeout = d
		return nil
	}
}
