package cache

import (
	"context"
	"log/slog"
)

// Mutation is a single write against the backing store together with the
// cached collections it changes.
type Mutation interface {
	// Kind names the mutation for logs and metrics.
	Kind() string
	// Apply performs the write.
	Apply(ctx context.Context) error
	// AffectedKeys lists the keys to invalidate once Apply succeeds.
	AffectedKeys() []string
}

// MutationFunc adapts a func and a fixed key list to Mutation.
type MutationFunc struct {
	Name string
	Keys []string
	Fn   func(ctx context.Context) error
}

func (m MutationFunc) Kind() string                    { return m.Name }
func (m MutationFunc) Apply(ctx context.Context) error { return m.Fn(ctx) }
func (m MutationFunc) AffectedKeys() []string          { return m.Keys }

// Coordinator runs mutations and invalidates what they affect. Nothing is
// updated optimistically: the cache changes only after the store accepted
// the write, so a failed mutation leaves every key untouched. The exception
// is a failure marked with PartialWrite, where the store did change.
type Coordinator struct {
	cache  *QueryCache
	logger *slog.Logger
}

// NewCoordinator creates a coordinator over c. A nil logger falls back to
// the cache's logger.
func NewCoordinator(c *QueryCache, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = c.logger
	}
	return &Coordinator{cache: c, logger: logger}
}

// Mutate applies m. On success every affected key is invalidated before
// Mutate returns. On failure the error is wrapped as ErrMutation, and the
// affected keys are invalidated only if the failure is a partial write.
func (co *Coordinator) Mutate(ctx context.Context, m Mutation) error {
	kind := m.Kind()
	if err := m.Apply(ctx); err != nil {
		co.cache.metrics.Mutations.WithLabelValues(kind, "error").Inc()
		if IsPartialWrite(err) {
			keys := m.AffectedKeys()
			for _, key := range keys {
				co.cache.Invalidate(key)
			}
			co.logger.Warn("mutation partially applied",
				slog.String("kind", kind),
				slog.Any("invalidated", keys),
				slog.String("error", err.Error()))
		} else {
			co.logger.Warn("mutation failed",
				slog.String("kind", kind),
				slog.String("error", err.Error()))
		}
		return wrapFailure(ErrMutation, err, kind)
	}
	co.cache.metrics.Mutations.WithLabelValues(kind, "ok").Inc()

	keys := m.AffectedKeys()
	for _, key := range keys {
		co.cache.Invalidate(key)
	}
	co.logger.Debug("mutation applied",
		slog.String("kind", kind),
		slog.Any("invalidated", keys))
	return nil
}
