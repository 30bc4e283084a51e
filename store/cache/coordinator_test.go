package cache

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinator_Mutate(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*QueryCache, *Metrics) {
		metrics := NewMetrics(nil)
		c := NewQueryCache(WithMetrics(metrics), WithRefetchOnInvalidate(false))
		t.Cleanup(func() { _ = c.Close() })
		c.Set("personal-cart-items:u1", []int{1, 2})
		c.Set("recipe-carts:u1", []int{9})
		return c, metrics
	}

	t.Run("SuccessInvalidatesAffectedKeys", func(t *testing.T) {
		c, metrics := setup(t)
		applied := false
		err := NewCoordinator(c, nil).Mutate(ctx, MutationFunc{
			Name: "remove-personal-item",
			Keys: []string{"personal-cart-items:u1"},
			Fn: func(context.Context) error {
				applied = true
				return nil
			},
		})
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, Stale, c.Peek("personal-cart-items:u1").Staleness)
		assert.Equal(t, Fresh, c.Peek("recipe-carts:u1").Staleness)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Mutations.WithLabelValues("remove-personal-item", "ok")))
	})

	t.Run("FailureLeavesCacheUntouched", func(t *testing.T) {
		c, metrics := setup(t)
		rec := &recorder{}
		c.Subscribe("personal-cart-items:u1", rec.listen)

		cause := errors.New("permission denied")
		err := NewCoordinator(c, nil).Mutate(ctx, MutationFunc{
			Name: "remove-personal-item",
			Keys: []string{"personal-cart-items:u1"},
			Fn:   func(context.Context) error { return cause },
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMutation)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "permission denied")

		e := c.Peek("personal-cart-items:u1")
		assert.Equal(t, Fresh, e.Staleness)
		assert.Equal(t, []int{1, 2}, e.Value)
		assert.Empty(t, rec.transitions())
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Mutations.WithLabelValues("remove-personal-item", "error")))
	})

	t.Run("PartialWriteInvalidatesAffectedKeys", func(t *testing.T) {
		c, metrics := setup(t)
		cause := errors.New("insert rejected")
		err := NewCoordinator(c, nil).Mutate(ctx, MutationFunc{
			Name: "add-personal-item",
			Keys: []string{"personal-cart-items:u1"},
			Fn:   func(context.Context) error { return PartialWrite(errors.Wrap(cause, "second write")) },
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMutation)
		assert.ErrorIs(t, err, cause)
		assert.True(t, IsPartialWrite(err))

		assert.Equal(t, Stale, c.Peek("personal-cart-items:u1").Staleness)
		assert.Equal(t, Fresh, c.Peek("recipe-carts:u1").Staleness)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Mutations.WithLabelValues("add-personal-item", "error")))
	})

	t.Run("NoAffectedKeys", func(t *testing.T) {
		c, _ := setup(t)
		err := NewCoordinator(c, nil).Mutate(ctx, MutationFunc{
			Name: "noop",
			Fn:   func(context.Context) error { return nil },
		})
		require.NoError(t, err)
		assert.Equal(t, Fresh, c.Peek("personal-cart-items:u1").Staleness)
	})
}
