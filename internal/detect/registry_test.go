package detect

import (
	"context"
	"testing"

	"github.com/pokertool/core/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopStrategy(id string) Strategy {
	return NewStrategy(id, func(ctx context.Context, frame model.Frame, hint model.RegionHint) ([]model.Observation, error) {
		return nil, nil
	})
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.Register(noopStrategy("a"))
	r.Register(noopStrategy("b"))

	assert.Equal(t, 2, r.Len())
	s, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", s.ID())

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_All_PreservesRegistrationOrder(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.Register(noopStrategy("first"))
	r.Register(noopStrategy("second"))
	r.Register(noopStrategy("third"))

	ids := make([]string, 0, 3)
	for _, s := range r.All() {
		ids = append(ids, s.ID())
	}
	assert.Equal(t, []string{"first", "second", "third"}, ids)
}

func TestRegistry_Register_ReplacesWithoutReordering(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.Register(noopStrategy("first"))
	r.Register(noopStrategy("second"))

	replacement := NewStrategy("first", func(ctx context.Context, frame model.Frame, hint model.RegionHint) ([]model.Observation, error) {
		return []model.Observation{{Kind: model.ObservationPot}}, nil
	})
	r.Register(replacement)

	ids := make([]string, 0, 2)
	for _, s := range r.All() {
		ids = append(ids, s.ID())
	}
	assert.Equal(t, []string{"first", "second"}, ids)

	obs, err := func() ([]model.Observation, error) {
		s, _ := r.Get("first")
		return s.Detect(context.Background(), model.Frame{}, model.RegionHint{})
	}()
	require.NoError(t, err)
	require.Len(t, obs, 1)
}
