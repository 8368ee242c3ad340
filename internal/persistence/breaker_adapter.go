package persistence

import (
	"context"

	"github.com/pokertool/core/internal/breaker"
	"github.com/pokertool/core/internal/model"
)

// BreakerAdapter wraps an Adapter with a circuit breaker so a
// persistently failing store (disk full, unreachable volume) fails
// fast instead of blocking every caller behind retries.
type BreakerAdapter struct {
	next Adapter
	cb   *breaker.Breaker
}

// NewBreakerAdapter wraps next with a breaker built from cfg.
func NewBreakerAdapter(next Adapter, cfg breaker.Config) *BreakerAdapter {
	return &BreakerAdapter{next: next, cb: breaker.New(cfg)}
}

func (a *BreakerAdapter) SaveHand(ctx context.Context, h model.HandHistory) error {
	return a.cb.Call(ctx, func(ctx context.Context) error {
		return a.next.SaveHand(ctx, h)
	})
}

func (a *BreakerAdapter) SaveHUDProfile(ctx context.Context, p model.HUDProfile) error {
	return a.cb.Call(ctx, func(ctx context.Context) error {
		return a.next.SaveHUDProfile(ctx, p)
	})
}

func (a *BreakerAdapter) LoadHUDProfile(ctx context.Context, name string) (model.HUDProfile, bool, error) {
	var (
		profile model.HUDProfile
		found   bool
	)
	err := a.cb.Call(ctx, func(ctx context.Context) error {
		var err error
		profile, found, err = a.next.LoadHUDProfile(ctx, name)
		return err
	})
	if err != nil {
		return model.HUDProfile{}, false, err
	}
	return profile, found, nil
}

func (a *BreakerAdapter) ListHUDProfiles(ctx context.Context) ([]model.HUDProfile, error) {
	var profiles []model.HUDProfile
	err := a.cb.Call(ctx, func(ctx context.Context) error {
		var err error
		profiles, err = a.next.ListHUDProfiles(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// Metrics exposes the wrapped breaker's observable state.
func (a *BreakerAdapter) Metrics() breaker.Metrics {
	return a.cb.Metrics()
}
