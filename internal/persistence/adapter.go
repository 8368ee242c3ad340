// Package persistence defines the storage boundary for completed hands
// and saved HUD profiles, and provides two adapters: an in-process
// MemoryAdapter for tests and ephemeral runs, and a FileAdapter backed
// by newline-delimited JSON written atomically to disk.
package persistence

import (
	"context"

	"github.com/pokertool/core/internal/model"
)

// Adapter is the storage boundary consulted by the hand recorder and
// the HUD. Implementations must be safe for concurrent use.
type Adapter interface {
	SaveHand(ctx context.Context, h model.HandHistory) error
	SaveHUDProfile(ctx context.Context, p model.HUDProfile) error
	LoadHUDProfile(ctx context.Context, name string) (model.HUDProfile, bool, error)
	ListHUDProfiles(ctx context.Context) ([]model.HUDProfile, error)
}
