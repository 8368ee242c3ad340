// Package compliance wraps the configuration-loaded site compliance
// table with the lookups the dispatcher and recorder consult before
// emitting tracking-only events.
package compliance

import (
	"github.com/pokertool/core/internal/config"
	"github.com/pokertool/core/internal/model"
)

// Matrix is a read-mostly, site-keyed compliance table. Zero value is
// usable and permissive everywhere (no configured sites).
type Matrix struct {
	bySite map[string]model.SiteCompliance
}

// New builds a Matrix from configuration-decoded compliance blocks.
func New(blocks []config.Compliance) *Matrix {
	m := &Matrix{bySite: make(map[string]model.SiteCompliance, len(blocks))}
	for _, b := range blocks {
		m.bySite[b.Site] = model.SiteCompliance{
			Site:               b.Site,
			HUDEnabled:         b.HUDEnabled,
			TrackingEnabled:    b.TrackingEnabled,
			RestrictedFeatures: append([]string(nil), b.RestrictedFeatures...),
			MaxTables:          b.MaxTables,
		}
	}
	return m
}

// For returns the compliance record for site. An unconfigured site
// resolves to the permissive zero value (hud/tracking allowed, no
// restrictions, no table cap) rather than an error: compliance is
// opt-in per site, not a default-deny gate.
func (m *Matrix) For(site string) model.SiteCompliance {
	if m == nil {
		return model.SiteCompliance{Site: site, HUDEnabled: true, TrackingEnabled: true}
	}
	if sc, ok := m.bySite[site]; ok {
		return sc
	}
	return model.SiteCompliance{Site: site, HUDEnabled: true, TrackingEnabled: true}
}

// Allows reports whether feature is permitted at site.
func (m *Matrix) Allows(site, feature string) bool {
	return m.For(site).Allows(feature)
}

// TrackingAllowed reports whether the recorder may record hands and
// track stats (VPIP/AF) for site.
func (m *Matrix) TrackingAllowed(site string) bool {
	return m.For(site).TrackingEnabled
}

// HUDAllowed reports whether HUD overlays are permitted for site.
func (m *Matrix) HUDAllowed(site string) bool {
	return m.For(site).HUDEnabled
}

// MaxTables returns the configured table cap for site, if any.
func (m *Matrix) MaxTables(site string) (int, bool) {
	sc := m.For(site)
	if sc.MaxTables == nil {
		return 0, false
	}
	return *sc.MaxTables, true
}
