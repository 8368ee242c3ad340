package model

// SiteCompliance is a read-mostly policy record consulted by the
// dispatcher before emitting tracking-only events.
type SiteCompliance struct {
	Site               string
	HUDEnabled         bool
	TrackingEnabled    bool
	RestrictedFeatures []string
	MaxTables          *int
}

// Allows reports whether the given feature is not on the restricted list.
func (s SiteCompliance) Allows(feature string) bool {
	for _, f := range s.RestrictedFeatures {
		if f == feature {
			return false
		}
	}
	return true
}
