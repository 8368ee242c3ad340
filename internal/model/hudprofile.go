package model

// HUDProfile is a saved heads-up-display layout and stat selection,
// keyed by name so a player can switch between table-size or site
// specific presets.
type HUDProfile struct {
	Name       string
	Site       string
	Stats      []string          // stat identifiers shown on the overlay
	Layout     map[string]string // widget id -> position descriptor
	UpdatedAt  int64             // unix millis
}
