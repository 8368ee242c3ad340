package compliance

import (
	"testing"

	"github.com/pokertool/core/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFor_ConfiguredSite(t *testing.T) {
	t.Parallel()
	maxTables := 4
	m := New([]config.Compliance{
		{Site: "pokerstars", HUDEnabled: true, TrackingEnabled: true, RestrictedFeatures: []string{"auto_play"}, MaxTables: &maxTables},
	})

	sc := m.For("pokerstars")
	assert.True(t, sc.HUDEnabled)
	assert.False(t, sc.Allows("auto_play"))
	assert.True(t, sc.Allows("hand_logging"))

	n, ok := m.MaxTables("pokerstars")
	require.True(t, ok)
	assert.Equal(t, 4, n)
}

func TestFor_UnconfiguredSiteIsPermissive(t *testing.T) {
	t.Parallel()
	m := New(nil)
	assert.True(t, m.HUDAllowed("unknown_room"))
	assert.True(t, m.TrackingAllowed("unknown_room"))
	_, ok := m.MaxTables("unknown_room")
	assert.False(t, ok)
}

func TestTrackingAllowed_DisabledSiteGatesRecorder(t *testing.T) {
	t.Parallel()
	m := New([]config.Compliance{
		{Site: "ignition", HUDEnabled: false, TrackingEnabled: false},
	})
	assert.False(t, m.TrackingAllowed("ignition"))
	assert.False(t, m.HUDAllowed("ignition"))
}

func TestNilMatrix_IsPermissive(t *testing.T) {
	t.Parallel()
	var m *Matrix
	assert.True(t, m.Allows("any_site", "anything"))
}
