package shell

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/tweetduck/internal/preferences"
	"github.com/GriffinCanCode/tweetduck/internal/shared/types"
)

func TestStateDefaults(t *testing.T) {
	s := NewState(nil)

	assert.Equal(t, types.AppearanceAuto, s.Appearance())
	_, ok := s.UIVersion()
	assert.False(t, ok)
	assert.False(t, s.UpdateAvailable())
	_, ok = s.Update()
	assert.False(t, ok)
}

func TestStatePersistsThroughPreferences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.yaml")
	prefs, err := preferences.Open(path, nil)
	require.NoError(t, err)

	s := NewState(prefs)
	require.NoError(t, s.SetAppearance(types.AppearanceDark))
	require.NoError(t, s.RememberUIVersion(types.UIVersionBeta))

	reopened, err := preferences.Open(path, nil)
	require.NoError(t, err)
	again := NewState(reopened)
	assert.Equal(t, types.AppearanceDark, again.Appearance())
	v, ok := again.UIVersion()
	assert.True(t, ok)
	assert.Equal(t, types.UIVersionBeta, v)
}

func TestStateIgnoresInvalidPreferences(t *testing.T) {
	prefs := preferences.NewMemory()
	require.NoError(t, prefs.Set(PrefAppearance, "sepia"))
	require.NoError(t, prefs.Set(PrefUIVersion, "retro"))

	s := NewState(prefs)
	assert.Equal(t, types.AppearanceAuto, s.Appearance())
	_, ok := s.UIVersion()
	assert.False(t, ok)
}

func TestStateUpdate(t *testing.T) {
	s := NewState(nil)
	s.SetUpdate(Update{Version: "v1.3.0", URL: "https://example.com/r"})

	assert.True(t, s.UpdateAvailable())
	u, ok := s.Update()
	assert.True(t, ok)
	assert.Equal(t, "v1.3.0", u.Version)
}
