package preferences

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "preferences.yaml")

	s, err := Open(path, nil)
	require.NoError(t, err)
	_, ok := s.Get("appearance")
	assert.False(t, ok)

	require.NoError(t, s.Set("appearance", "dark"))
	require.NoError(t, s.Set("ui_version", "beta"))

	reopened, err := Open(path, nil)
	require.NoError(t, err)
	v, ok := reopened.Get("appearance")
	assert.True(t, ok)
	assert.Equal(t, "dark", v)
	assert.Equal(t, []string{"appearance", "ui_version"}, reopened.Keys())

	require.NoError(t, reopened.Delete("ui_version"))
	require.NoError(t, reopened.Delete("ui_version"))
	assert.Equal(t, "legacy", reopened.GetOr("ui_version", "legacy"))
}

func TestStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.yaml")
	require.NoError(t, os.WriteFile(path, []byte("appearance: [unterminated"), 0o600))

	_, err := Open(path, nil)
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	assert.Empty(t, s.Path())
	require.NoError(t, s.Set("appearance", "light"))
	assert.Equal(t, "light", s.GetOr("appearance", "auto"))

	changed, err := s.Reload()
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestReloadReportsChangedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.yaml")
	s, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Set("appearance", "dark"))
	require.NoError(t, s.Set("ui_version", "beta"))

	require.NoError(t, os.WriteFile(path, []byte("appearance: light\nextra: x\n"), 0o600))

	changed, err := s.Reload()
	require.NoError(t, err)
	assert.Equal(t, []string{"appearance", "extra", "ui_version"}, changed)
	assert.Equal(t, "light", s.GetOr("appearance", ""))

	changed, err = s.Reload()
	require.NoError(t, err)
	assert.Empty(t, changed)
}
