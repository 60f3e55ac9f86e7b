package preferences

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReportsExternalEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.yaml")
	s, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Set("appearance", "dark"))

	var (
		mu   sync.Mutex
		seen [][]string
	)
	w, err := NewWatcher(s, 20*time.Millisecond, func(keys []string) {
		mu.Lock()
		seen = append(seen, keys)
		mu.Unlock()
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(path, []byte("appearance: light\n"), 0o600))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"appearance"}, seen[0])
	mu.Unlock()
	assert.Equal(t, "light", s.GetOr("appearance", ""))

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherNeedsFile(t *testing.T) {
	_, err := NewWatcher(NewMemory(), 0, nil, nil)
	assert.Error(t, err)
}
