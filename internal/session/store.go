package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/tweetduck/internal/shared/id"
)

const (
	// ProfilePrefix names profile directories created by Initialize
	ProfilePrefix = "tweetduck-profile-"

	// StorageQuota is the per-origin persistent storage quota in bytes
	StorageQuota int64 = 0
)

// Isolator applies browser-side storage restrictions. The chrome surface
// implements it over the DevTools protocol.
type Isolator interface {
	DisableCache(ctx context.Context) error
	ClearBrowsingData(ctx context.Context) error
	SetStorageQuota(ctx context.Context, bytes int64) error
}

// Options configures Initialize
type Options struct {
	BaseDir      string
	ChromePath   string
	Headless     bool
	WindowWidth  int
	WindowHeight int
	Logger       *zap.Logger
}

// Session is the non-persistent browsing profile for one run
type Session struct {
	ID         id.SessionID
	ProfileDir string

	opts   Options
	purged []string
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// Initialize purges leftovers from earlier runs and creates a fresh profile
func Initialize(opts Options) (*Session, error) {
	if opts.BaseDir == "" {
		opts.BaseDir = os.TempDir()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(opts.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create profile base dir: %w", err)
	}

	purged, err := purgeProfiles(opts.BaseDir, logger)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(opts.BaseDir, ProfilePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile dir: %w", err)
	}

	s := &Session{
		ID:         id.NewSessionID(),
		ProfileDir: dir,
		opts:       opts,
		purged:     purged,
		logger:     logger,
	}

	logger.Info("session initialized",
		zap.String("session_id", s.ID.String()),
		zap.String("profile_dir", dir),
		zap.Int("purged", len(purged)),
	)
	return s, nil
}

// purgeProfiles removes every prior-run profile under base. Directories that
// cannot be removed are logged and skipped.
func purgeProfiles(base string, logger *zap.Logger) ([]string, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, fmt.Errorf("failed to list profile base dir: %w", err)
	}

	var purged []string
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), ProfilePrefix) {
			continue
		}
		path := filepath.Join(base, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			logger.Warn("failed to purge profile", zap.String("path", path), zap.Error(err))
			continue
		}
		purged = append(purged, path)
	}
	return purged, nil
}

// Purged lists the profile directories removed during Initialize
func (s *Session) Purged() []string {
	return append([]string(nil), s.purged...)
}

// Persistent is always false
func (s *Session) Persistent() bool {
	return false
}

// DevToolsEnabled is always true
func (s *Session) DevToolsEnabled() bool {
	return true
}

// AllocatorOptions returns the Chrome launch flags for this session
func (s *Session) AllocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.UserDataDir(s.ProfileDir),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", s.opts.Headless),
		chromedp.Flag("incognito", true),
		chromedp.Flag("disk-cache-size", "1"),
		chromedp.Flag("media-cache-size", "1"),
		chromedp.Flag("disable-sync", true),
	)
	if s.opts.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(s.opts.ChromePath))
	}
	if s.opts.WindowWidth > 0 && s.opts.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(s.opts.WindowWidth, s.opts.WindowHeight))
	}
	return opts
}

// Isolate applies the runtime storage restrictions through iso
func (s *Session) Isolate(ctx context.Context, iso Isolator) error {
	if err := iso.DisableCache(ctx); err != nil {
		return fmt.Errorf("failed to disable cache: %w", err)
	}
	if err := iso.ClearBrowsingData(ctx); err != nil {
		return fmt.Errorf("failed to clear browsing data: %w", err)
	}
	if err := iso.SetStorageQuota(ctx, StorageQuota); err != nil {
		return fmt.Errorf("failed to pin storage quota: %w", err)
	}
	s.logger.Debug("session isolated", zap.String("session_id", s.ID.String()))
	return nil
}

// Close removes the profile directory. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := os.RemoveAll(s.ProfileDir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove profile dir: %w", err)
	}
	return nil
}
