package shell

import (
	"sync"

	"github.com/GriffinCanCode/tweetduck/internal/preferences"
	"github.com/GriffinCanCode/tweetduck/internal/shared/types"
)

// Preference keys
const (
	PrefAppearance = "appearance"
	PrefUIVersion  = "ui_version"
)

// Update describes an available release
type Update struct {
	Version string `json:"version"`
	URL     string `json:"url"`
}

// State is the shell-owned configuration the controller consults. Reads
// are safe from any goroutine.
type State struct {
	prefs *preferences.Store

	mu     sync.RWMutex
	update *Update
}

// NewState wraps a preference store
func NewState(prefs *preferences.Store) *State {
	if prefs == nil {
		prefs = preferences.NewMemory()
	}
	return &State{prefs: prefs}
}

// Appearance returns the theme preference, Auto when unset or invalid
func (s *State) Appearance() types.AppearanceMode {
	raw, ok := s.prefs.Get(PrefAppearance)
	if !ok {
		return types.AppearanceAuto
	}
	mode, err := types.ParseAppearanceMode(raw)
	if err != nil {
		return types.AppearanceAuto
	}
	return mode
}

// SetAppearance persists the theme preference
func (s *State) SetAppearance(mode types.AppearanceMode) error {
	return s.prefs.Set(PrefAppearance, mode.String())
}

// UIVersion returns the last UI version the user chose
func (s *State) UIVersion() (types.UIVersion, bool) {
	raw, ok := s.prefs.Get(PrefUIVersion)
	if !ok {
		return types.UIVersionMain, false
	}
	v, err := types.ParseUIVersion(raw)
	if err != nil {
		return types.UIVersionMain, false
	}
	return v, true
}

// RememberUIVersion persists the chosen UI version
func (s *State) RememberUIVersion(v types.UIVersion) error {
	return s.prefs.Set(PrefUIVersion, v.String())
}

// UpdateAvailable reports whether a newer release is known
func (s *State) UpdateAvailable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.update != nil
}

// Update returns the known release, if any
func (s *State) Update() (Update, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.update == nil {
		return Update{}, false
	}
	return *s.update, true
}

// SetUpdate records an available release
func (s *State) SetUpdate(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.update = &u
}
