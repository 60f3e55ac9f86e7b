package types

import "fmt"

// UIVersion mirrors the hosted page's persisted interface-version cookie.
type UIVersion int

const (
	UIVersionLegacy UIVersion = iota
	UIVersionMain
	UIVersionBeta
)

var uiVersionNames = map[UIVersion]string{
	UIVersionLegacy: "legacy",
	UIVersionMain:   "main",
	UIVersionBeta:   "beta",
}

// String returns the cookie value for the version
func (v UIVersion) String() string {
	if name, ok := uiVersionNames[v]; ok {
		return name
	}
	return "unknown"
}

// ParseUIVersion accepts exactly one of "legacy", "main" or "beta".
func ParseUIVersion(s string) (UIVersion, error) {
	for v, name := range uiVersionNames {
		if name == s {
			return v, nil
		}
	}
	return UIVersionMain, fmt.Errorf("invalid ui version %q", s)
}

// Toggled flips legacy to beta; every other version falls back to legacy.
func (v UIVersion) Toggled() UIVersion {
	if v == UIVersionLegacy {
		return UIVersionBeta
	}
	return UIVersionLegacy
}

// ToggleFromCookie applies the toggle to a raw cookie value. Unset or
// unparseable values are treated like Main.
func ToggleFromCookie(raw string) UIVersion {
	v, err := ParseUIVersion(raw)
	if err != nil {
		return UIVersionLegacy
	}
	return v.Toggled()
}

// AppearanceMode is the shell's theme preference
type AppearanceMode int

const (
	AppearanceAuto AppearanceMode = iota
	AppearanceLight
	AppearanceDark
)

// String returns the preference value for the mode
func (m AppearanceMode) String() string {
	switch m {
	case AppearanceAuto:
		return "auto"
	case AppearanceLight:
		return "light"
	case AppearanceDark:
		return "dark"
	default:
		return "unknown"
	}
}

// ParseAppearanceMode accepts "auto", "light" or "dark".
func ParseAppearanceMode(s string) (AppearanceMode, error) {
	switch s {
	case "auto":
		return AppearanceAuto, nil
	case "light":
		return AppearanceLight, nil
	case "dark":
		return AppearanceDark, nil
	default:
		return AppearanceAuto, fmt.Errorf("invalid appearance mode %q", s)
	}
}
