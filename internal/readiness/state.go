// Package readiness detects when the hosted application has finished its
// own initialization.
//
// The application exposes no ready callback, so the detector polls its
// globals once the top-level document reports full load progress. Each poll
// distinguishes three outcomes: the application is ready (appLoaded), the
// application exists but there is no signed-in session (pageLoaded, the
// login flow), or a plain document finished loading without the application
// (pageLoaded). Anything else is polled again.
//
// All methods run on the UI loop. Every reset bumps a generation token;
// ticks and probe callbacks carrying an older token are discarded, so a
// poll started for a page that has since navigated away never acts.
package readiness

// LoadState tracks one browser surface through a page load
type LoadState int

const (
	NotStarted LoadState = iota
	Loading
	WaitingForAppReady
	Ready
)

// String returns a human readable label
func (s LoadState) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case Loading:
		return "loading"
	case WaitingForAppReady:
		return "waiting-for-app-ready"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Probe is the decoded result of bridge.ProbeScript
type Probe struct {
	AppReady         bool   `json:"appReady"`
	AppPresent       bool   `json:"appPresent"`
	HasSession       bool   `json:"hasSession"`
	DocumentComplete bool   `json:"documentComplete"`
	URL              string `json:"url"`
}
