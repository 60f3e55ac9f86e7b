package policy

import (
	"encoding/json"
	"errors"
	"net/url"
)

var ErrMalformedURL = errors.New("malformed navigation url")

// Action is the outcome of classifying a navigation
type Action int

const (
	Allow Action = iota
	Cancel
	RedirectTo
	OpenExternally
)

// String returns the action label used in logs and metrics
func (a Action) String() string {
	switch a {
	case Allow:
		return "allow"
	case Cancel:
		return "cancel"
	case RedirectTo:
		return "redirect"
	case OpenExternally:
		return "open-externally"
	default:
		return "unknown"
	}
}

// NavigationRequest is one navigation attempt reported by the surface
type NavigationRequest struct {
	URL       *url.URL
	MainFrame bool
}

// Decision is the routing result for one request. Target is set for
// RedirectTo and OpenExternally.
type Decision struct {
	Action Action
	Target *url.URL
	Rule   string
}

// Blocks reports whether the surface must not load the original request.
// OpenExternally blocks too: the request leaves the surface entirely.
func (d Decision) Blocks() bool {
	return d.Action != Allow
}

// Externalizes reports whether the target goes to the system opener
func (d Decision) Externalizes() bool {
	return d.Action == OpenExternally
}

func (d Decision) String() string {
	if d.Target != nil {
		return d.Action.String() + "(" + d.Target.String() + ") by " + d.Rule
	}
	return d.Action.String() + " by " + d.Rule
}

// MarshalJSON renders the decision for the diagnostics API
func (d Decision) MarshalJSON() ([]byte, error) {
	out := struct {
		Action string `json:"action"`
		Target string `json:"target,omitempty"`
		Rule   string `json:"rule"`
	}{Action: d.Action.String(), Rule: d.Rule}
	if d.Target != nil {
		out.Target = d.Target.String()
	}
	return json.Marshal(out)
}
