package policy

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Policy names the hosts the routing table is built around
type Policy struct {
	HostDomain   string // registrable domain of the service, e.g. twitter.com
	AppHost      string // application subdomain, e.g. tweetdeck.twitter.com
	AppHome      string // redirect target for the bare marketing homepage
	UpdateScheme string // scheme of the post-update sentinel URI
}

// DefaultPolicy returns the TweetDeck routing policy
func DefaultPolicy() Policy {
	return Policy{
		HostDomain:   "twitter.com",
		AppHost:      "tweetdeck.twitter.com",
		AppHome:      "https://tweetdeck.twitter.com",
		UpdateScheme: "tweetduck",
	}
}

// Classifier evaluates the routing table
type Classifier struct {
	policy Policy
	home   *url.URL
	rules  []Rule
	logger *zap.Logger
}

// New builds a classifier for p
func New(p Policy, logger *zap.Logger) (*Classifier, error) {
	home, err := url.Parse(p.AppHome)
	if err != nil || !home.IsAbs() {
		return nil, fmt.Errorf("invalid app home %q", p.AppHome)
	}
	if p.HostDomain == "" || p.AppHost == "" || p.UpdateScheme == "" {
		return nil, fmt.Errorf("incomplete policy: %+v", p)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p.HostDomain = strings.ToLower(p.HostDomain)
	p.AppHost = strings.ToLower(p.AppHost)
	p.UpdateScheme = strings.ToLower(p.UpdateScheme)

	c := &Classifier{policy: p, home: home, logger: logger}
	c.rules = c.buildRules()
	return c, nil
}

// Policy returns the policy the classifier was built with
func (c *Classifier) Policy() Policy {
	return c.policy
}

// AppHome returns a copy of the redirect target
func (c *Classifier) AppHome() *url.URL {
	return cloneURL(c.home)
}

// Rules returns rule names in evaluation order
func (c *Classifier) Rules() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name
	}
	return names
}

// Classify returns exactly one decision for req. req.URL must be non-nil
// and absolute; use ClassifyRaw for untrusted input.
func (c *Classifier) Classify(req NavigationRequest) Decision {
	for _, rule := range c.rules {
		if rule.Match(req) {
			d := rule.Decide(req)
			c.logger.Debug("navigation classified",
				zap.String("url", req.URL.String()),
				zap.Bool("main_frame", req.MainFrame),
				zap.String("rule", d.Rule),
				zap.String("action", d.Action.String()),
			)
			return d
		}
	}
	// Unreachable: the fallback rule matches everything.
	return Decision{Action: Cancel, Rule: RuleFallback}
}

// ClassifyRaw parses raw and classifies it. Absent, unparseable or relative
// URLs are cancelled without consulting the table.
func (c *Classifier) ClassifyRaw(raw string, mainFrame bool) Decision {
	u, err := ParseNavigationURL(raw)
	if err != nil {
		c.logger.Debug("navigation cancelled", zap.String("url", raw), zap.Error(err))
		return Decision{Action: Cancel, Rule: RuleMalformedURL}
	}
	return c.Classify(NavigationRequest{URL: u, MainFrame: mainFrame})
}

// ParseNavigationURL parses an absolute URL or returns ErrMalformedURL
func ParseNavigationURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("%w: not absolute: %s", ErrMalformedURL, raw)
	}
	return u, nil
}
