package policy

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Rule names, in evaluation order
const (
	RuleAuthSession      = "auth-session"
	RuleAccountExternal  = "account-external"
	RuleEmbeddedContent  = "embedded-content"
	RuleIdentityProvider = "identity-provider"
	RuleMarketingRoot    = "marketing-root"
	RuleAppSubdomain     = "app-subdomain"
	RuleUpdateAction     = "update-action"
	RuleSafeEmbed        = "safe-embed"
	RuleBlank            = "blank"
	RuleFallback         = "fallback"

	// RuleMalformedURL is reported by ClassifyRaw for input that never reaches the table
	RuleMalformedURL = "malformed-url"
)

// Rule is one routing table entry
type Rule struct {
	Name   string
	Match  func(NavigationRequest) bool
	Decide func(NavigationRequest) Decision
}

var (
	authPaths = []string{
		"/login",
		"/logout",
		"/i/flow/login",
		"/i/flow/logout",
		"/account/login_verification",
		"/account/login_challenge",
		"/sessions",
	}

	accountPathPrefixes = []string{
		"/account/begin_password_reset",
		"/account/reset_password",
		"/account/confirm_email_reset",
		"/i/flow/password_reset",
		"/i/flow/signup",
		"/signup",
	}

	embeddedHosts        = []string{"cards-frame", "cards", "caps"}
	embeddedPathPrefixes = []string{"/i/cards", "/i/cards-frame", "/i/polls"}

	reportPathPrefixes = []string{"/i/report", "/i/safety/report", "/i/safety/report_story"}

	videoEmbeds = []struct {
		host   string
		prefix string
	}{
		{host: "youtube.com", prefix: "/embed"},
		{host: "youtube-nocookie.com", prefix: "/embed"},
		{host: "player.vimeo.com", prefix: "/video"},
		{host: "platform.twitter.com", prefix: "/embed"},
	}
)

func (c *Classifier) buildRules() []Rule {
	return []Rule{
		{
			Name:   RuleAuthSession,
			Match:  func(r NavigationRequest) bool { return c.onHostDomain(r.URL) && pathIn(r.URL, authPaths) },
			Decide: decide(Allow, RuleAuthSession),
		},
		{
			Name: RuleAccountExternal,
			Match: func(r NavigationRequest) bool {
				return c.onHostDomain(r.URL) && hostname(r.URL) != c.policy.AppHost && pathUnderAny(r.URL, accountPathPrefixes)
			},
			Decide: externalize(RuleAccountExternal),
		},
		{
			Name:   RuleEmbeddedContent,
			Match:  c.isEmbeddedContent,
			Decide: decide(Allow, RuleEmbeddedContent),
		},
		{
			Name:   RuleIdentityProvider,
			Match:  func(r NavigationRequest) bool { return isIdentityProvider(r.URL) },
			Decide: decide(Allow, RuleIdentityProvider),
		},
		{
			Name:  RuleMarketingRoot,
			Match: func(r NavigationRequest) bool { return c.IsMarketingRoot(r.URL) },
			Decide: func(NavigationRequest) Decision {
				return Decision{Action: RedirectTo, Target: c.AppHome(), Rule: RuleMarketingRoot}
			},
		},
		{
			Name:   RuleAppSubdomain,
			Match:  func(r NavigationRequest) bool { return isWeb(r.URL) && hostname(r.URL) == c.policy.AppHost },
			Decide: decide(Allow, RuleAppSubdomain),
		},
		{
			Name:   RuleUpdateAction,
			Match:  func(r NavigationRequest) bool { return c.IsUpdateAction(r.URL) },
			Decide: decide(Cancel, RuleUpdateAction),
		},
		{
			Name:   RuleSafeEmbed,
			Match:  c.isSafeEmbed,
			Decide: decide(Allow, RuleSafeEmbed),
		},
		{
			Name:   RuleBlank,
			Match:  func(r NavigationRequest) bool { return isBlank(r.URL) },
			Decide: decide(Cancel, RuleBlank),
		},
		{
			Name:   RuleFallback,
			Match:  func(NavigationRequest) bool { return true },
			Decide: externalize(RuleFallback),
		},
	}
}

func decide(action Action, rule string) func(NavigationRequest) Decision {
	return func(NavigationRequest) Decision {
		return Decision{Action: action, Rule: rule}
	}
}

func externalize(rule string) func(NavigationRequest) Decision {
	return func(r NavigationRequest) Decision {
		return Decision{Action: OpenExternally, Target: cloneURL(r.URL), Rule: rule}
	}
}

// IsMarketingRoot reports whether u is the bare homepage of the host domain
// (apex, www or mobile), which carries no application and must be redirected
// to the app home instead.
func (c *Classifier) IsMarketingRoot(u *url.URL) bool {
	if u == nil || !isWeb(u) {
		return false
	}
	host := hostname(u)
	domain := c.policy.HostDomain
	if host != domain && host != "www."+domain && host != "mobile."+domain {
		return false
	}
	return u.Path == "" || u.Path == "/"
}

// IsUpdateAction reports whether u is the synthetic post-update sentinel
func (c *Classifier) IsUpdateAction(u *url.URL) bool {
	return u != nil && u.Scheme == c.policy.UpdateScheme
}

func (c *Classifier) onHostDomain(u *url.URL) bool {
	if !isWeb(u) {
		return false
	}
	host := hostname(u)
	if host == "" {
		return false
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return false
	}
	return registrable == c.policy.HostDomain
}

func (c *Classifier) isEmbeddedContent(r NavigationRequest) bool {
	if !isWeb(r.URL) {
		return false
	}
	host := hostname(r.URL)
	for _, sub := range embeddedHosts {
		if host == sub+"."+c.policy.HostDomain {
			return true
		}
	}
	return c.onHostDomain(r.URL) && pathUnderAny(r.URL, embeddedPathPrefixes)
}

func (c *Classifier) isSafeEmbed(r NavigationRequest) bool {
	if !isWeb(r.URL) {
		return false
	}
	host := hostname(r.URL)
	for _, e := range videoEmbeds {
		if hostMatches(host, e.host) && pathUnder(r.URL.Path, e.prefix) {
			return true
		}
	}
	return c.onHostDomain(r.URL) && pathUnderAny(r.URL, reportPathPrefixes)
}

func isIdentityProvider(u *url.URL) bool {
	if u == nil || u.Scheme != "https" {
		return false
	}
	switch hostname(u) {
	case "accounts.google.com":
		return pathUnder(u.Path, "/gsi")
	case "appleid.apple.com", "appleid.cdn-apple.com":
		return true
	}
	return false
}

func isBlank(u *url.URL) bool {
	return u != nil && u.Scheme == "about" && (u.Opaque == "blank" || u.Opaque == "")
}

func isWeb(u *url.URL) bool {
	return u != nil && (u.Scheme == "https" || u.Scheme == "http")
}

func hostname(u *url.URL) string {
	return strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
}

// hostMatches is true for domain itself and any subdomain of it
func hostMatches(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// pathUnder matches prefix on a segment boundary: /embed matches /embed and
// /embed/x but not /embedded.
func pathUnder(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func pathUnderAny(u *url.URL, prefixes []string) bool {
	for _, p := range prefixes {
		if pathUnder(u.Path, p) {
			return true
		}
	}
	return false
}

func pathIn(u *url.URL, paths []string) bool {
	p := strings.TrimSuffix(u.Path, "/")
	for _, candidate := range paths {
		if p == candidate {
			return true
		}
	}
	return false
}

func cloneURL(u *url.URL) *url.URL {
	c := *u
	return &c
}
