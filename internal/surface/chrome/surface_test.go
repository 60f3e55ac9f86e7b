package chrome

import (
	"errors"
	"net/url"
	"testing"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/tweetduck/internal/policy"
	"github.com/GriffinCanCode/tweetduck/internal/shared/types"
	"github.com/GriffinCanCode/tweetduck/internal/surface"
)

func TestOutcomeFor(t *testing.T) {
	home, err := url.Parse("https://tweetdeck.twitter.com")
	require.NoError(t, err)

	tests := []struct {
		name     string
		decision policy.Decision
		want     outcome
	}{
		{"allow continues", policy.Decision{Action: policy.Allow}, outcome{kind: continueRequest}},
		{"redirect fulfils", policy.Decision{Action: policy.RedirectTo, Target: home}, outcome{kind: redirectRequest, location: "https://tweetdeck.twitter.com"}},
		{"redirect without target fails", policy.Decision{Action: policy.RedirectTo}, outcome{kind: failRequest}},
		{"cancel fails", policy.Decision{Action: policy.Cancel}, outcome{kind: failRequest}},
		{"external fails", policy.Decision{Action: policy.OpenExternally, Target: home}, outcome{kind: failRequest}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outcomeFor(tt.decision))
		})
	}
}

func TestDecideWithoutHandlerAllows(t *testing.T) {
	s := &Surface{}
	assert.Equal(t, policy.Allow, s.decide("https://example.com/", true).Action)
}

func TestDecideUsesHandler(t *testing.T) {
	classifier, err := policy.New(policy.DefaultPolicy(), nil)
	require.NoError(t, err)

	s := &Surface{}
	s.SetNavigationHandler(classifier.Classify)

	d := s.decide("https://twitter.com/", true)
	assert.Equal(t, policy.RedirectTo, d.Action)

	d = s.decide("", true)
	assert.Equal(t, policy.Cancel, d.Action)
	assert.Equal(t, policy.RuleMalformedURL, d.Rule)
}

func TestSetNavigationHandlerNilDetaches(t *testing.T) {
	classifier, err := policy.New(policy.DefaultPolicy(), nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		handler surface.NavigationHandler
		want    policy.Action
	}{
		{"nil handler allows", nil, policy.Allow},
		{"classifier handler decides", classifier.Classify, policy.RedirectTo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Surface{}
			s.SetNavigationHandler(classifier.Classify)
			s.SetNavigationHandler(tt.handler)

			var d policy.Decision
			require.NotPanics(t, func() { d = s.decide("https://twitter.com/", true) })
			assert.Equal(t, tt.want, d.Action)
		})
	}
}

func TestIsPopup(t *testing.T) {
	const opener = target.ID("MAIN")

	tests := []struct {
		name string
		info *target.Info
		want bool
	}{
		{"window opened by the view", &target.Info{TargetID: "POPUP", Type: "page", OpenerID: opener}, true},
		{"first tab", &target.Info{TargetID: "MAIN", Type: "page"}, false},
		{"page opened by another tab", &target.Info{TargetID: "OTHER", Type: "page", OpenerID: "ELSEWHERE"}, false},
		{"worker of the view", &target.Info{TargetID: "W", Type: "service_worker", OpenerID: opener}, false},
		{"missing info", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isPopup(tt.info, opener))
		})
	}
}

func TestParseAppearance(t *testing.T) {
	mode, ok := parseAppearance("dark")
	assert.True(t, ok)
	assert.Equal(t, types.AppearanceDark, mode)

	_, ok = parseAppearance("auto")
	assert.False(t, ok)
	_, ok = parseAppearance("sepia")
	assert.False(t, ok)
}

func TestOriginOf(t *testing.T) {
	origin, err := originOf("https://tweetdeck.twitter.com/some/path?q=1")
	require.NoError(t, err)
	assert.Equal(t, "https://tweetdeck.twitter.com", origin)

	_, err = originOf("not a url")
	assert.Error(t, err)
}

func TestStorageOrigins(t *testing.T) {
	tests := []struct {
		name       string
		appOrigin  string
		hostDomain string
		want       []string
	}{
		{
			name:       "app subdomain with host domain",
			appOrigin:  "https://tweetdeck.twitter.com",
			hostDomain: "twitter.com",
			want:       []string{"https://tweetdeck.twitter.com", "https://twitter.com", "https://www.twitter.com", "https://mobile.twitter.com"},
		},
		{
			name:      "no host domain",
			appOrigin: "https://tweetdeck.twitter.com",
			want:      []string{"https://tweetdeck.twitter.com"},
		},
		{
			name:       "app on the apex",
			appOrigin:  "https://twitter.com",
			hostDomain: "twitter.com",
			want:       []string{"https://twitter.com", "https://www.twitter.com", "https://mobile.twitter.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, storageOrigins(tt.appOrigin, tt.hostDomain))
		})
	}
}

func TestFindCookie(t *testing.T) {
	cookies := []*network.Cookie{{Name: "twid", Value: "u=1"}, {Name: "tweetdeck_version", Value: "beta"}}

	v, ok := findCookie(cookies, "tweetdeck_version")
	assert.True(t, ok)
	assert.Equal(t, "beta", v)

	_, ok = findCookie(cookies, "missing")
	assert.False(t, ok)
}

func TestSystemOpener(t *testing.T) {
	var opened []string
	o := NewSystemOpener(nil)
	o.open = func(u string) error {
		opened = append(opened, u)
		return nil
	}

	u, _ := url.Parse("https://evil.example.com/")
	require.NoError(t, o.Open(u))
	assert.Equal(t, []string{"https://evil.example.com/"}, opened)

	assert.Error(t, o.Open(nil))

	o.open = func(string) error { return errors.New("no display") }
	assert.Error(t, o.Open(u))
}
