package sim

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/tweetduck/internal/bridge"
	"github.com/GriffinCanCode/tweetduck/internal/eventloop"
	"github.com/GriffinCanCode/tweetduck/internal/policy"
	"github.com/GriffinCanCode/tweetduck/internal/shared/types"
	"github.com/GriffinCanCode/tweetduck/internal/surface"
)

type recorder struct {
	started    []string
	progress   []float64
	urls       []string
	appearance []types.AppearanceMode
	messages   []string
}

func (r *recorder) OnNavigationStarted(u string) { r.started = append(r.started, u) }
func (r *recorder) OnProgress(p float64)         { r.progress = append(r.progress, p) }
func (r *recorder) OnURLChanged(u string)        { r.urls = append(r.urls, u) }

func (r *recorder) OnAppearanceChanged(m types.AppearanceMode) {
	r.appearance = append(r.appearance, m)
}

func (r *recorder) OnMessage(channel, payload string) {
	r.messages = append(r.messages, channel+":"+payload)
}

func newSurface(t *testing.T) (*Surface, *eventloop.Manual, *recorder) {
	t.Helper()
	sched := eventloop.NewManual()
	s := New(sched, Config{AppHost: "tweetdeck.twitter.com"})
	rec := &recorder{}
	s.Subscribe(rec)
	return s, sched, rec
}

func TestNavigateLifecycle(t *testing.T) {
	s, sched, rec := newSurface(t)

	require.NoError(t, s.Navigate("https://example.com/page"))
	assert.Empty(t, rec.started, "navigation is asynchronous")

	sched.Advance(0)
	assert.Equal(t, []string{"https://example.com/page"}, rec.started)
	assert.Equal(t, []string{"https://example.com/page"}, rec.urls)
	assert.Equal(t, []float64{0.1, 1}, rec.progress)
	assert.Equal(t, "https://example.com/page", s.URL())

	state, err := s.Query("document.readyState")
	require.NoError(t, err)
	assert.Equal(t, "complete", state)
}

func TestAppBootsOnlyWithSession(t *testing.T) {
	t.Run("with session cookie", func(t *testing.T) {
		s, sched, _ := newSurface(t)
		require.NoError(t, s.SetCookie("twid", "u=1"))
		require.NoError(t, s.Navigate("https://tweetdeck.twitter.com/"))
		sched.Advance(0)

		ready, err := s.Query("TD.ready")
		require.NoError(t, err)
		assert.Equal(t, false, ready)

		sched.Advance(300 * time.Millisecond)
		ready, err = s.Query("TD.ready")
		require.NoError(t, err)
		assert.Equal(t, true, ready)
	})

	t.Run("without session cookie", func(t *testing.T) {
		s, sched, _ := newSurface(t)
		require.NoError(t, s.Navigate("https://tweetdeck.twitter.com/"))
		sched.Advance(time.Second)

		ready, err := s.Query("TD.ready")
		require.NoError(t, err)
		assert.Equal(t, false, ready)
	})
}

func TestNavigationHandler(t *testing.T) {
	classifier, err := policy.New(policy.DefaultPolicy(), nil)
	require.NoError(t, err)

	s, sched, rec := newSurface(t)
	s.SetNavigationHandler(classifier.Classify)

	require.NoError(t, s.Navigate("https://twitter.com/"))
	sched.Advance(0)
	assert.Equal(t, []string{"https://tweetdeck.twitter.com"}, rec.started, "redirect followed")

	require.NoError(t, s.Navigate("https://evil.example.com/"))
	sched.Advance(0)
	assert.Len(t, rec.started, 1, "blocked navigation never starts")

	require.NoError(t, s.Navigate("::not a url"))
	sched.Advance(0)
	assert.Len(t, rec.started, 1)

	frame := s.NavigateFrame("https://www.youtube.com/embed/abc")
	assert.Equal(t, policy.Allow, frame.Action)
}

func TestPopupsAreDecidedAsTopLevelNavigations(t *testing.T) {
	tests := []struct {
		name      string
		script    string
		bootstrap bool
	}{
		{"window.open", "window.open('https://evil.example.com/x')", false},
		{"window.open with bootstrap", "window.open('https://evil.example.com/x')", true},
		{"location.assign", "location.assign('https://evil.example.com/x')", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, sched, rec := newSurface(t)

			var seen []policy.NavigationRequest
			s.SetNavigationHandler(func(r policy.NavigationRequest) policy.Decision {
				seen = append(seen, r)
				if r.URL.Host == "evil.example.com" {
					return policy.Decision{Action: policy.OpenExternally, Target: r.URL, Rule: policy.RuleFallback}
				}
				return policy.Decision{Action: policy.Allow}
			})
			if tt.bootstrap {
				require.NoError(t, s.InstallUserScript(context.Background(), bridge.BootstrapScript))
			}

			require.NoError(t, s.Navigate("https://tweetdeck.twitter.com/"))
			sched.Advance(0)

			_, err := s.Query(tt.script)
			require.NoError(t, err)
			sched.Advance(0)

			require.Len(t, seen, 2)
			assert.Equal(t, "https://evil.example.com/x", seen[1].URL.String())
			assert.True(t, seen[1].MainFrame)
			assert.Equal(t, "https://tweetdeck.twitter.com/", s.URL(), "the view is not replaced")
			assert.Len(t, rec.started, 1)
		})
	}
}

func TestBindingDeliversMessages(t *testing.T) {
	s, sched, rec := newSurface(t)
	require.NoError(t, s.AddBinding(context.Background(), bridge.Channel))
	require.NoError(t, s.InstallUserScript(context.Background(), bridge.BootstrapScript))
	require.NoError(t, s.Navigate("https://tweetdeck.twitter.com/"))
	sched.Advance(0)

	hidden, err := s.Query("document.getElementById('tweetduck-hide') !== null")
	require.NoError(t, err)
	assert.Equal(t, true, hidden, "bootstrap hides content")

	s.PostMessage("changeUIVersion beta")
	sched.Advance(0)
	assert.Equal(t, []string{"duckDuckDo:changeUIVersion beta"}, rec.messages)
}

func TestInstallUserScriptRejectsBadSource(t *testing.T) {
	s, _, _ := newSurface(t)
	assert.Error(t, s.InstallUserScript(context.Background(), "function ("))
}

func TestEvaluate(t *testing.T) {
	s, sched, _ := newSurface(t)
	require.NoError(t, s.Navigate("https://example.com/"))
	sched.Advance(0)

	var got any
	var gotErr error
	s.Evaluate("1 + 2", func(v any, err error) { got, gotErr = v, err })
	sched.Advance(0)
	require.NoError(t, gotErr)
	assert.EqualValues(t, 3, got)

	s.Evaluate("throw new Error('boom')", func(v any, err error) { gotErr = err })
	sched.Advance(0)
	assert.Error(t, gotErr)

	s.Evaluate("void 0", nil)
	sched.Advance(0)
	assert.Contains(t, s.Evaluations(), "void 0")
}

func TestEvaluateAgainstReplacedPageIsStale(t *testing.T) {
	s, sched, _ := newSurface(t)
	require.NoError(t, s.Navigate("https://example.com/a"))
	sched.Advance(0)

	require.NoError(t, s.Navigate("https://example.com/b"))
	var gotErr error
	called := false
	s.Evaluate("document.title = 'x'", func(v any, err error) {
		called = true
		gotErr = err
	})
	sched.Advance(0)

	assert.True(t, called)
	assert.ErrorIs(t, gotErr, surface.ErrStalePage)
	assert.NotContains(t, s.Evaluations(), "document.title = 'x'")
}

func TestProbeScriptAgainstSimulatedApp(t *testing.T) {
	s, sched, _ := newSurface(t)
	require.NoError(t, s.SetCookie("twid", "u=1"))
	require.NoError(t, s.Navigate("https://tweetdeck.twitter.com/"))
	sched.Advance(time.Second)

	var out any
	s.Evaluate(bridge.ProbeScript("twid"), func(v any, err error) {
		require.NoError(t, err)
		out = v
	})
	sched.Advance(0)
	assert.JSONEq(t,
		`{"appReady":true,"appPresent":true,"hasSession":true,"documentComplete":true,"url":"https://tweetdeck.twitter.com/"}`,
		out.(string))
}

func TestCookies(t *testing.T) {
	s, sched, _ := newSurface(t)
	require.NoError(t, s.Navigate("https://tweetdeck.twitter.com/"))
	sched.Advance(0)

	_, err := s.Query("document.cookie = 'tweetdeck_version=beta; path=/'")
	require.NoError(t, err)
	assert.Equal(t, "beta", s.Cookies()["tweetdeck_version"])

	var value string
	var found bool
	s.Cookie("tweetdeck_version", func(v string, ok bool) { value, found = v, ok })
	s.Cookie("missing", func(v string, ok bool) { assert.False(t, ok) })
	sched.Advance(0)
	assert.True(t, found)
	assert.Equal(t, "beta", value)
}

func TestIsolationClearsPriorState(t *testing.T) {
	s, sched, _ := newSurface(t)
	s.Seed(map[string]string{"twid": "old"}, []string{"https://tweetdeck.twitter.com/"}, map[string]string{"k": "v"})
	require.Equal(t, 1, s.CacheEntries())

	ctx := context.Background()
	require.NoError(t, s.DisableCache(ctx))
	require.NoError(t, s.ClearBrowsingData(ctx))
	require.NoError(t, s.SetStorageQuota(ctx, 0))

	assert.Empty(t, s.Cookies())
	assert.Zero(t, s.CacheEntries())
	assert.Zero(t, s.StorageEntries())
	assert.Equal(t, int64(0), s.Quota())

	require.NoError(t, s.Navigate("https://example.com/"))
	sched.Advance(0)
	assert.Zero(t, s.CacheEntries(), "disabled cache stays empty")

	_, err := s.Query("localStorage.setItem('a', 'b')")
	assert.Error(t, err, "zero quota rejects writes")
	assert.Zero(t, s.StorageEntries())
}

func TestAppearanceAndURLChanges(t *testing.T) {
	s, sched, rec := newSurface(t)
	require.NoError(t, s.Navigate("https://tweetdeck.twitter.com/"))
	sched.Advance(0)

	s.SetDark(true)
	s.ChangeURL("https://tweetdeck.twitter.com/#column")
	sched.Advance(0)

	assert.Equal(t, []types.AppearanceMode{types.AppearanceDark}, rec.appearance)
	assert.Equal(t, "https://tweetdeck.twitter.com/#column", rec.urls[len(rec.urls)-1])

	dark, err := s.Query("matchMedia('(prefers-color-scheme: dark)').matches")
	require.NoError(t, err)
	assert.Equal(t, true, dark)
}

func TestClosedSurface(t *testing.T) {
	s, sched, _ := newSurface(t)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Navigate("https://example.com/"), surface.ErrClosed)
	assert.ErrorIs(t, s.SetCookie("a", "b"), surface.ErrClosed)

	var gotErr error
	s.Evaluate("1", func(v any, err error) { gotErr = err })
	sched.Advance(0)
	assert.ErrorIs(t, gotErr, surface.ErrClosed)
}

func TestDefaultSite(t *testing.T) {
	site := DefaultSite("tweetdeck.twitter.com")
	app, _ := url.Parse("https://tweetdeck.twitter.com/")
	other, _ := url.Parse("https://twitter.com/login")

	assert.True(t, site(app).App)
	assert.Equal(t, "twid", site(app).RequireSession)
	assert.False(t, site(other).App)
}
