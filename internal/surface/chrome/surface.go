package chrome

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/tweetduck/internal/policy"
	"github.com/GriffinCanCode/tweetduck/internal/shared/types"
	"github.com/GriffinCanCode/tweetduck/internal/surface"
)

// appearanceBinding carries prefers-color-scheme changes out of the page
const appearanceBinding = "tweetduckAppearance"

const appearanceWatcher = `(function () {
  if (!window.matchMedia) { return; }
  var q = window.matchMedia('(prefers-color-scheme: dark)');
  var report = function () {
    if (typeof window.` + appearanceBinding + ` === 'function') { window.` + appearanceBinding + `(q.matches ? 'dark' : 'light'); }
  };
  if (q.addEventListener) { q.addEventListener('change', report); } else if (q.addListener) { q.addListener(report); }
})();`

// Poster delivers tasks onto the UI loop
type Poster interface {
	Post(fn func()) bool
}

// Config configures a Chrome surface
type Config struct {
	AllocatorOptions []chromedp.ExecAllocatorOption
	// AppURL scopes cookie and storage operations
	AppURL string
	// HostDomain adds the sign-in origins to storage clearing and quotas
	HostDomain string
	Logger     *zap.Logger
}

// Surface drives one Chrome tab
type Surface struct {
	loop   Poster
	logger *zap.Logger
	appURL  string
	origin  string
	origins []string

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	mainFrame     cdp.FrameID

	generation atomic.Uint64
	current    atomic.Value // string
	pending    atomic.Value // string
	handler    atomic.Pointer[surface.NavigationHandler]

	// observers is only touched on the UI loop
	observers surface.Observers

	closeOnce sync.Once
}

var _ surface.Surface = (*Surface)(nil)

// New launches Chrome and prepares the tab
func New(ctx context.Context, loop Poster, cfg Config) (*Surface, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	origin, err := originOf(cfg.AppURL)
	if err != nil {
		return nil, err
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, cfg.AllocatorOptions...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	s := &Surface{
		loop:          loop,
		logger:        cfg.Logger,
		appURL:        cfg.AppURL,
		origin:        origin,
		origins:       storageOrigins(origin, cfg.HostDomain),
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}
	s.current.Store("about:blank")
	s.pending.Store("")

	if err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := page.Enable().Do(ctx); err != nil {
			return fmt.Errorf("page domain: %w", err)
		}
		if err := runtime.Enable().Do(ctx); err != nil {
			return fmt.Errorf("runtime domain: %w", err)
		}
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("network domain: %w", err)
		}
		patterns := []*fetch.RequestPattern{{
			URLPattern:   "*",
			ResourceType: network.ResourceTypeDocument,
			RequestStage: fetch.RequestStageRequest,
		}}
		if err := fetch.Enable().WithPatterns(patterns).Do(ctx); err != nil {
			return fmt.Errorf("fetch domain: %w", err)
		}
		if err := runtime.AddBinding(appearanceBinding).Do(ctx); err != nil {
			return fmt.Errorf("appearance binding: %w", err)
		}
		_, err := page.AddScriptToEvaluateOnNewDocument(appearanceWatcher).Do(ctx)
		return err
	})); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	s.mainFrame = cdp.FrameID(chromedp.FromContext(browserCtx).Target.TargetID)
	chromedp.ListenTarget(browserCtx, s.onEvent)

	s.logger.Info("chrome surface started", zap.String("app_origin", origin))
	return s, nil
}

// storageOrigins lists the app origin followed by the host domain's apex,
// www and mobile origins, without duplicates
func storageOrigins(appOrigin, hostDomain string) []string {
	out := []string{appOrigin}
	if hostDomain == "" {
		return out
	}
	for _, host := range []string{hostDomain, "www." + hostDomain, "mobile." + hostDomain} {
		o := "https://" + host
		if !slices.Contains(out, o) {
			out = append(out, o)
		}
	}
	return out
}

func originOf(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid app url %q", raw)
	}
	return u.Scheme + "://" + u.Host, nil
}

// run executes actions on the tab from a protocol goroutine
func (s *Surface) run(actions ...chromedp.Action) error {
	if err := s.browserCtx.Err(); err != nil {
		return surface.ErrClosed
	}
	return chromedp.Run(s.browserCtx, actions...)
}

// Navigate requests a main-frame navigation
func (s *Surface) Navigate(rawURL string) error {
	if s.browserCtx.Err() != nil {
		return surface.ErrClosed
	}
	go func() {
		if err := s.run(chromedp.Navigate(rawURL)); err != nil {
			s.logger.Debug("navigation did not complete", zap.String("url", rawURL), zap.Error(err))
		}
	}()
	return nil
}

// Reload reloads the current page
func (s *Surface) Reload() error {
	if s.browserCtx.Err() != nil {
		return surface.ErrClosed
	}
	go func() {
		if err := s.run(chromedp.Reload()); err != nil {
			s.logger.Debug("reload did not complete", zap.Error(err))
		}
	}()
	return nil
}

// URL returns the last committed main-frame URL
func (s *Surface) URL() string {
	return s.current.Load().(string)
}

// Evaluate runs script in the page that is current at call time. A page
// change before completion reports ErrStalePage.
func (s *Surface) Evaluate(script string, done func(any, error)) {
	gen := s.generation.Load()
	go func() {
		var (
			result any
			err    error
		)
		switch {
		case done == nil:
			err = s.run(chromedp.Evaluate(script, nil))
		default:
			err = s.run(chromedp.Evaluate(script, &result))
			if errors.Is(err, chromedp.ErrJSUndefined) || errors.Is(err, chromedp.ErrJSNull) {
				err = nil
			}
		}
		if s.generation.Load() != gen {
			result, err = nil, surface.ErrStalePage
		}

		if done == nil {
			if err != nil {
				s.logger.Debug("script evaluation failed", zap.Error(err))
			}
			return
		}
		s.loop.Post(func() { done(result, err) })
	}()
}

// InstallUserScript adds a document-start script for subsequent pages
func (s *Surface) InstallUserScript(ctx context.Context, script string) error {
	return s.run(chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx)
		return err
	}))
}

// AddBinding exposes channel as a page function
func (s *Surface) AddBinding(ctx context.Context, channel string) error {
	return s.run(runtime.AddBinding(channel))
}

// Subscribe registers an observer. Call on the UI loop.
func (s *Surface) Subscribe(o surface.Observer) func() {
	return s.observers.Add(o)
}

// SetNavigationHandler installs the navigation policy
func (s *Surface) SetNavigationHandler(h surface.NavigationHandler) {
	if h == nil {
		s.handler.Store(nil)
		return
	}
	s.handler.Store(&h)
}

// Cookie reads a cookie for the application origin
func (s *Surface) Cookie(name string, done func(string, bool)) {
	go func() {
		var cookies []*network.Cookie
		err := s.run(chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().WithUrls([]string{s.appURL}).Do(ctx)
			return err
		}))
		if err != nil {
			s.logger.Debug("cookie read failed", zap.String("name", name), zap.Error(err))
		}

		value, ok := findCookie(cookies, name)
		s.loop.Post(func() { done(value, ok) })
	}()
}

func findCookie(cookies []*network.Cookie, name string) (string, bool) {
	for _, c := range cookies {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// SetCookie writes a session cookie for the application origin
func (s *Surface) SetCookie(name, value string) error {
	return s.run(chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookie(name, value).WithURL(s.appURL).Do(ctx)
	}))
}

// DisableCache turns off the HTTP cache
func (s *Surface) DisableCache(ctx context.Context) error {
	return s.run(network.SetCacheDisabled(true))
}

// ClearBrowsingData drops cache, cookies and all storage for the app and
// sign-in origins
func (s *Surface) ClearBrowsingData(ctx context.Context) error {
	actions := []chromedp.Action{
		network.ClearBrowserCache(),
		network.ClearBrowserCookies(),
	}
	for _, o := range s.origins {
		actions = append(actions, storage.ClearDataForOrigin(o, "all"))
	}
	return s.run(actions...)
}

// SetStorageQuota overrides the storage quota of the app and sign-in origins
func (s *Surface) SetStorageQuota(ctx context.Context, bytes int64) error {
	actions := make([]chromedp.Action, 0, len(s.origins))
	for _, o := range s.origins {
		actions = append(actions, storage.OverrideQuotaForOrigin(o).WithQuotaSize(float64(bytes)))
	}
	return s.run(actions...)
}

// Close shuts the browser down
func (s *Surface) Close() error {
	s.closeOnce.Do(func() {
		s.browserCancel()
		s.allocCancel()
	})
	return nil
}

func (s *Surface) post(fn func(surface.Observer)) {
	s.loop.Post(func() { s.observers.Each(fn) })
}

func (s *Surface) onEvent(ev any) {
	switch ev := ev.(type) {
	case *fetch.EventRequestPaused:
		c := chromedp.FromContext(s.browserCtx)
		ctx := cdp.WithExecutor(s.browserCtx, c.Target)
		go s.intercept(ctx, ev)

	case *runtime.EventBindingCalled:
		name, payload := ev.Name, ev.Payload
		if name == appearanceBinding {
			if mode, ok := parseAppearance(payload); ok {
				s.post(func(o surface.Observer) { o.OnAppearanceChanged(mode) })
			}
			return
		}
		s.post(func(o surface.Observer) { o.OnMessage(name, payload) })

	case *page.EventFrameStartedLoading:
		if ev.FrameID != s.mainFrame {
			return
		}
		s.generation.Add(1)
		target := s.pending.Load().(string)
		s.post(func(o surface.Observer) {
			o.OnNavigationStarted(target)
			o.OnProgress(0.1)
		})

	case *page.EventDomContentEventFired:
		s.post(func(o surface.Observer) { o.OnProgress(0.7) })

	case *page.EventLoadEventFired:
		s.post(func(o surface.Observer) { o.OnProgress(1) })

	case *page.EventFrameNavigated:
		if ev.Frame == nil || ev.Frame.ParentID != "" {
			return
		}
		u := ev.Frame.URL + ev.Frame.URLFragment
		s.current.Store(u)
		s.post(func(o surface.Observer) { o.OnURLChanged(u) })

	case *page.EventNavigatedWithinDocument:
		if ev.FrameID != s.mainFrame {
			return
		}
		u := ev.URL
		s.current.Store(u)
		s.post(func(o surface.Observer) { o.OnURLChanged(u) })

	case *page.EventWindowOpen:
		// Popups are replayed as main-frame navigations so the handler
		// decides them like any other page load.
		if ev.URL == "" || ev.URL == "about:blank" {
			return
		}
		if err := s.Navigate(ev.URL); err != nil {
			s.logger.Debug("popup navigation dropped", zap.String("url", ev.URL), zap.Error(err))
		}

	case *target.EventTargetCreated:
		if !isPopup(ev.TargetInfo, target.ID(s.mainFrame)) {
			return
		}
		id := ev.TargetInfo.TargetID
		go func() {
			c := chromedp.FromContext(s.browserCtx)
			if err := target.CloseTarget(id).Do(cdp.WithExecutor(s.browserCtx, c.Browser)); err != nil {
				s.logger.Debug("close popup failed", zap.String("target", string(id)), zap.Error(err))
			}
		}()
	}
}

// isPopup reports whether info describes a page opened by the opener target
func isPopup(info *target.Info, opener target.ID) bool {
	return info != nil && info.Type == "page" && opener != "" && info.OpenerID == opener
}

// intercept applies the navigation handler to a paused document request
func (s *Surface) intercept(ctx context.Context, ev *fetch.EventRequestPaused) {
	mainFrame := ev.FrameID == s.mainFrame
	decision := s.decide(ev.Request.URL, mainFrame)

	var err error
	switch outcome := outcomeFor(decision); outcome.kind {
	case continueRequest:
		if mainFrame {
			s.pending.Store(ev.Request.URL)
		}
		err = fetch.ContinueRequest(ev.RequestID).Do(ctx)
	case redirectRequest:
		err = fetch.FulfillRequest(ev.RequestID, 302).
			WithResponseHeaders([]*fetch.HeaderEntry{{Name: "Location", Value: outcome.location}}).
			Do(ctx)
	default:
		err = fetch.FailRequest(ev.RequestID, network.ErrorReasonBlockedByClient).Do(ctx)
	}
	if err != nil {
		s.logger.Debug("intercept response failed", zap.String("url", ev.Request.URL), zap.Error(err))
	}
}

func (s *Surface) decide(rawURL string, mainFrame bool) policy.Decision {
	h := s.handler.Load()
	if h == nil || *h == nil {
		return policy.Decision{Action: policy.Allow}
	}
	u, err := policy.ParseNavigationURL(rawURL)
	if err != nil {
		return policy.Decision{Action: policy.Cancel, Rule: policy.RuleMalformedURL}
	}
	return (*h)(policy.NavigationRequest{URL: u, MainFrame: mainFrame})
}

type outcomeKind int

const (
	continueRequest outcomeKind = iota
	redirectRequest
	failRequest
)

type outcome struct {
	kind     outcomeKind
	location string
}

// outcomeFor maps a routing decision onto a Fetch response
func outcomeFor(d policy.Decision) outcome {
	switch d.Action {
	case policy.Allow:
		return outcome{kind: continueRequest}
	case policy.RedirectTo:
		if d.Target == nil {
			return outcome{kind: failRequest}
		}
		return outcome{kind: redirectRequest, location: d.Target.String()}
	default:
		return outcome{kind: failRequest}
	}
}

func parseAppearance(payload string) (types.AppearanceMode, bool) {
	mode, err := types.ParseAppearanceMode(payload)
	if err != nil || mode == types.AppearanceAuto {
		return mode, false
	}
	return mode, true
}
