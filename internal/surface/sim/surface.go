// Package sim is an in-process browser surface backed by a goja runtime.
//
// Each navigation builds a fresh JavaScript realm with a small DOM, the
// registered user scripts and bindings, and optionally the hosted
// application's globals. Shell scripts execute for real against that realm.
// All work is scheduled on an eventloop.Scheduler, so with a Manual
// scheduler a whole page lifecycle is deterministic.
package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/tweetduck/internal/eventloop"
	"github.com/GriffinCanCode/tweetduck/internal/policy"
	"github.com/GriffinCanCode/tweetduck/internal/shared/types"
	"github.com/GriffinCanCode/tweetduck/internal/surface"
)

const maxRedirects = 10

// Page describes how a simulated document behaves
type Page struct {
	// App installs the hosted application's globals
	App bool
	// ReadyAfter is how long after load the application flags itself ready
	ReadyAfter time.Duration
	// RequireSession keeps the application from becoming ready unless this
	// cookie is present
	RequireSession string
	// Script runs after the application globals
	Script string
}

// Site maps a URL to the page served for it
type Site func(u *url.URL) Page

// Config configures a simulated surface
type Config struct {
	Site    Site
	AppHost string
	Dark    bool
	Logger  *zap.Logger
}

// DefaultSite serves the application on appHost, which needs the twid
// session cookie to finish booting, and plain documents everywhere else.
func DefaultSite(appHost string) Site {
	return func(u *url.URL) Page {
		if u.Hostname() == appHost {
			return Page{App: true, ReadyAfter: 300 * time.Millisecond, RequireSession: "twid"}
		}
		return Page{}
	}
}

// Surface is the simulated browser view
type Surface struct {
	sched  eventloop.Scheduler
	site   Site
	logger *zap.Logger

	observers   surface.Observers
	handler     surface.NavigationHandler
	userScripts []string
	bindings    []string

	vm         *goja.Runtime
	page       Page
	url        string
	generation uint64
	dark       bool

	cookies       map[string]string
	cache         map[string]bool
	storage       map[string]string
	cacheDisabled bool
	quota         int64

	evaluations []string
	closed      bool
}

var _ surface.Surface = (*Surface)(nil)

// New creates a surface showing about:blank
func New(sched eventloop.Scheduler, cfg Config) *Surface {
	if cfg.Site == nil {
		cfg.Site = DefaultSite(cfg.AppHost)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	s := &Surface{
		sched:   sched,
		site:    cfg.Site,
		logger:  cfg.Logger,
		dark:    cfg.Dark,
		url:     "about:blank",
		cookies: make(map[string]string),
		cache:   make(map[string]bool),
		storage: make(map[string]string),
		quota:   -1,
	}
	s.vm = s.newRealm(s.url)
	return s
}

func (s *Surface) post(fn func()) {
	s.sched.AfterFunc(0, fn)
}

func (s *Surface) emit(fn func(surface.Observer)) {
	s.observers.Each(fn)
}

// Navigate requests a main-frame navigation
func (s *Surface) Navigate(rawURL string) error {
	if s.closed {
		return surface.ErrClosed
	}
	s.post(func() { s.navigate(rawURL, 0) })
	return nil
}

// Reload reloads the current page
func (s *Surface) Reload() error {
	return s.Navigate(s.url)
}

// URL returns the current document URL
func (s *Surface) URL() string {
	return s.url
}

func (s *Surface) navigate(rawURL string, depth int) {
	if s.closed {
		return
	}
	decision := s.decide(rawURL, true)
	switch decision.Action {
	case policy.Allow:
		u, err := url.Parse(rawURL)
		if err != nil {
			return
		}
		s.load(u)
	case policy.RedirectTo:
		if depth >= maxRedirects {
			s.logger.Warn("redirect limit reached", zap.String("url", rawURL))
			return
		}
		s.navigate(decision.Target.String(), depth+1)
	default:
		s.logger.Debug("navigation blocked", zap.String("url", rawURL), zap.Stringer("decision", decision))
	}
}

// NavigateFrame runs a sub-frame navigation through the handler and returns
// its decision. Frames are not rendered.
func (s *Surface) NavigateFrame(rawURL string) policy.Decision {
	return s.decide(rawURL, false)
}

func (s *Surface) decide(rawURL string, mainFrame bool) policy.Decision {
	if s.handler == nil {
		return policy.Decision{Action: policy.Allow}
	}
	u, err := policy.ParseNavigationURL(rawURL)
	if err != nil {
		return policy.Decision{Action: policy.Cancel, Rule: policy.RuleMalformedURL}
	}
	return s.handler(policy.NavigationRequest{URL: u, MainFrame: mainFrame})
}

func (s *Surface) load(u *url.URL) {
	s.generation++
	gen := s.generation
	s.url = u.String()
	s.page = s.site(u)
	s.vm = s.newRealm(s.url)

	if !s.cacheDisabled {
		s.cache[s.url] = true
	}

	raw := s.url
	s.emit(func(o surface.Observer) { o.OnNavigationStarted(raw) })
	s.emit(func(o surface.Observer) { o.OnURLChanged(raw) })
	s.emit(func(o surface.Observer) { o.OnProgress(0.1) })

	s.post(func() {
		if gen != s.generation || s.closed {
			return
		}
		s.run("document.readyState = 'complete';")
		s.emit(func(o surface.Observer) { o.OnProgress(1) })
		if s.page.App {
			s.sched.AfterFunc(s.page.ReadyAfter, func() { s.bootApp(gen) })
		}
	})
}

func (s *Surface) bootApp(gen uint64) {
	if gen != s.generation || s.closed {
		return
	}
	if name := s.page.RequireSession; name != "" {
		if _, ok := s.cookies[name]; !ok {
			return
		}
	}
	s.run("window.TD.ready = true;")
}

// newRealm builds a fresh JavaScript realm for rawURL
func (s *Surface) newRealm(rawURL string) *goja.Runtime {
	vm := goja.New()

	host := vm.NewObject()
	_ = host.Set("url", rawURL)
	_ = host.Set("cookies", s.cookieString)
	_ = host.Set("setCookie", s.setCookieString)
	_ = host.Set("dark", func() bool { return s.dark })
	_ = host.Set("getItem", func(k string) any {
		if v, ok := s.storage[k]; ok {
			return v
		}
		return nil
	})
	_ = host.Set("setItem", func(k, v string) bool {
		if s.quota == 0 {
			return false
		}
		s.storage[k] = v
		return true
	})
	_ = host.Set("removeItem", func(k string) { delete(s.storage, k) })
	_ = host.Set("navigate", func(u string) {
		if err := s.Navigate(u); err != nil {
			s.logger.Debug("page navigation dropped", zap.String("url", u), zap.Error(err))
		}
	})
	_ = vm.Set("__host", host)

	if _, err := vm.RunString(prelude); err != nil {
		s.logger.Error("prelude failed", zap.Error(err))
		return vm
	}

	for _, channel := range s.bindings {
		s.bind(vm, channel)
	}
	for _, script := range s.userScripts {
		if _, err := vm.RunString(script); err != nil {
			s.logger.Debug("user script failed", zap.Error(err))
		}
	}
	if s.page.App {
		if _, err := vm.RunString(appGlobals); err != nil {
			s.logger.Error("app globals failed", zap.Error(err))
		}
	}
	if s.page.Script != "" {
		if _, err := vm.RunString(s.page.Script); err != nil {
			s.logger.Debug("page script failed", zap.Error(err))
		}
	}
	return vm
}

func (s *Surface) bind(vm *goja.Runtime, channel string) {
	_ = vm.Set(channel, func(payload string) {
		s.post(func() {
			s.emit(func(o surface.Observer) { o.OnMessage(channel, payload) })
		})
	})
}

func (s *Surface) run(script string) {
	if _, err := s.vm.RunString(script); err != nil {
		s.logger.Debug("script failed", zap.Error(err))
	}
}

// Evaluate runs script against the page current at call time
func (s *Surface) Evaluate(script string, done func(any, error)) {
	gen := s.generation
	s.post(func() {
		var (
			result any
			err    error
		)
		switch {
		case s.closed:
			err = surface.ErrClosed
		case gen != s.generation:
			err = surface.ErrStalePage
		default:
			s.evaluations = append(s.evaluations, script)
			var v goja.Value
			v, err = s.vm.RunString(script)
			if err == nil && v != nil {
				result = v.Export()
			}
		}
		if done != nil {
			done(result, err)
		}
	})
}

// InstallUserScript adds a document-start script for subsequent pages
func (s *Surface) InstallUserScript(ctx context.Context, script string) error {
	if s.closed {
		return surface.ErrClosed
	}
	if _, err := goja.Compile("user-script", script, false); err != nil {
		return fmt.Errorf("failed to compile user script: %w", err)
	}
	s.userScripts = append(s.userScripts, script)
	return nil
}

// AddBinding exposes channel as a page function on subsequent pages
func (s *Surface) AddBinding(ctx context.Context, channel string) error {
	if s.closed {
		return surface.ErrClosed
	}
	s.bindings = append(s.bindings, channel)
	s.bind(s.vm, channel)
	return nil
}

// Subscribe registers an observer
func (s *Surface) Subscribe(o surface.Observer) func() {
	return s.observers.Add(o)
}

// SetNavigationHandler installs the navigation policy
func (s *Surface) SetNavigationHandler(h surface.NavigationHandler) {
	s.handler = h
}

// Cookie reads a cookie from the jar
func (s *Surface) Cookie(name string, done func(string, bool)) {
	s.post(func() {
		v, ok := s.cookies[name]
		done(v, ok)
	})
}

// SetCookie writes a cookie to the jar
func (s *Surface) SetCookie(name, value string) error {
	if s.closed {
		return surface.ErrClosed
	}
	s.cookies[name] = value
	return nil
}

// DisableCache stops pages from being cached and drops cached entries
func (s *Surface) DisableCache(ctx context.Context) error {
	s.cacheDisabled = true
	s.cache = make(map[string]bool)
	return nil
}

// ClearBrowsingData empties the cookie jar, cache and origin storage
func (s *Surface) ClearBrowsingData(ctx context.Context) error {
	s.cookies = make(map[string]string)
	s.cache = make(map[string]bool)
	s.storage = make(map[string]string)
	return nil
}

// SetStorageQuota limits origin storage
func (s *Surface) SetStorageQuota(ctx context.Context, bytes int64) error {
	s.quota = bytes
	if bytes == 0 {
		s.storage = make(map[string]string)
	}
	return nil
}

// Close tears the surface down; queued work becomes a no-op
func (s *Surface) Close() error {
	s.closed = true
	return nil
}

func (s *Surface) cookieString() string {
	names := make([]string, 0, len(s.cookies))
	for name := range s.cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+s.cookies[name])
	}
	return strings.Join(parts, "; ")
}

func (s *Surface) setCookieString(raw string) {
	pair, _, _ := strings.Cut(raw, ";")
	name, value, ok := strings.Cut(pair, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return
	}
	s.cookies[name] = strings.TrimSpace(value)
}

// SetDark switches the system appearance and notifies observers
func (s *Surface) SetDark(dark bool) {
	s.post(func() {
		s.dark = dark
		mode := types.AppearanceLight
		if dark {
			mode = types.AppearanceDark
		}
		s.emit(func(o surface.Observer) { o.OnAppearanceChanged(mode) })
	})
}

// ChangeURL updates the location without a navigation, as history.pushState does
func (s *Surface) ChangeURL(rawURL string) {
	s.post(func() {
		s.url = rawURL
		s.run("location.href = " + jsQuote(rawURL) + ";")
		s.emit(func(o surface.Observer) { o.OnURLChanged(rawURL) })
	})
}

// PostMessage sends payload through the page's message handler shim
func (s *Surface) PostMessage(payload string) {
	s.post(func() {
		s.run("window.webkit.messageHandlers.duckDuckDo.postMessage(" + jsQuote(payload) + ");")
	})
}

// MarkAppReady flags the application ready immediately
func (s *Surface) MarkAppReady() {
	s.post(func() {
		s.run("if (window.TD) { window.TD.ready = true; }")
	})
}

// Query evaluates expr on the current page synchronously
func (s *Surface) Query(expr string) (any, error) {
	v, err := s.vm.RunString(expr)
	if err != nil {
		return nil, err
	}
	return v.Export(), nil
}

// Cookies returns a copy of the jar
func (s *Surface) Cookies() map[string]string {
	out := make(map[string]string, len(s.cookies))
	for k, v := range s.cookies {
		out[k] = v
	}
	return out
}

// CacheEntries reports the number of cached documents
func (s *Surface) CacheEntries() int {
	return len(s.cache)
}

// StorageEntries reports the number of origin storage items
func (s *Surface) StorageEntries() int {
	return len(s.storage)
}

// Quota returns the storage quota, or -1 when unlimited
func (s *Surface) Quota() int64 {
	return s.quota
}

// Seed installs prior-run browsing state
func (s *Surface) Seed(cookies map[string]string, cachedURLs []string, storage map[string]string) {
	for k, v := range cookies {
		s.cookies[k] = v
	}
	for _, u := range cachedURLs {
		s.cache[u] = true
	}
	for k, v := range storage {
		s.storage[k] = v
	}
}

// Evaluations lists the scripts evaluated so far
func (s *Surface) Evaluations() []string {
	return append([]string(nil), s.evaluations...)
}

// Observers reports the number of subscribers
func (s *Surface) Observers() int {
	return s.observers.Len()
}

func jsQuote(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}
