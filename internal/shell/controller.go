package shell

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/tweetduck/internal/bridge"
	"github.com/GriffinCanCode/tweetduck/internal/eventloop"
	"github.com/GriffinCanCode/tweetduck/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/tweetduck/internal/policy"
	"github.com/GriffinCanCode/tweetduck/internal/readiness"
	"github.com/GriffinCanCode/tweetduck/internal/session"
	"github.com/GriffinCanCode/tweetduck/internal/shared/types"
	"github.com/GriffinCanCode/tweetduck/internal/surface"
)

// EventSink receives controller events for diagnostics
type EventSink interface {
	Publish(kind string, data any)
}

type nopSink struct{}

func (nopSink) Publish(string, any) {}

// Options wires a Controller
type Options struct {
	Surface    surface.Surface
	Classifier *policy.Classifier
	Session    *session.Session
	State      *State
	Opener     surface.Opener
	Releases   surface.Opener
	Scheduler  eventloop.Scheduler

	EntryURL      string
	VersionCookie string
	SessionCookie string
	UpdateScheme  string
	PollInterval  time.Duration

	Events  EventSink
	Logger  *zap.Logger
	Metrics *monitoring.Metrics
}

// Controller orchestrates one shell window
type Controller struct {
	surface    surface.Surface
	classifier *policy.Classifier
	session    *session.Session
	state      *State
	opener     surface.Opener
	releases   surface.Opener
	scheduler  eventloop.Scheduler
	detector   *readiness.Detector
	router     *bridge.Router
	events     EventSink
	logger     *zap.Logger
	metrics    *monitoring.Metrics

	entryURL      string
	versionCookie string
	updateScheme  string

	currentURL  string
	unsubscribe func()
	started     bool
}

// New validates opts and builds a controller
func New(opts Options) (*Controller, error) {
	switch {
	case opts.Surface == nil:
		return nil, errors.New("shell: surface is required")
	case opts.Classifier == nil:
		return nil, errors.New("shell: classifier is required")
	case opts.Opener == nil:
		return nil, errors.New("shell: opener is required")
	case opts.Scheduler == nil:
		return nil, errors.New("shell: scheduler is required")
	case opts.EntryURL == "":
		return nil, errors.New("shell: entry url is required")
	}
	if opts.State == nil {
		opts.State = NewState(nil)
	}
	if opts.Events == nil {
		opts.Events = nopSink{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.VersionCookie == "" {
		opts.VersionCookie = "tweetdeck_version"
	}
	if opts.SessionCookie == "" {
		opts.SessionCookie = "twid"
	}
	if opts.UpdateScheme == "" {
		opts.UpdateScheme = opts.Classifier.Policy().UpdateScheme
	}

	c := &Controller{
		surface:       opts.Surface,
		classifier:    opts.Classifier,
		session:       opts.Session,
		state:         opts.State,
		opener:        opts.Opener,
		releases:      opts.Releases,
		scheduler:     opts.Scheduler,
		events:        opts.Events,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
		entryURL:      opts.EntryURL,
		versionCookie: opts.VersionCookie,
		updateScheme:  opts.UpdateScheme,
		currentURL:    "about:blank",
	}
	c.router = bridge.NewRouter(c, opts.Logger.Named("bridge"), opts.Metrics)
	c.detector = readiness.NewDetector(
		readiness.Config{Interval: opts.PollInterval, SessionCookie: opts.SessionCookie},
		opts.Scheduler,
		opts.Surface,
		func(m bridge.Message) { c.router.Dispatch(m) },
		opts.Logger.Named("readiness"),
		opts.Metrics,
	)
	return c, nil
}

// Start isolates the session, installs the bridge and opens the entry URL.
// Call it before the UI loop starts or on the loop.
func (c *Controller) Start(ctx context.Context) error {
	if c.started {
		return errors.New("shell: already started")
	}

	if c.session != nil {
		if err := c.session.Isolate(ctx, c.surface); err != nil {
			return fmt.Errorf("failed to isolate session: %w", err)
		}
	}
	if v, ok := c.state.UIVersion(); ok {
		if err := c.surface.SetCookie(c.versionCookie, v.String()); err != nil {
			c.logger.Warn("failed to restore ui version", zap.Error(err))
		}
	}
	if err := c.surface.InstallUserScript(ctx, bridge.BootstrapScript); err != nil {
		return fmt.Errorf("failed to install bootstrap script: %w", err)
	}
	if err := c.surface.AddBinding(ctx, bridge.Channel); err != nil {
		return fmt.Errorf("failed to add bridge binding: %w", err)
	}

	c.unsubscribe = c.surface.Subscribe(c)
	c.surface.SetNavigationHandler(c.handleNavigation)

	c.detector.Start()
	if err := c.surface.Navigate(c.entryURL); err != nil {
		return fmt.Errorf("failed to open %s: %w", c.entryURL, err)
	}

	c.started = true
	c.logger.Info("shell started", zap.String("entry_url", c.entryURL))
	c.events.Publish("started", map[string]string{"entry_url": c.entryURL})
	return nil
}

// Close releases the surface subscriptions and stops polling
func (c *Controller) Close() error {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.surface.SetNavigationHandler(nil)
	c.detector.Reset()
	c.started = false
	return nil
}

// LoadState returns the readiness state of the current page
func (c *Controller) LoadState() readiness.LoadState {
	return c.detector.State()
}

// handleNavigation is the surface's navigation hook. It may run on a
// protocol goroutine, so side effects are posted to the UI loop.
func (c *Controller) handleNavigation(req policy.NavigationRequest) policy.Decision {
	d := c.classifier.Classify(req)
	c.metrics.RecordDecision(d.Rule, d.Action.String())
	c.scheduler.AfterFunc(0, func() { c.afterDecision(req, d) })
	return d
}

func (c *Controller) afterDecision(req policy.NavigationRequest, d policy.Decision) {
	c.events.Publish("decision", map[string]any{
		"url":        req.URL.String(),
		"main_frame": req.MainFrame,
		"decision":   d,
	})

	switch {
	case d.Externalizes():
		c.open(d.Target)
	case d.Rule == policy.RuleUpdateAction:
		c.openUpdate()
	}
}

func (c *Controller) open(u *url.URL) {
	if u == nil {
		return
	}
	if err := c.opener.Open(u); err != nil {
		c.logger.Warn("external open failed", zap.String("url", u.String()), zap.Error(err))
	}
}

// openUpdate shows the known release page for the update action
func (c *Controller) openUpdate() {
	if c.releases == nil {
		c.logger.Debug("update action without a release opener")
		return
	}
	update, ok := c.state.Update()
	if !ok || update.URL == "" {
		c.logger.Debug("update action without a known release")
		return
	}
	u, err := url.Parse(update.URL)
	if err != nil {
		c.logger.Warn("invalid release url", zap.String("url", update.URL), zap.Error(err))
		return
	}
	if err := c.releases.Open(u); err != nil {
		c.logger.Warn("release page open failed", zap.String("url", u.String()), zap.Error(err))
	}
}

// evaluate runs a best-effort page script; failures are logged and dropped
func (c *Controller) evaluate(name, script string) {
	c.surface.Evaluate(script, func(_ any, err error) {
		switch {
		case err == nil:
			c.metrics.RecordScript("ok")
		case errors.Is(err, surface.ErrStalePage):
			c.metrics.RecordScript("stale")
			c.logger.Debug("script skipped for replaced page", zap.String("script", name))
		default:
			c.metrics.RecordScript("failed")
			c.logger.Debug("script failed", zap.String("script", name), zap.Error(err))
		}
	})
}

// ToggleUIVersion reads the version cookie and switches between legacy and
// beta. Anything other than legacy switches to legacy.
func (c *Controller) ToggleUIVersion() {
	c.surface.Cookie(c.versionCookie, func(raw string, _ bool) {
		c.ChangeUIVersion(types.ToggleFromCookie(raw))
	})
}

// SetAppearance stores a new theme preference and pushes it to a ready page
func (c *Controller) SetAppearance(mode types.AppearanceMode) error {
	if err := c.state.SetAppearance(mode); err != nil {
		return err
	}
	c.pushAppearance()
	return nil
}

func (c *Controller) pushAppearance() {
	if c.detector.State() != readiness.Ready {
		return
	}
	c.evaluate("appearance", bridge.AppearanceScript(c.state.Appearance()))
}

// PreferencesChanged reacts to preference edits made outside the shell
func (c *Controller) PreferencesChanged(keys []string) {
	for _, k := range keys {
		if k == PrefAppearance {
			c.logger.Info("appearance preference changed", zap.Stringer("mode", c.state.Appearance()))
			c.pushAppearance()
		}
	}
}

// UpdateFound records a newer release and shows the banner on a ready page
func (c *Controller) UpdateFound(u Update) {
	c.state.SetUpdate(u)
	c.events.Publish("update", u)
	if c.detector.State() == readiness.Ready {
		c.evaluate("update-banner", bridge.UpdateBannerScript(c.updateScheme, u.Version))
	}
}

// Snapshot describes the controller for diagnostics
type Snapshot struct {
	SessionID       string        `json:"session_id,omitempty"`
	URL             string        `json:"url"`
	LoadState       string        `json:"load_state"`
	Generation      uint64        `json:"generation"`
	Appearance      string        `json:"appearance"`
	UIVersion       string        `json:"ui_version,omitempty"`
	UpdateAvailable bool          `json:"update_available"`
	Update          *Update       `json:"update,omitempty"`
	Rules           []string      `json:"rules"`
	Policy          policy.Policy `json:"policy"`
}

// Snapshot returns the controller's current state. Call on the UI loop.
func (c *Controller) Snapshot() Snapshot {
	snap := Snapshot{
		URL:             c.currentURL,
		LoadState:       c.detector.State().String(),
		Generation:      c.detector.Generation(),
		Appearance:      c.state.Appearance().String(),
		UpdateAvailable: c.state.UpdateAvailable(),
		Rules:           c.classifier.Rules(),
		Policy:          c.classifier.Policy(),
	}
	if c.session != nil {
		snap.SessionID = c.session.ID.String()
	}
	if v, ok := c.state.UIVersion(); ok {
		snap.UIVersion = v.String()
	}
	if u, ok := c.state.Update(); ok {
		snap.Update = &u
	}
	return snap
}
