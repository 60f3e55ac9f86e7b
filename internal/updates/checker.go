package updates

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/mod/semver"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/tweetduck/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/tweetduck/internal/infrastructure/resilience"
)

var (
	ErrNoRelease      = errors.New("feed has no published release")
	ErrInvalidVersion = errors.New("invalid version")
)

// Config configures a Checker
type Config struct {
	FeedURL        string
	CurrentVersion string
	Timeout        time.Duration

	// RetryMax of 0 means the default; negative disables retries
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// MinGap is the minimum time between two feed requests
	MinGap time.Duration

	// Breaker overrides the feed circuit breaker settings
	Breaker resilience.Settings
}

// Release is one published version
type Release struct {
	Version     string    `json:"version"`
	URL         string    `json:"url"`
	Notes       string    `json:"notes"`
	PublishedAt time.Time `json:"published_at"`
}

// Status is the outcome of the most recent check
type Status struct {
	Current   string    `json:"current"`
	Available bool      `json:"available"`
	Latest    *Release  `json:"latest,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
	Error     string    `json:"error,omitempty"`
}

type feedRelease struct {
	TagName     string    `json:"tag_name"`
	HTMLURL     string    `json:"html_url"`
	Body        string    `json:"body"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
}

// Checker polls the release feed
type Checker struct {
	client    *resty.Client
	limiter   *rate.Limiter
	breaker   *resilience.Breaker
	sanitizer *bluemonday.Policy
	feedURL   string
	current   string
	logger    *zap.Logger
	metrics   *monitoring.Metrics

	mu       sync.RWMutex
	status   Status
	notified string
}

// NewChecker creates a checker for cfg
func NewChecker(cfg Config, logger *zap.Logger, metrics *monitoring.Metrics) (*Checker, error) {
	current, ok := normalizeVersion(cfg.CurrentVersion)
	if !ok {
		return nil, fmt.Errorf("%w: current version %q", ErrInvalidVersion, cfg.CurrentVersion)
	}
	if cfg.FeedURL == "" {
		return nil, fmt.Errorf("feed url is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RetryMax == 0 {
		cfg.RetryMax = 3
	}
	if cfg.RetryWaitMin == 0 {
		cfg.RetryWaitMin = time.Second
	}
	if cfg.RetryWaitMax == 0 {
		cfg.RetryWaitMax = 30 * time.Second
	}
	if cfg.MinGap == 0 {
		cfg.MinGap = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = max(cfg.RetryMax, 0)
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.Logger = nil

	client := resty.NewWithClient(retryClient.StandardClient()).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/vnd.github+json").
		SetHeader("User-Agent", "TweetDuck-Shell/"+strings.TrimPrefix(current, "v"))

	settings := cfg.Breaker
	if settings.Cooldown == 0 {
		settings.Cooldown = 30 * time.Minute
	}
	settings.IsFailure = func(err error) bool { return !errors.Is(err, ErrNoRelease) }

	c := &Checker{
		client:    client,
		limiter:   rate.NewLimiter(rate.Every(cfg.MinGap), 1),
		breaker:   resilience.New("release-feed", settings),
		sanitizer: bluemonday.StrictPolicy(),
		feedURL:   cfg.FeedURL,
		current:   current,
		logger:    logger,
		metrics:   metrics,
		status:    Status{Current: current},
	}
	return c, nil
}

// Status returns the most recent check result
func (c *Checker) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.status
}

// Breaker returns the feed breaker's state
func (c *Checker) Breaker() resilience.Snapshot {
	return c.breaker.Snapshot()
}

// Check queries the feed once
func (c *Checker) Check(ctx context.Context) (Status, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return c.Status(), err
	}

	var latest *Release
	err := c.breaker.Do(ctx, func(ctx context.Context) error {
		r, err := c.fetch(ctx)
		latest = r
		return err
	})

	status := Status{Current: c.current, CheckedAt: time.Now()}
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		c.metrics.RecordUpdateCheck("skipped")
		return c.Status(), err
	case errors.Is(err, ErrNoRelease):
		c.metrics.RecordUpdateCheck("current")
		err = nil
	case err != nil:
		c.metrics.RecordUpdateCheck("error")
		status.Error = err.Error()
		c.logger.Warn("update check failed", zap.Error(err))
	default:
		status.Latest = latest
		status.Available = semver.Compare(latest.Version, c.current) > 0
		if status.Available {
			c.metrics.RecordUpdateCheck("available")
		} else {
			c.metrics.RecordUpdateCheck("current")
		}
	}

	c.mu.Lock()
	c.status = status
	c.mu.Unlock()

	c.logger.Debug("update check done",
		zap.Bool("available", status.Available),
		zap.String("current", c.current),
	)
	return status, err
}

func (c *Checker) fetch(ctx context.Context) (*Release, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&feedRelease{}).
		Get(c.feedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to query release feed: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, ErrNoRelease
	}
	if resp.IsError() {
		return nil, fmt.Errorf("release feed returned %s", resp.Status())
	}

	feed, ok := resp.Result().(*feedRelease)
	if !ok || feed.TagName == "" || feed.Draft || feed.Prerelease {
		return nil, ErrNoRelease
	}

	version, ok := normalizeVersion(feed.TagName)
	if !ok {
		return nil, fmt.Errorf("%w: release tag %q", ErrInvalidVersion, feed.TagName)
	}

	return &Release{
		Version:     version,
		URL:         feed.HTMLURL,
		Notes:       strings.TrimSpace(c.sanitizer.Sanitize(feed.Body)),
		PublishedAt: feed.PublishedAt,
	}, nil
}

// Run checks immediately and then every interval until ctx is done.
// onAvailable is called once per newly discovered version.
func (c *Checker) Run(ctx context.Context, interval time.Duration, onAvailable func(Release)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if status, err := c.Check(ctx); err == nil && status.Available && status.Latest != nil {
			c.notify(*status.Latest, onAvailable)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Checker) notify(r Release, onAvailable func(Release)) {
	c.mu.Lock()
	seen := c.notified == r.Version
	c.notified = r.Version
	c.mu.Unlock()

	if !seen && onAvailable != nil {
		c.logger.Info("update available", zap.String("version", r.Version))
		onAvailable(r)
	}
}

func normalizeVersion(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", false
	}
	return semver.Canonical(v), true
}
