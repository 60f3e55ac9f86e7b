package shell

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/tweetduck/internal/bridge"
	"github.com/GriffinCanCode/tweetduck/internal/policy"
	"github.com/GriffinCanCode/tweetduck/internal/readiness"
	"github.com/GriffinCanCode/tweetduck/internal/shared/types"
	"github.com/GriffinCanCode/tweetduck/internal/surface"
)

var (
	_ surface.Observer = (*Controller)(nil)
	_ bridge.Host      = (*Controller)(nil)
)

// OnNavigationStarted invalidates the previous page's poll and scripts
func (c *Controller) OnNavigationStarted(rawURL string) {
	c.detector.Start()
	c.events.Publish("navigation", map[string]string{"url": rawURL})
}

// OnProgress hands load progress to the readiness detector
func (c *Controller) OnProgress(p float64) {
	c.detector.Progress(p)
}

// OnURLChanged sends the bare marketing homepage back to the app. The URL
// can change without a navigation the policy hook sees.
func (c *Controller) OnURLChanged(rawURL string) {
	c.currentURL = rawURL

	u, err := policy.ParseNavigationURL(rawURL)
	if err != nil || !c.classifier.IsMarketingRoot(u) {
		return
	}

	home := c.classifier.AppHome().String()
	c.logger.Info("marketing page reached, returning to app", zap.String("url", rawURL))
	if err := c.surface.Navigate(home); err != nil {
		c.logger.Warn("redirect to app failed", zap.Error(err))
	}
}

// OnAppearanceChanged re-pushes the theme when the system appearance flips
func (c *Controller) OnAppearanceChanged(mode types.AppearanceMode) {
	c.events.Publish("appearance", map[string]string{"system": mode.String()})
	c.pushAppearance()
}

// OnMessage routes bridge payloads
func (c *Controller) OnMessage(channel, payload string) {
	c.router.Receive(channel, payload)
}

// AppLoaded finishes the page: theme, logo, reveal and the update banner
func (c *Controller) AppLoaded() {
	c.detector.MarkReady()

	c.evaluate("appearance", bridge.AppearanceScript(c.state.Appearance()))
	c.evaluate("logo", bridge.LogoScript())
	c.evaluate("reveal", bridge.RevealScript)
	if u, ok := c.state.Update(); ok {
		c.evaluate("update-banner", bridge.UpdateBannerScript(c.updateScheme, u.Version))
	}

	c.logger.Info("application ready", zap.String("url", c.currentURL))
	c.events.Publish("ready", map[string]string{"state": readiness.Ready.String(), "signal": "appLoaded"})
}

// PageLoaded reveals a page that is not the application, e.g. the login flow
func (c *Controller) PageLoaded(rawURL string) {
	c.detector.MarkReady()
	c.evaluate("reveal", bridge.RevealScript)

	c.logger.Debug("page ready", zap.String("url", rawURL))
	c.events.Publish("ready", map[string]string{"state": readiness.Ready.String(), "signal": "pageLoaded", "url": rawURL})
}

// ChangeUIVersion stores v in the version cookie and reloads
func (c *Controller) ChangeUIVersion(v types.UIVersion) {
	if err := c.surface.SetCookie(c.versionCookie, v.String()); err != nil {
		c.logger.Warn("failed to set ui version cookie", zap.Error(err))
		return
	}
	if err := c.state.RememberUIVersion(v); err != nil {
		c.logger.Warn("failed to remember ui version", zap.Error(err))
	}
	c.metrics.RecordUIVersionChange(v.String())
	c.events.Publish("ui_version", map[string]string{"version": v.String()})

	c.logger.Info("ui version changed", zap.Stringer("version", v))
	if err := c.surface.Reload(); err != nil {
		c.logger.Warn("reload failed", zap.Error(err))
	}
}
