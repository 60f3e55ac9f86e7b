package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/tweetduck/internal/eventloop"
	"github.com/GriffinCanCode/tweetduck/internal/infrastructure/config"
	"github.com/GriffinCanCode/tweetduck/internal/infrastructure/logging"
	"github.com/GriffinCanCode/tweetduck/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/tweetduck/internal/infrastructure/server"
	"github.com/GriffinCanCode/tweetduck/internal/policy"
	"github.com/GriffinCanCode/tweetduck/internal/preferences"
	"github.com/GriffinCanCode/tweetduck/internal/session"
	"github.com/GriffinCanCode/tweetduck/internal/shell"
	"github.com/GriffinCanCode/tweetduck/internal/surface/chrome"
	"github.com/GriffinCanCode/tweetduck/internal/updates"
)

func runShell(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Development = cfg.Logging.Development
	logCfg.File = cfg.Logging.File
	log, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	log.Info("starting tweetduck", zap.String("version", version))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := monitoring.NewMetrics()

	sess, err := session.Initialize(session.Options{
		BaseDir:      cfg.Browser.ProfileBaseDir,
		ChromePath:   cfg.Browser.ChromePath,
		Headless:     cfg.Browser.Headless,
		WindowWidth:  cfg.Browser.WindowWidth,
		WindowHeight: cfg.Browser.WindowHeight,
		Logger:       log.Named("session"),
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	classifier, err := policy.New(policyFor(cfg), log.Named("policy"))
	if err != nil {
		return err
	}

	prefs, err := openPreferences(cfg.Preferences.Path, log.Named("preferences"))
	if err != nil {
		return err
	}

	loop := eventloop.New()
	surf, err := chrome.New(ctx, loop, chrome.Config{
		AllocatorOptions: sess.AllocatorOptions(),
		AppURL:           cfg.App.EntryURL,
		HostDomain:       cfg.App.HostDomain,
		Logger:           log.Named("surface.chrome"),
	})
	if err != nil {
		return err
	}
	defer surf.Close()

	var hub *server.Hub
	var events shell.EventSink
	if cfg.Diagnostics.Enabled {
		hub = server.NewHub(log.Named("diag"))
		events = hub
	}

	ctrl, err := shell.New(shell.Options{
		Surface:       surf,
		Classifier:    classifier,
		Session:       sess,
		State:         shell.NewState(prefs),
		Opener:        chrome.NewSystemOpener(log.Named("opener")),
		Releases:      chrome.NewSystemOpener(log.Named("releases")),
		Scheduler:     loop,
		EntryURL:      cfg.App.EntryURL,
		VersionCookie: cfg.App.VersionCookie,
		SessionCookie: cfg.App.SessionCookie,
		UpdateScheme:  cfg.App.UpdateActionScheme,
		PollInterval:  cfg.Readiness.PollInterval,
		Events:        events,
		Logger:        log.Named("shell"),
		Metrics:       metrics,
	})
	if err != nil {
		return err
	}

	// Start runs before the loop so surface events queue behind it
	if err := ctrl.Start(ctx); err != nil {
		return err
	}

	if prefs.Path() != "" {
		watcher, err := preferences.NewWatcher(prefs, preferences.DefaultDebounce, func(keys []string) {
			loop.Post(func() { ctrl.PreferencesChanged(keys) })
		}, log.Named("preferences"))
		if err != nil {
			log.Warn("preference watcher disabled", zap.Error(err))
		} else {
			go func() {
				if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Warn("preference watcher stopped", zap.Error(err))
				}
			}()
		}
	}

	if cfg.Updates.Enabled {
		checker, err := updates.NewChecker(updates.Config{
			FeedURL:        cfg.Updates.FeedURL,
			CurrentVersion: cfg.Updates.CurrentVersion,
		}, log.Named("updates"), metrics)
		if err != nil {
			log.Warn("update checks disabled", zap.Error(err))
		} else {
			go checker.Run(ctx, cfg.Updates.Interval, func(r updates.Release) {
				loop.Post(func() { ctrl.UpdateFound(shell.Update{Version: r.Version, URL: r.URL}) })
			})
		}
	}

	if hub != nil {
		srv := server.New(server.Config{Addr: cfg.Diagnostics.Addr}, shell.NewDiagnostics(ctrl, loop), hub, metrics, log.Named("diag"))
		addr, err := srv.Start()
		if err != nil {
			return err
		}
		log.Info("diagnostics listening", zap.String("addr", addr))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn("diagnostics shutdown failed", zap.Error(err))
			}
		}()
	}

	loop.Run(ctx)

	log.Info("shutting down")
	return ctrl.Close()
}

// openPreferences opens path, defaulting to the user config directory
func openPreferences(path string, logger *zap.Logger) (*preferences.Store, error) {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			logger.Warn("no config directory, preferences are not saved", zap.Error(err))
			return preferences.NewMemory(), nil
		}
		path = filepath.Join(dir, "tweetduck", "preferences.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create preferences directory: %w", err)
	}
	return preferences.Open(path, logger)
}
