package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/tweetduck/internal/eventloop"
	"github.com/GriffinCanCode/tweetduck/internal/infrastructure/config"
	"github.com/GriffinCanCode/tweetduck/internal/infrastructure/logging"
	"github.com/GriffinCanCode/tweetduck/internal/policy"
	"github.com/GriffinCanCode/tweetduck/internal/session"
	"github.com/GriffinCanCode/tweetduck/internal/shell"
	"github.com/GriffinCanCode/tweetduck/internal/surface"
	"github.com/GriffinCanCode/tweetduck/internal/surface/sim"
)

var (
	simSignedIn bool
	simDark     bool
	simDuration time.Duration
	simNavigate []string
	simMessages []string
	simVerbose  bool
)

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().BoolVar(&simSignedIn, "signed-in", false, "Give the simulated page a session cookie")
	simulateCmd.Flags().BoolVar(&simDark, "dark", false, "Start with a dark system appearance")
	simulateCmd.Flags().DurationVar(&simDuration, "duration", 2*time.Second, "Virtual time to run each step for")
	simulateCmd.Flags().StringArrayVar(&simNavigate, "navigate", nil, "Navigate to URL once the page is ready (repeatable)")
	simulateCmd.Flags().StringArrayVar(&simMessages, "message", nil, "Send a bridge message from the page (repeatable)")
	simulateCmd.Flags().BoolVarP(&simVerbose, "verbose", "v", false, "Log controller activity")
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the shell controller against a simulated page",
	Long: "Starts the controller on an in-process page simulator with a virtual\n" +
		"clock, replays the requested navigations and bridge messages, and prints\n" +
		"every shell event followed by the final state.",
	RunE: runSimulate,
}

// printSink writes shell events as JSON lines
type printSink struct {
	out   io.Writer
	clock *eventloop.Manual
}

func (p printSink) Publish(kind string, data any) {
	b, err := json.Marshal(map[string]any{"t": p.clock.Now().String(), "type": kind, "data": data})
	if err != nil {
		return
	}
	fmt.Fprintln(p.out, string(b))
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg := config.LoadOrDefault()
	out := cmd.OutOrStdout()

	log := logging.NewNop()
	if simVerbose {
		log = logging.NewDevelopment()
	}
	defer log.Sync()

	// A private base dir keeps the purge away from a running shell's profile
	base, err := os.MkdirTemp("", "tweetduck-sim-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(base)

	sess, err := session.Initialize(session.Options{BaseDir: base, Logger: log.Named("session")})
	if err != nil {
		return err
	}
	defer sess.Close()

	classifier, err := policy.New(policyFor(cfg), log.Named("policy"))
	if err != nil {
		return err
	}

	clock := eventloop.NewManual()
	page := sim.New(clock, sim.Config{
		Site:    sim.DefaultSite(cfg.App.AppHost),
		AppHost: cfg.App.AppHost,
		Dark:    simDark,
		Logger:  log.Named("surface.sim"),
	})
	defer page.Close()

	opener := surface.OpenerFunc(func(u *url.URL) error {
		fmt.Fprintf(out, "open %s\n", u)
		return nil
	})
	releases := surface.OpenerFunc(func(u *url.URL) error {
		fmt.Fprintf(out, "release %s\n", u)
		return nil
	})

	ctrl, err := shell.New(shell.Options{
		Surface:       page,
		Classifier:    classifier,
		Session:       sess,
		Opener:        opener,
		Releases:      releases,
		Scheduler:     clock,
		EntryURL:      cfg.App.EntryURL,
		VersionCookie: cfg.App.VersionCookie,
		SessionCookie: cfg.App.SessionCookie,
		UpdateScheme:  cfg.App.UpdateActionScheme,
		PollInterval:  cfg.Readiness.PollInterval,
		Events:        printSink{out: out, clock: clock},
		Logger:        log.Named("shell"),
	})
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if err := ctrl.Start(context.Background()); err != nil {
		return err
	}
	if simSignedIn {
		if err := page.SetCookie(cfg.App.SessionCookie, "simulated"); err != nil {
			return err
		}
	}
	clock.Advance(simDuration)

	for _, raw := range simNavigate {
		if err := page.Navigate(raw); err != nil {
			return err
		}
		clock.Advance(simDuration)
	}
	for _, msg := range simMessages {
		page.PostMessage(msg)
		clock.Advance(simDuration)
	}

	log.Debug("simulation finished", zap.Duration("virtual_time", clock.Now()))

	snap, err := json.MarshalIndent(ctrl.Snapshot(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(snap))
	return nil
}
