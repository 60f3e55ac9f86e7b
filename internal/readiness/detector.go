package readiness

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/tweetduck/internal/bridge"
	"github.com/GriffinCanCode/tweetduck/internal/eventloop"
	"github.com/GriffinCanCode/tweetduck/internal/infrastructure/monitoring"
)

// Evaluator runs a script in the current page. done is invoked on the UI
// loop with the script's result, or with an error if evaluation failed.
type Evaluator interface {
	Evaluate(script string, done func(result any, err error))
}

// Config configures a Detector
type Config struct {
	Interval      time.Duration
	SessionCookie string
}

// Detector is the load-readiness state machine
type Detector struct {
	scheduler eventloop.Scheduler
	eval      Evaluator
	emit      func(bridge.Message)
	interval  time.Duration
	probe     string
	logger    *zap.Logger
	metrics   *monitoring.Metrics
	now       func() time.Time

	state      LoadState
	generation uint64
	stop       func()
	startedAt  time.Time
}

// NewDetector creates a detector. emit receives the readiness signal as a
// bridge message, so it travels the same route as page-originated commands.
func NewDetector(cfg Config, scheduler eventloop.Scheduler, eval Evaluator, emit func(bridge.Message), logger *zap.Logger, metrics *monitoring.Metrics) *Detector {
	if cfg.Interval <= 0 {
		cfg.Interval = 100 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{
		scheduler: scheduler,
		eval:      eval,
		emit:      emit,
		interval:  cfg.Interval,
		probe:     bridge.ProbeScript(cfg.SessionCookie),
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// State returns the current load state
func (d *Detector) State() LoadState {
	return d.state
}

// Generation returns the token of the current page lifetime
func (d *Detector) Generation() uint64 {
	return d.generation
}

// Start begins a new page lifetime: NotStarted → Loading.
func (d *Detector) Start() {
	d.Reset()
	d.state = Loading
	d.startedAt = d.now()
	d.logger.Debug("load started", zap.Uint64("generation", d.generation))
}

// Progress consumes the surface's load progress (0..1). The first time
// progress completes while Loading, polling begins.
func (d *Detector) Progress(p float64) {
	if d.state != Loading || p < 1 {
		return
	}
	d.state = WaitingForAppReady
	d.logger.Debug("document loaded, waiting for app", zap.Uint64("generation", d.generation))
	d.schedule(0)
}

// MarkReady moves to Ready without waiting for a poll, e.g. when the page
// announced readiness itself. Polling stops.
func (d *Detector) MarkReady() {
	if d.state == Ready {
		return
	}
	d.cancelPoll()
	d.state = Ready
}

// Reset abandons the current page lifetime. Pending ticks and in-flight
// probes become stale.
func (d *Detector) Reset() {
	d.generation++
	d.cancelPoll()
	d.state = NotStarted
}

func (d *Detector) cancelPoll() {
	if d.stop != nil {
		d.stop()
		d.stop = nil
	}
}

func (d *Detector) schedule(after time.Duration) {
	gen := d.generation
	d.stop = d.scheduler.AfterFunc(after, func() { d.tick(gen) })
}

func (d *Detector) current(gen uint64) bool {
	return gen == d.generation && d.state == WaitingForAppReady
}

func (d *Detector) tick(gen uint64) {
	d.stop = nil
	if !d.current(gen) {
		return
	}
	d.metrics.RecordPoll()

	d.eval.Evaluate(d.probe, func(result any, err error) {
		if !d.current(gen) {
			return
		}
		if err != nil {
			d.logger.Debug("readiness probe failed", zap.Error(err))
			d.schedule(d.interval)
			return
		}

		probe, err := decodeProbe(result)
		if err != nil {
			d.logger.Debug("readiness probe unreadable", zap.Error(err))
			d.schedule(d.interval)
			return
		}

		if msg, ok := classify(probe); ok {
			d.finish(msg)
			return
		}
		d.schedule(d.interval)
	})
}

// classify applies the three readiness conditions in priority order
func classify(p Probe) (bridge.Message, bool) {
	switch {
	case p.AppReady:
		return bridge.NewMessage(bridge.CommandAppLoaded), true
	case p.AppPresent && !p.HasSession:
		return pageLoaded(p.URL), true
	case !p.AppPresent && p.DocumentComplete:
		return pageLoaded(p.URL), true
	default:
		return bridge.Message{}, false
	}
}

func pageLoaded(url string) bridge.Message {
	if url == "" {
		return bridge.NewMessage(bridge.CommandPageLoaded)
	}
	return bridge.NewMessage(bridge.CommandPageLoaded, url)
}

func (d *Detector) finish(msg bridge.Message) {
	d.state = Ready
	elapsed := d.now().Sub(d.startedAt)
	d.metrics.RecordReady(string(msg.Command), elapsed)
	d.logger.Info("page ready",
		zap.String("signal", string(msg.Command)),
		zap.Duration("elapsed", elapsed),
	)
	d.emit(msg)
}

func decodeProbe(result any) (Probe, error) {
	var raw []byte
	switch v := result.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	case nil:
		return Probe{}, fmt.Errorf("empty probe result")
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return Probe{}, fmt.Errorf("encode probe result: %w", err)
		}
		raw = b
	}

	var p Probe
	if err := json.Unmarshal(raw, &p); err != nil {
		return Probe{}, fmt.Errorf("decode probe result: %w", err)
	}
	return p, nil
}
