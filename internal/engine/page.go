// Package engine wires the scoring components of one page session.
package engine

import (
	"context"

	"go.uber.org/zap"

	"checkpoint/internal/behavior"
	"checkpoint/internal/challenge"
	"checkpoint/internal/clock"
	"checkpoint/internal/config"
	"checkpoint/internal/events"
	"checkpoint/internal/fingerprint"
	"checkpoint/internal/probe"
	"checkpoint/internal/session"
	"checkpoint/internal/types"
)

// Hook inspects the collected fingerprint. Hooks only observe; they never
// touch the score.
type Hook func(ctx context.Context, fp types.Fingerprint)

type Options struct {
	Config config.ScoringConfig
	Clock  clock.Clock
	Logger *zap.Logger
	// Rand overrides the settle delay source, see challenge.WithRand.
	Rand  func(n int64) int64
	Hooks []Hook
}

// Page is one verification session, from page ready to teardown.
type Page struct {
	ID string

	sc      *session.Context
	source  fingerprint.Source
	caps    probe.Capabilities
	monitor *behavior.Monitor
	probe   *probe.Probe
	gate    *challenge.Gate
	hooks   []Hook

	fp    types.Fingerprint
	valid bool
}

func New(id string, source fingerprint.Source, caps probe.Capabilities, notify challenge.Notifier, opts Options) *Page {
	sc := session.New(id, opts.Config, opts.Clock, opts.Logger)
	var gateOpts []challenge.Option
	if opts.Rand != nil {
		gateOpts = append(gateOpts, challenge.WithRand(opts.Rand))
	}
	return &Page{
		ID:      id,
		sc:      sc,
		source:  source,
		caps:    caps,
		monitor: behavior.NewMonitor(sc),
		probe:   probe.New(sc, caps),
		gate:    challenge.NewGate(sc, notify, gateOpts...),
		hooks:   opts.Hooks,
	}
}

// Start handles the page-ready signal: it marks the page load, arms the
// gate, runs the environment probe, collects and validates the
// fingerprint, and attaches the behavior monitor. It must not be called
// from the session loop.
func (p *Page) Start(ctx context.Context) {
	p.sc.Run(func() {
		p.sc.MarkPageLoad(p.sc.Clock.Now())
		p.gate.Attach()
	})

	p.probe.Run(ctx)

	fp := p.source.Collect(ctx)
	valid := fingerprint.Validate(fp)
	p.sc.Run(func() {
		p.fp = fp
		p.valid = valid
		if valid {
			p.sc.Post(config.SignalValidFingerprint)
		} else {
			p.sc.Logger.Info("fingerprint failed validation")
		}
	})
	for _, h := range p.hooks {
		h(ctx, fp)
	}

	p.sc.Run(p.monitor.Attach)
}

// Dispatch delivers ev on the session loop, stamping it with the session
// clock. It reports false once the session is closed.
func (p *Page) Dispatch(ev events.Event) bool {
	return p.sc.Run(func() {
		ev.At = p.sc.Clock.Now()
		p.sc.Bus.Dispatch(ev)
	})
}

func (p *Page) PointerMove(x, y float64) bool {
	return p.Dispatch(events.Event{Kind: events.PointerMove, X: x, Y: y})
}

func (p *Page) KeyDown(key string) bool {
	return p.Dispatch(events.Event{Kind: events.KeyDown, Key: key})
}

func (p *Page) Activate() bool {
	return p.Dispatch(events.Event{Kind: events.Activate})
}

// OnDecision registers f to run on the session loop when the gate decides.
func (p *Page) OnDecision(f func(types.Outcome)) {
	p.sc.Run(func() { p.gate.OnDecision(f) })
}

func (p *Page) State() types.VerificationState {
	var s types.VerificationState
	p.read(func() { s = p.gate.State() })
	return s
}

// Outcome returns the decision once made.
func (p *Page) Outcome() (types.Outcome, bool) {
	var (
		out  types.Outcome
		done bool
	)
	p.read(func() { out, done = p.gate.Outcome() })
	return out, done
}

// Fingerprint returns the collected fingerprint and its validity.
func (p *Page) Fingerprint() (types.Fingerprint, bool) {
	var (
		fp    types.Fingerprint
		valid bool
	)
	p.read(func() { fp, valid = p.fp, p.valid })
	return fp, valid
}

// read runs f on the loop, or directly once the session is closed and no
// handler can write anymore.
func (p *Page) read(f func()) {
	if !p.sc.Run(f) {
		f()
	}
}

// WaitSignals blocks until asynchronous probe signals have settled.
func (p *Page) WaitSignals() {
	p.probe.Wait()
}

// Session exposes the session context for inspection.
func (p *Page) Session() *session.Context { return p.sc }

// Close tears the session down: timers, listeners and pending probes.
func (p *Page) Close() {
	p.probe.Stop()
	p.sc.Close()
}
