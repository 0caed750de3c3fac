// Package challenge implements the checkbox decision gate.
package challenge

import (
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"checkpoint/internal/config"
	"checkpoint/internal/events"
	"checkpoint/internal/session"
	"checkpoint/internal/types"
)

// Notifier receives one-way UI notifications. Calls happen on the session
// loop and must not block.
type Notifier interface {
	Checking()
	Verified()
	Failed()
	// Restart asks the page to start a new session.
	Restart()
	// RevealFollowUp shows whatever comes after a passed check.
	RevealFollowUp()
}

// Gate is the Idle → Pending → Verified|Failed state machine. Its methods
// run on the session loop.
type Gate struct {
	sc     *session.Context
	notify Notifier
	intn   func(n int64) int64
	logger *zap.Logger

	state      types.VerificationState
	settle     time.Duration
	outcome    types.Outcome
	sub        *events.Subscription
	onDecision []func(types.Outcome)
}

type Option func(*Gate)

// WithRand replaces the source of the settle delay. intn returns a value
// in [0, n).
func WithRand(intn func(n int64) int64) Option {
	return func(g *Gate) { g.intn = intn }
}

func NewGate(sc *session.Context, notify Notifier, opts ...Option) *Gate {
	g := &Gate{
		sc:     sc,
		notify: notify,
		intn:   rand.Int64N,
		logger: sc.Logger.Named("gate"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Attach listens for activation gestures.
func (g *Gate) Attach() {
	if g.sub == nil {
		g.sub = g.sc.Bus.Subscribe(events.Activate, func(ev events.Event) { g.Activate(ev.At) })
	}
}

// OnDecision registers f to run on the loop when the gate decides.
func (g *Gate) OnDecision(f func(types.Outcome)) {
	g.onDecision = append(g.onDecision, f)
}

// Activate starts verification. Only the first call from Idle has an
// effect; it reports whether this call started it.
func (g *Gate) Activate(at time.Time) bool {
	if g.state != types.Idle {
		g.logger.Debug("activation ignored", zap.Stringer("state", g.state))
		return false
	}
	g.state = types.Pending
	g.sc.Bus.Unsubscribe(g.sub)

	g.sc.MarkVerificationStart(at)
	marks := g.sc.Marks()
	elapsed := marks.VerificationStart.Sub(marks.PageLoad)
	if signal := TimingSignal(g.sc.Config, elapsed); signal != "" {
		g.sc.Post(signal)
	}

	g.notify.Checking()
	g.settle = g.settleDelay()
	g.logger.Debug("verification pending", zap.Duration("elapsed", elapsed), zap.Duration("settle", g.settle))
	g.sc.After(g.settle, func() { g.decide(elapsed) })
	return true
}

// TimingSignal maps the time from page load to the gesture onto a timing
// signal, or "" when the gesture falls in an ambiguous window.
func TimingSignal(cfg config.ScoringConfig, elapsed time.Duration) string {
	switch {
	case elapsed < cfg.InstantClickBelow:
		return config.SignalInstantClick
	case elapsed > cfg.DeliberateAfter && elapsed < cfg.DeliberateBefore:
		return config.SignalDeliberateClick
	default:
		return ""
	}
}

func (g *Gate) settleDelay() time.Duration {
	lo, hi := g.sc.Config.SettleMin, g.sc.Config.SettleMax
	span := int64((hi - lo) / time.Millisecond)
	if span <= 0 {
		return lo
	}
	return lo + time.Duration(g.intn(span))*time.Millisecond
}

func (g *Gate) decide(elapsed time.Duration) {
	value, _ := g.sc.Score.Seal()
	threshold := g.sc.Config.Threshold

	g.outcome = types.Outcome{
		Score:   value,
		Elapsed: elapsed,
		Settle:  g.settle,
		At:      g.sc.Clock.Now(),
	}
	if value >= threshold {
		g.state = types.Verified
		g.notify.Verified()
		g.sc.After(g.sc.Config.FollowUpDelay, g.notify.RevealFollowUp)
	} else {
		g.state = types.Failed
		g.notify.Failed()
		g.sc.After(g.sc.Config.FollowUpDelay, g.notify.Restart)
	}
	g.outcome.State = g.state

	g.logger.Info("verification decided",
		zap.Stringer("state", g.state),
		zap.Int("score", value),
		zap.Int("threshold", threshold))
	for _, f := range g.onDecision {
		f(g.outcome)
	}
}

func (g *Gate) State() types.VerificationState { return g.state }

// Settle returns the drawn settle delay, zero before activation.
func (g *Gate) Settle() time.Duration { return g.settle }

// Outcome returns the decision once the gate reached a terminal state.
func (g *Gate) Outcome() (types.Outcome, bool) {
	return g.outcome, g.state.Terminal()
}
