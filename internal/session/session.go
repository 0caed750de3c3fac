// Package session holds the per-page session context shared by every
// scoring component.
//
// All handlers of a session run through Run, one at a time, to completion.
// Timers created with After and Every deliver through Run as well and are
// stopped by Close.
package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"checkpoint/internal/clock"
	"checkpoint/internal/config"
	"checkpoint/internal/events"
	"checkpoint/internal/score"
	"checkpoint/internal/types"
)

type Context struct {
	ID     string
	Config config.ScoringConfig
	Clock  clock.Clock
	Score  *score.Accumulator
	Bus    *events.Bus
	Logger *zap.Logger

	marks types.TimingMarks

	mu sync.Mutex // the loop

	tmu      sync.Mutex
	closed   bool
	timers   map[*timer]struct{}
	cleanups []func()
}

func New(id string, cfg config.ScoringConfig, clk clock.Clock, logger *zap.Logger) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.Real()
	}
	logger = logger.With(zap.String("session", id))
	return &Context{
		ID:     id,
		Config: cfg,
		Clock:  clk,
		Score:  score.NewAccumulator(logger.Named("score")),
		Bus:    events.NewBus(),
		Logger: logger,
		timers: make(map[*timer]struct{}),
	}
}

// Run executes f on the session loop. It returns false without running f
// once the session is closed.
func (c *Context) Run(f func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Closed() {
		return false
	}
	f()
	return true
}

// Post adds the configured weight of signal to the score. Loop only.
func (c *Context) Post(signal string) {
	c.Score.Adjust(signal, c.Config.Weight(signal))
}

// Marks returns the timing marks. Loop only.
func (c *Context) Marks() types.TimingMarks { return c.marks }

// MarkPageLoad sets the page load time if unset. Loop only.
func (c *Context) MarkPageLoad(t time.Time) {
	if c.marks.PageLoad.IsZero() {
		c.marks.PageLoad = t
	}
}

// MarkFirstInteraction sets the first interaction time if unset. Loop only.
func (c *Context) MarkFirstInteraction(t time.Time) {
	if c.marks.FirstInteraction.IsZero() {
		c.marks.FirstInteraction = t
	}
}

// MarkVerificationStart sets the verification start time if unset. Loop only.
func (c *Context) MarkVerificationStart(t time.Time) {
	if c.marks.VerificationStart.IsZero() {
		c.marks.VerificationStart = t
	}
}

// After runs f on the loop once d has elapsed.
func (c *Context) After(d time.Duration, f func()) clock.Timer {
	return c.schedule(d, false, f)
}

// Every runs f on the loop every d until stopped or the session closes.
func (c *Context) Every(d time.Duration, f func()) clock.Timer {
	return c.schedule(d, true, f)
}

func (c *Context) schedule(d time.Duration, repeat bool, f func()) clock.Timer {
	c.tmu.Lock()
	defer c.tmu.Unlock()
	t := &timer{ctx: c}
	if c.closed {
		return t
	}
	fire := func() {
		if !repeat {
			c.forget(t)
		}
		c.Run(f)
	}
	if repeat {
		t.inner = c.Clock.Every(d, fire)
	} else {
		t.inner = c.Clock.AfterFunc(d, fire)
	}
	c.timers[t] = struct{}{}
	return t
}

func (c *Context) forget(t *timer) {
	c.tmu.Lock()
	delete(c.timers, t)
	c.tmu.Unlock()
}

// OnClose registers f to run when the session closes, in reverse order of
// registration. On a closed session f runs immediately.
func (c *Context) OnClose(f func()) {
	c.tmu.Lock()
	if !c.closed {
		c.cleanups = append(c.cleanups, f)
		c.tmu.Unlock()
		return
	}
	c.tmu.Unlock()
	f()
}

// Timers returns the number of live timers.
func (c *Context) Timers() int {
	c.tmu.Lock()
	defer c.tmu.Unlock()
	return len(c.timers)
}

func (c *Context) Closed() bool {
	c.tmu.Lock()
	defer c.tmu.Unlock()
	return c.closed
}

// Close stops every timer, drops every listener and rejects further work.
// It waits for a running handler and must not be called from one.
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tmu.Lock()
	if c.closed {
		c.tmu.Unlock()
		return
	}
	c.closed = true
	timers := c.timers
	c.timers = make(map[*timer]struct{})
	cleanups := c.cleanups
	c.cleanups = nil
	c.tmu.Unlock()

	for t := range timers {
		t.inner.Stop()
	}
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	c.Bus.Reset()
	c.Logger.Debug("session closed")
}

type timer struct {
	ctx   *Context
	inner clock.Timer
}

func (t *timer) Stop() bool {
	if t.inner == nil {
		return false
	}
	t.ctx.forget(t)
	return t.inner.Stop()
}
