// Package behavior scores pointer and keyboard activity.
package behavior

import (
	"math"

	"go.uber.org/zap"

	"checkpoint/internal/clock"
	"checkpoint/internal/config"
	"checkpoint/internal/events"
	"checkpoint/internal/session"
	"checkpoint/internal/types"
)

// Monitor keeps the rolling pointer window and the keystroke log of one
// session. Its methods run on the session loop.
type Monitor struct {
	sc     *session.Context
	window *Window
	keys   []types.KeySample
	moves  int
	logger *zap.Logger

	sampler *events.Subscription
	counter *events.Subscription
	keydown *events.Subscription
	ticker  clock.Timer
}

func NewMonitor(sc *session.Context) *Monitor {
	return &Monitor{
		sc:     sc,
		window: NewWindow(sc.Config.PointerWindow),
		logger: sc.Logger.Named("behavior"),
	}
}

// Attach subscribes the listeners and starts the kinematic ticker.
func (m *Monitor) Attach() {
	if m.sampler != nil {
		return
	}
	m.sampler = m.sc.Bus.Subscribe(events.PointerMove, m.onPointerMove)
	m.counter = m.sc.Bus.Subscribe(events.PointerMove, m.countMove)
	m.keydown = m.sc.Bus.Subscribe(events.KeyDown, m.onKeyDown)
	m.ticker = m.sc.Every(m.sc.Config.KinematicInterval, m.checkKinematics)
}

// Detach removes every listener and stops the ticker. Safe to repeat.
func (m *Monitor) Detach() {
	m.sc.Bus.Unsubscribe(m.sampler)
	m.sc.Bus.Unsubscribe(m.counter)
	m.sc.Bus.Unsubscribe(m.keydown)
	if m.ticker != nil {
		m.ticker.Stop()
	}
}

func (m *Monitor) onPointerMove(ev events.Event) {
	m.sc.MarkFirstInteraction(ev.At)
	m.window.Push(types.PointerSample{X: ev.X, Y: ev.Y, At: ev.At})
}

// countMove awards the movement bonus once, then removes itself through
// the handle it was registered with.
func (m *Monitor) countMove(events.Event) {
	m.moves++
	if m.moves <= m.sc.Config.MovementThreshold {
		return
	}
	m.sc.Post(config.SignalNaturalMovement)
	m.logger.Debug("natural movement observed", zap.Int("moves", m.moves))
	m.sc.Bus.Unsubscribe(m.counter)
}

func (m *Monitor) onKeyDown(ev events.Event) {
	m.keys = append(m.keys, types.KeySample{Key: ev.Key, At: ev.At})
	m.sc.Post(config.SignalKeystroke)
}

func (m *Monitor) checkKinematics() {
	if m.window.Len() < 3 {
		return
	}
	recent := m.window.Last(3)
	if Natural(recent[0], recent[1], recent[2], m.sc.Config.KinematicTolerance) {
		m.sc.Post(config.SignalAcceleration)
	}
}

// Natural reports whether the displacement between a→b and b→c changes by
// more than tolerance on either axis. Constant-velocity paths are not
// natural.
func Natural(a, b, c types.PointerSample, tolerance float64) bool {
	dx1, dy1 := b.X-a.X, b.Y-a.Y
	dx2, dy2 := c.X-b.X, c.Y-b.Y
	return math.Abs(dx1-dx2) > tolerance || math.Abs(dy1-dy2) > tolerance
}

// Moves returns how many pointer moves the counter has seen.
func (m *Monitor) Moves() int { return m.moves }

// Samples returns the pointer window, oldest first.
func (m *Monitor) Samples() []types.PointerSample { return m.window.Samples() }

// Keys returns the keystroke log.
func (m *Monitor) Keys() []types.KeySample {
	return append([]types.KeySample(nil), m.keys...)
}
