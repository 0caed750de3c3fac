package behavior

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkpoint/internal/clock"
	"checkpoint/internal/config"
	"checkpoint/internal/events"
	"checkpoint/internal/session"
	"checkpoint/internal/types"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newMonitor(t *testing.T) (*Monitor, *session.Context, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(epoch)
	sc := session.New("test", config.DefaultScoring(), clk, nil)
	m := NewMonitor(sc)
	sc.Run(m.Attach)
	t.Cleanup(sc.Close)
	return m, sc, clk
}

func move(sc *session.Context, clk *clock.Fake, x, y float64) {
	sc.Run(func() {
		sc.Bus.Dispatch(events.Event{Kind: events.PointerMove, X: x, Y: y, At: clk.Now()})
	})
}

func TestWindowCapacity(t *testing.T) {
	m, sc, clk := newMonitor(t)

	for i := 0; i < 1000; i++ {
		move(sc, clk, float64(i), float64(i*2))
		clk.Advance(time.Millisecond)
	}

	samples := m.Samples()
	require.Len(t, samples, 50)
	for i, s := range samples {
		assert.Equal(t, float64(950+i), s.X, "window keeps the 50 most recent samples in order")
	}
	assert.Equal(t, epoch, sc.Marks().FirstInteraction)
}

func TestWindowLast(t *testing.T) {
	w := NewWindow(3)
	assert.Empty(t, w.Last(3))
	for i := 1; i <= 5; i++ {
		w.Push(types.PointerSample{X: float64(i)})
	}
	assert.Equal(t, 3, w.Len())
	assert.Equal(t, 3, w.Cap())
	last := w.Last(2)
	require.Len(t, last, 2)
	assert.Equal(t, 4.0, last[0].X)
	assert.Equal(t, 5.0, last[1].X)
	assert.Len(t, w.Last(10), 3)
}

func TestNaturalMovementBonusOnce(t *testing.T) {
	m, sc, clk := newMonitor(t)

	for i := 0; i < 5; i++ {
		move(sc, clk, float64(i), 0)
	}
	assert.Equal(t, 0, sc.Score.Total(config.SignalNaturalMovement), "five moves do not exceed the threshold")

	for i := 5; i < 200; i++ {
		move(sc, clk, float64(i), 0)
	}
	assert.Equal(t, 15, sc.Score.Total(config.SignalNaturalMovement))
	assert.Equal(t, 1, sc.Score.Count(config.SignalNaturalMovement))
	assert.Equal(t, 6, m.Moves())
}

// The one-shot counter must be removed through the handle it was
// registered with. A removal through any other reference leaves it
// attached and the bonus would fire on every later move.
func TestNaturalMovementCounterDeregistersByHandle(t *testing.T) {
	_, sc, clk := newMonitor(t)
	require.Equal(t, 2, sc.Bus.Len(events.PointerMove))

	for i := 0; i < 6; i++ {
		move(sc, clk, float64(i), 0)
	}
	assert.Equal(t, 1, sc.Bus.Len(events.PointerMove), "only the sampler remains")

	for i := 0; i < 50; i++ {
		move(sc, clk, float64(i), 0)
	}
	assert.Equal(t, 1, sc.Score.Count(config.SignalNaturalMovement))
}

func TestKeystrokesScoreEveryKey(t *testing.T) {
	m, sc, clk := newMonitor(t)
	for _, k := range []string{"h", "e", "l", "l", "o"} {
		sc.Run(func() {
			sc.Bus.Dispatch(events.Event{Kind: events.KeyDown, Key: k, At: clk.Now()})
		})
	}
	assert.Equal(t, 10, sc.Score.Total(config.SignalKeystroke))
	keys := m.Keys()
	require.Len(t, keys, 5)
	assert.Equal(t, "h", keys[0].Key)
	assert.True(t, sc.Marks().FirstInteraction.IsZero(), "keys do not mark the first interaction")
}

func TestKinematicCheckRepeatsEveryTick(t *testing.T) {
	_, sc, clk := newMonitor(t)

	// Accelerating path: displacements 1 then 5.
	move(sc, clk, 0, 0)
	move(sc, clk, 1, 0)
	move(sc, clk, 6, 0)

	clk.Advance(time.Second)
	assert.Equal(t, 1, sc.Score.Count(config.SignalAcceleration))

	// No new samples: the same three samples are judged again on every tick.
	clk.Advance(4 * time.Second)
	assert.Equal(t, 5, sc.Score.Count(config.SignalAcceleration))
	assert.Equal(t, 25, sc.Score.Total(config.SignalAcceleration))
}

func TestKinematicCheckIgnoresLinearMotion(t *testing.T) {
	_, sc, clk := newMonitor(t)

	clk.Advance(time.Second)
	assert.Equal(t, 0, sc.Score.Count(config.SignalAcceleration), "needs three samples")

	move(sc, clk, 0, 0)
	move(sc, clk, 10, 10)
	move(sc, clk, 20, 20)
	clk.Advance(3 * time.Second)
	assert.Equal(t, 0, sc.Score.Count(config.SignalAcceleration))
}

func TestNatural(t *testing.T) {
	p := func(x, y float64) types.PointerSample { return types.PointerSample{X: x, Y: y} }
	assert.False(t, Natural(p(0, 0), p(5, 5), p(10, 10), 1))
	assert.False(t, Natural(p(0, 0), p(5, 5), p(11, 11), 1), "a change of exactly 1 is not enough")
	assert.True(t, Natural(p(0, 0), p(5, 5), p(12, 10), 1))
	assert.True(t, Natural(p(0, 0), p(5, 5), p(10, 3), 1))
}

func TestDetachStopsTicker(t *testing.T) {
	m, sc, clk := newMonitor(t)
	move(sc, clk, 0, 0)
	move(sc, clk, 1, 0)
	move(sc, clk, 6, 0)

	sc.Run(m.Detach)
	sc.Run(m.Detach)
	clk.Advance(5 * time.Second)
	assert.Equal(t, 0, sc.Score.Count(config.SignalAcceleration))
	assert.Equal(t, 0, sc.Bus.Len(events.PointerMove))
	assert.Equal(t, 0, sc.Bus.Len(events.KeyDown))
}
