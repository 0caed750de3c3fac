package challenge

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

type recorder struct {
	calls []string
}

func (r *recorder) Checking()       { r.calls = append(r.calls, "checking") }
func (r *recorder) Verified()       { r.calls = append(r.calls, "verified") }
func (r *recorder) Failed()         { r.calls = append(r.calls, "failed") }
func (r *recorder) Restart()        { r.calls = append(r.calls, "restart") }
func (r *recorder) RevealFollowUp() { r.calls = append(r.calls, "reveal") }

func fixedRand(v int64) Option {
	return WithRand(func(n int64) int64 {
		if v >= n {
			return n - 1
		}
		return v
	})
}

func newGate(t *testing.T, opts ...Option) (*Gate, *session.Context, *clock.Fake, *recorder) {
	t.Helper()
	clk := clock.NewFake(epoch)
	sc := session.New("gate", config.DefaultScoring(), clk, nil)
	sc.Run(func() { sc.MarkPageLoad(clk.Now()) })
	rec := &recorder{}
	g := NewGate(sc, rec, opts...)
	sc.Run(g.Attach)
	t.Cleanup(sc.Close)
	return g, sc, clk, rec
}

func activate(sc *session.Context, clk *clock.Fake) {
	sc.Run(func() { sc.Bus.Dispatch(events.Event{Kind: events.Activate, At: clk.Now()}) })
}

func TestTimingSignal(t *testing.T) {
	cfg := config.DefaultScoring()
	tests := []struct {
		ms   int
		want int
	}{
		{400, -50},
		{700, 0},
		{5000, 20},
		{45000, 0},
		{499, -50},
		{500, 0},
		{999, 0},
		{1000, 0},
		{1001, 20},
		{29999, 20},
		{30000, 0},
	}
	for _, tt := range tests {
		got := cfg.Weight(TimingSignal(cfg, time.Duration(tt.ms)*time.Millisecond))
		assert.Equal(t, tt.want, got, "elapsed %dms", tt.ms)
	}
}

func TestGateDoesNotReadBeforeSettleDelay(t *testing.T) {
	for _, drawn := range []int64{0, 1, 1234, 1999} {
		g, sc, clk, _ := newGate(t, fixedRand(drawn))
		clk.Advance(5 * time.Second)
		activate(sc, clk)

		d := time.Duration(2000+drawn) * time.Millisecond
		require.Equal(t, d, g.Settle())
		assert.GreaterOrEqual(t, g.Settle(), 2*time.Second)
		assert.Less(t, g.Settle(), 4*time.Second)

		clk.Advance(d - time.Millisecond)
		assert.False(t, sc.Score.Sealed(), "score read before the settle delay (%s)", d)
		assert.Equal(t, types.Pending, g.State())

		clk.Advance(time.Millisecond)
		assert.True(t, sc.Score.Sealed())
		assert.True(t, g.State().Terminal())
	}
}

func TestGateTotality(t *testing.T) {
	for _, pre := range []int{-100, 0, 59, 79, 80, 81, 500} {
		g, sc, clk, rec := newGate(t, fixedRand(0))
		sc.Run(func() { sc.Score.Adjust("test", pre) })
		clk.Advance(5 * time.Second)
		activate(sc, clk)
		clk.Advance(2 * time.Second)

		out, done := g.Outcome()
		require.True(t, done)
		// 5s gesture adds +20.
		total := pre + 20
		assert.Equal(t, total, out.Score)
		if total >= 100 {
			assert.Equal(t, types.Verified, out.State)
			assert.Equal(t, []string{"checking", "verified"}, rec.calls)
		} else {
			assert.Equal(t, types.Failed, out.State)
			assert.Equal(t, []string{"checking", "failed"}, rec.calls)
		}
	}
}

func TestGateFollowUp(t *testing.T) {
	t.Run("verified reveals follow-up after a second", func(t *testing.T) {
		_, sc, clk, rec := newGate(t, fixedRand(0))
		sc.Run(func() { sc.Score.Adjust("test", 80) })
		clk.Advance(5 * time.Second)
		activate(sc, clk)
		clk.Advance(2 * time.Second)
		clk.Advance(999 * time.Millisecond)
		assert.Equal(t, []string{"checking", "verified"}, rec.calls)
		clk.Advance(time.Millisecond)
		assert.Equal(t, []string{"checking", "verified", "reveal"}, rec.calls)
	})

	t.Run("failed restarts after a second", func(t *testing.T) {
		_, sc, clk, rec := newGate(t, fixedRand(0))
		activate(sc, clk)
		clk.Advance(3 * time.Second)
		assert.Equal(t, []string{"checking", "failed", "restart"}, rec.calls)
		v, _ := sc.Score.Seal()
		assert.Equal(t, -50, v, "instant click")
	})
}

func TestGateFirstTriggerWins(t *testing.T) {
	g, sc, clk, rec := newGate(t, fixedRand(0))
	clk.Advance(5 * time.Second)
	activate(sc, clk)
	clk.Advance(time.Second)
	activate(sc, clk)
	sc.Run(func() { assert.False(t, g.Activate(clk.Now())) })

	assert.Equal(t, 20, sc.Score.Total(config.SignalDeliberateClick))
	assert.Equal(t, 1, sc.Score.Count(config.SignalDeliberateClick))
	assert.Equal(t, epoch.Add(5*time.Second), sc.Marks().VerificationStart)

	clk.Advance(10 * time.Second)
	assert.Equal(t, []string{"checking", "failed", "restart"}, rec.calls)
	sc.Run(func() { assert.False(t, g.Activate(clk.Now())) })
}

func TestGateOnDecision(t *testing.T) {
	g, sc, clk, _ := newGate(t, fixedRand(500))
	var got []types.Outcome
	sc.Run(func() { g.OnDecision(func(o types.Outcome) { got = append(got, o) }) })

	clk.Advance(700 * time.Millisecond)
	activate(sc, clk)
	clk.Advance(4 * time.Second)

	require.Len(t, got, 1)
	assert.Equal(t, types.Failed, got[0].State)
	assert.Equal(t, 700*time.Millisecond, got[0].Elapsed)
	assert.Equal(t, 2500*time.Millisecond, got[0].Settle)
	assert.Equal(t, epoch.Add(3200*time.Millisecond), got[0].At)
	assert.Equal(t, 0, got[0].Score)
}
