package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestAccumulatorAdjust(t *testing.T) {
	a := NewAccumulator(nil)
	a.Adjust("valid_fingerprint", 30)
	a.Adjust("instant_click", -50)
	a.Adjust("keystroke", 2)
	a.Adjust("keystroke", 2)

	assert.Equal(t, 2, a.Count("keystroke"))
	assert.Equal(t, 4, a.Total("keystroke"))
	assert.Len(t, a.History(), 4)

	v, first := a.Seal()
	assert.True(t, first)
	assert.Equal(t, -16, v, "no clamp, may go negative")
}

func TestAccumulatorSealIgnoresLateSignals(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	a := NewAccumulator(zap.New(core))
	a.Adjust("permissions_api", 10)

	v, first := a.Seal()
	assert.True(t, first)
	assert.Equal(t, 10, v)

	a.Adjust("battery_api", 10)
	v, first = a.Seal()
	assert.False(t, first)
	assert.Equal(t, 10, v)
	assert.Equal(t, []Delta{{Source: "battery_api", Value: 10}}, a.Late())
	assert.Equal(t, 0, a.Total("battery_api"))
	assert.Equal(t, 1, logs.FilterMessage("late signal ignored").Len())
}
