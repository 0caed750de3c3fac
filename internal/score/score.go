// Package score holds the session trust score.
package score

import (
	"go.uber.org/zap"
)

// Delta is one adjustment posted to the accumulator.
type Delta struct {
	Source string
	Value  int
}

// Accumulator owns the trust score of one session. It has no lock; the
// session loop serializes every call.
//
// The score is read once, by Seal. Adjustments that arrive after the seal
// are kept as out-of-band telemetry and never change the sealed value.
type Accumulator struct {
	value   int
	sealed  bool
	history []Delta
	late    []Delta
	logger  *zap.Logger
}

func NewAccumulator(logger *zap.Logger) *Accumulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Accumulator{logger: logger}
}

// Adjust adds delta to the score on behalf of source.
func (a *Accumulator) Adjust(source string, delta int) {
	d := Delta{Source: source, Value: delta}
	if a.sealed {
		a.late = append(a.late, d)
		a.logger.Info("late signal ignored", zap.String("source", source), zap.Int("delta", delta))
		return
	}
	a.value += delta
	a.history = append(a.history, d)
	a.logger.Debug("score adjusted", zap.String("source", source), zap.Int("delta", delta))
}

// Seal returns the score and freezes it. It reports false if the score was
// already sealed, in which case the first sealed value is returned.
func (a *Accumulator) Seal() (int, bool) {
	if a.sealed {
		return a.value, false
	}
	a.sealed = true
	return a.value, true
}

func (a *Accumulator) Sealed() bool { return a.sealed }

// History returns the counted adjustments in arrival order.
func (a *Accumulator) History() []Delta {
	return append([]Delta(nil), a.history...)
}

// Late returns adjustments that arrived after the seal.
func (a *Accumulator) Late() []Delta {
	return append([]Delta(nil), a.late...)
}

// Total sums the counted adjustments for source.
func (a *Accumulator) Total(source string) int {
	sum := 0
	for _, d := range a.history {
		if d.Source == source {
			sum += d.Value
		}
	}
	return sum
}

// Count returns how many counted adjustments came from source.
func (a *Accumulator) Count(source string) int {
	n := 0
	for _, d := range a.history {
		if d.Source == source {
			n++
		}
	}
	return n
}
