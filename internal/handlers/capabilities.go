package handlers

import (
	"context"
	"errors"
	"sync"
)

var errBatteryUnavailable = errors.New("battery status unavailable")

// Capabilities is what the page sensor reports about its environment.
type Capabilities struct {
	Navigator []string `json:"navigator"`
	Window    []string `json:"window"`
}

// reportedCaps answers probe questions from a sensor report. The battery
// request stays pending until the stream delivers a battery message.
type reportedCaps struct {
	navigator map[string]bool
	window    map[string]bool

	once     sync.Once
	resolved chan struct{}
	stopOnce sync.Once
	stopped  chan struct{}
}

func newReportedCaps(c Capabilities) *reportedCaps {
	rc := &reportedCaps{
		navigator: make(map[string]bool, len(c.Navigator)),
		window:    make(map[string]bool, len(c.Window)),
		resolved:  make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	for _, p := range c.Navigator {
		rc.navigator[p] = true
	}
	for _, p := range c.Window {
		rc.window[p] = true
	}
	return rc
}

func (rc *reportedCaps) InNavigator(_ context.Context, prop string) bool { return rc.navigator[prop] }

func (rc *reportedCaps) InWindow(_ context.Context, prop string) bool { return rc.window[prop] }

func (rc *reportedCaps) Battery(ctx context.Context) error {
	select {
	case <-rc.resolved:
		return nil
	case <-rc.stopped:
		return errBatteryUnavailable
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (rc *reportedCaps) resolveBattery() {
	rc.once.Do(func() { close(rc.resolved) })
}

func (rc *reportedCaps) close() {
	rc.stopOnce.Do(func() { close(rc.stopped) })
}
