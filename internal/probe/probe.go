// Package probe checks optional browser capabilities as weak signs of a
// real browser.
package probe

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"checkpoint/internal/config"
	"checkpoint/internal/session"
)

// Capabilities answers presence questions about the page environment.
type Capabilities interface {
	// InNavigator reports whether prop exists on the navigator object.
	InNavigator(ctx context.Context, prop string) bool
	// InWindow reports whether prop exists on the global object.
	InWindow(ctx context.Context, prop string) bool
	// Battery blocks until the battery status request settles. It returns
	// nil when the request was fulfilled.
	Battery(ctx context.Context) error
}

// BrowserMarkers are globals defined by mainstream browsers.
var BrowserMarkers = []string{"chrome", "safari", "opr"}

type check struct {
	signal string
	window bool
	prop   string
}

var checks = []check{
	{signal: config.SignalPermissionsAPI, prop: "permissions"},
	{signal: config.SignalConnectionAPI, prop: "connection"},
	{signal: config.SignalMediaDevices, prop: "mediaDevices"},
	{signal: config.SignalNotificationAPI, window: true, prop: "Notification"},
}

// Report lists what the probe found.
type Report struct {
	Signals        []string
	BrowserMarker  string
	BatteryPending bool
}

type Probe struct {
	sc     *session.Context
	caps   Capabilities
	logger *zap.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func New(sc *session.Context, caps Capabilities) *Probe {
	return &Probe{sc: sc, caps: caps, logger: sc.Logger.Named("probe")}
}

// Run performs the synchronous checks, posts their deltas on the session
// loop and starts the battery request in the background. The battery delta
// counts only if it lands before the score is sealed. Run must not be
// called from the session loop.
func (p *Probe) Run(ctx context.Context) Report {
	var r Report
	for _, marker := range BrowserMarkers {
		if p.caps.InWindow(ctx, marker) {
			r.BrowserMarker = marker
			r.Signals = append(r.Signals, config.SignalBrowserChrome)
			break
		}
	}
	if r.BrowserMarker == "" {
		p.logger.Info("no browser marker present, possibly headless")
	}
	for _, c := range checks {
		var present bool
		if c.window {
			present = p.caps.InWindow(ctx, c.prop)
		} else {
			present = p.caps.InNavigator(ctx, c.prop)
		}
		if present {
			r.Signals = append(r.Signals, c.signal)
		}
	}

	p.sc.Run(func() {
		for _, s := range r.Signals {
			p.sc.Post(s)
		}
	})

	if p.caps.InNavigator(ctx, "getBattery") {
		r.BatteryPending = true
		p.startBattery(ctx)
	}
	p.logger.Debug("capabilities probed", zap.Strings("signals", r.Signals), zap.Bool("battery", r.BatteryPending))
	return r
}

func (p *Probe) startBattery(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.sc.OnClose(cancel)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.caps.Battery(ctx); err != nil {
			p.logger.Debug("battery request failed", zap.Error(err))
			return
		}
		if !p.sc.Run(func() { p.sc.Post(config.SignalBatteryAPI) }) {
			p.logger.Debug("battery resolved after session close")
		}
	}()
}

// Wait blocks until the battery request, if any, has settled.
func (p *Probe) Wait() {
	p.wg.Wait()
}

// Stop abandons a pending battery request.
func (p *Probe) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
}
