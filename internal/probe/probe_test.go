package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"checkpoint/internal/clock"
	"checkpoint/internal/config"
	"checkpoint/internal/session"
)

type fakeCaps struct {
	navigator map[string]bool
	window    map[string]bool
	battery   chan error
}

func (f *fakeCaps) InNavigator(_ context.Context, prop string) bool { return f.navigator[prop] }
func (f *fakeCaps) InWindow(_ context.Context, prop string) bool    { return f.window[prop] }

func (f *fakeCaps) Battery(ctx context.Context) error {
	select {
	case err := <-f.battery:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func fullCaps() *fakeCaps {
	return &fakeCaps{
		navigator: map[string]bool{"permissions": true, "connection": true, "mediaDevices": true, "getBattery": true},
		window:    map[string]bool{"chrome": true, "Notification": true},
		battery:   make(chan error, 1),
	}
}

func newSession() *session.Context {
	return session.New("probe", config.DefaultScoring(), clock.NewFake(time.Unix(0, 0)), nil)
}

func TestProbeAllCapabilities(t *testing.T) {
	sc := newSession()
	defer sc.Close()
	caps := fullCaps()
	p := New(sc, caps)

	r := p.Run(context.Background())
	assert.Equal(t, "chrome", r.BrowserMarker)
	assert.True(t, r.BatteryPending)
	assert.ElementsMatch(t, []string{
		config.SignalBrowserChrome, config.SignalPermissionsAPI, config.SignalConnectionAPI,
		config.SignalMediaDevices, config.SignalNotificationAPI,
	}, r.Signals)

	caps.battery <- nil
	p.Wait()

	v, _ := sc.Score.Seal()
	assert.Equal(t, 10+10+5+5+5+10, v)
}

func TestProbeMissingCapabilities(t *testing.T) {
	sc := newSession()
	defer sc.Close()
	p := New(sc, &fakeCaps{})

	r := p.Run(context.Background())
	assert.Empty(t, r.Signals)
	assert.Empty(t, r.BrowserMarker)
	assert.False(t, r.BatteryPending)
	p.Wait()

	v, _ := sc.Score.Seal()
	assert.Equal(t, 0, v)
}

func TestProbeBrowserMarkerCountsOnce(t *testing.T) {
	sc := newSession()
	defer sc.Close()
	p := New(sc, &fakeCaps{window: map[string]bool{"safari": true, "opr": true}})
	r := p.Run(context.Background())
	assert.Equal(t, "safari", r.BrowserMarker)
	assert.Equal(t, 10, sc.Score.Total(config.SignalBrowserChrome))
}

func TestProbeBatteryRejected(t *testing.T) {
	sc := newSession()
	defer sc.Close()
	caps := fullCaps()
	p := New(sc, caps)
	p.Run(context.Background())

	caps.battery <- errors.New("denied")
	p.Wait()
	assert.Equal(t, 0, sc.Score.Total(config.SignalBatteryAPI))
}

func TestProbeBatteryAfterSealIsLate(t *testing.T) {
	sc := newSession()
	defer sc.Close()
	caps := fullCaps()
	p := New(sc, caps)
	p.Run(context.Background())

	var sealed int
	sc.Run(func() { sealed, _ = sc.Score.Seal() })

	caps.battery <- nil
	p.Wait()
	assert.Equal(t, 35, sealed)
	assert.Len(t, sc.Score.Late(), 1)
	assert.Equal(t, config.SignalBatteryAPI, sc.Score.Late()[0].Source)
}

func TestProbeCloseCancelsBattery(t *testing.T) {
	sc := newSession()
	caps := fullCaps()
	p := New(sc, caps)
	p.Run(context.Background())

	sc.Close()
	p.Wait()
	assert.Equal(t, 0, sc.Score.Total(config.SignalBatteryAPI))
}
