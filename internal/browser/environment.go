package browser

import (
	"context"

	"checkpoint/internal/fingerprint"
	"checkpoint/internal/probe"
	"checkpoint/internal/types"
)

const navigatorScript = `(() => ({
	userAgent: navigator.userAgent,
	language: navigator.language,
	languages: Array.from(navigator.languages || []),
	platform: navigator.platform,
	hardwareConcurrency: navigator.hardwareConcurrency || 0,
	deviceMemory: navigator.deviceMemory || 0,
	webdriver: navigator.webdriver === true,
	plugins: Array.from(navigator.plugins || []).map(p => p.name),
}))()`

type navigatorResult struct {
	UserAgent           string   `json:"userAgent"`
	Language            string   `json:"language"`
	Languages           []string `json:"languages"`
	Platform            string   `json:"platform"`
	HardwareConcurrency int      `json:"hardwareConcurrency"`
	DeviceMemory        float64  `json:"deviceMemory"`
	Webdriver           bool     `json:"webdriver"`
	Plugins             []string `json:"plugins"`
}

func (b *Browser) Navigator(ctx context.Context) (fingerprint.Navigator, error) {
	var r navigatorResult
	if err := b.eval(ctx, navigatorScript, &r); err != nil {
		return fingerprint.Navigator{}, err
	}
	return fingerprint.Navigator(r), nil
}

const screenScript = `(() => ({
	width: screen.width,
	height: screen.height,
	colorDepth: screen.colorDepth,
	pixelRatio: window.devicePixelRatio || 1,
}))()`

func (b *Browser) Screen(ctx context.Context) (types.Screen, float64, error) {
	var r struct {
		types.Screen
		PixelRatio float64 `json:"pixelRatio"`
	}
	if err := b.eval(ctx, screenScript, &r); err != nil {
		return types.Screen{}, 0, err
	}
	return r.Screen, r.PixelRatio, nil
}

const timezoneScript = `(() => ({
	name: Intl.DateTimeFormat().resolvedOptions().timeZone || "",
	offset: new Date().getTimezoneOffset(),
}))()`

func (b *Browser) Timezone(ctx context.Context) (string, int, error) {
	var r struct {
		Name   string `json:"name"`
		Offset int    `json:"offset"`
	}
	if err := b.eval(ctx, timezoneScript, &r); err != nil {
		return "", 0, err
	}
	return r.Name, r.Offset, nil
}

func (b *Browser) HasDocumentAttribute(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := b.eval(ctx, "!!document.documentElement.getAttribute("+jsString(name)+")", &ok)
	return ok, err
}

var (
	_ fingerprint.Environment = (*Browser)(nil)
	_ probe.Capabilities      = (*Browser)(nil)
)
