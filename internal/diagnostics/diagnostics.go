// Package diagnostics holds fingerprint checks that only log. None of
// them changes the score.
package diagnostics

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"checkpoint/internal/engine"
	"checkpoint/internal/probe"
	"checkpoint/internal/types"
)

// AutomationGlobals are window properties injected by automation drivers.
var AutomationGlobals = []string{
	"callPhantom",
	"_phantom",
	"phantom",
	"__nightmare",
	"domAutomation",
	"domAutomationController",
	"seleniumevaluate",
	"CefSharp",
}

// VMRenderers are renderer substrings of virtualised GPUs.
var VMRenderers = []string{"VMware", "VirtualBox"}

// AutomationIndicators lists the automation markers present in the page.
func AutomationIndicators(ctx context.Context, caps probe.Capabilities, fp types.Fingerprint) []string {
	var found []string
	if fp.Webdriver || caps.InNavigator(ctx, "webdriver") {
		found = append(found, "navigator.webdriver")
	}
	if fp.WebdriverAttribute {
		found = append(found, "document.webdriver")
	}
	for _, g := range AutomationGlobals {
		if caps.InWindow(ctx, g) {
			found = append(found, g)
		}
	}
	return found
}

// VirtualMachine returns the matching renderer marker, if any.
func VirtualMachine(fp types.Fingerprint) (string, bool) {
	if fp.WebGL == nil {
		return "", false
	}
	for _, m := range VMRenderers {
		if strings.Contains(fp.WebGL.Renderer, m) {
			return m, true
		}
	}
	return "", false
}

// Automation logs automation markers found in the page.
func Automation(caps probe.Capabilities, logger *zap.Logger) engine.Hook {
	logger = named(logger, "diagnostics")
	return func(ctx context.Context, fp types.Fingerprint) {
		if found := AutomationIndicators(ctx, caps, fp); len(found) > 0 {
			logger.Info("automation detected", zap.Strings("indicators", found))
		}
	}
}

// VM logs a virtualised GPU renderer.
func VM(logger *zap.Logger) engine.Hook {
	logger = named(logger, "diagnostics")
	return func(_ context.Context, fp types.Fingerprint) {
		if marker, ok := VirtualMachine(fp); ok {
			logger.Info("virtual machine detected",
				zap.String("marker", marker),
				zap.String("renderer", fp.WebGL.Renderer))
		}
	}
}

func named(logger *zap.Logger, name string) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger.Named(name)
}
