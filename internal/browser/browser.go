// Package browser drives a real Chrome through the DevTools protocol and
// exposes it as a fingerprint environment and capability source.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

type Options struct {
	Headless bool
	// URL is loaded before sampling. Empty means about:blank.
	URL string
}

// Browser is one tab in a dedicated Chrome process.
type Browser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// Launch starts Chrome and opens a tab on opts.URL.
func Launch(ctx context.Context, opts Options, logger *zap.Logger) (*Browser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("browser")

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-extensions", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Sugar().Debugf),
		chromedp.WithErrorf(logger.Sugar().Errorf),
	)

	target := opts.URL
	if target == "" {
		target = "about:blank"
	}
	if err := chromedp.Run(tabCtx, chromedp.Navigate(target)); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("opening %s: %w", target, err)
	}
	logger.Info("browser ready", zap.String("url", target), zap.Bool("headless", opts.Headless))
	return &Browser{ctx: tabCtx, cancel: cancel, allocCancel: allocCancel, logger: logger}, nil
}

// Close shuts the tab and the browser process.
func (b *Browser) Close() {
	b.cancel()
	b.allocCancel()
}

// eval runs script in the page and decodes the result into res. The call
// is abandoned when either ctx or the browser is done.
func (b *Browser) eval(ctx context.Context, script string, res any, opts ...chromedp.EvaluateOption) error {
	runCtx, cancel := context.WithCancel(b.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var raw json.RawMessage
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &raw, opts...)); err != nil {
		if errors.Is(err, chromedp.ErrJSNull) || errors.Is(err, chromedp.ErrJSUndefined) {
			raw = json.RawMessage("null")
		} else {
			return fmt.Errorf("evaluating script: %w", err)
		}
	}
	if res == nil {
		return nil
	}
	if err := json.Unmarshal(raw, res); err != nil {
		return fmt.Errorf("decoding script result: %w", err)
	}
	return nil
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// InNavigator implements probe.Capabilities.
func (b *Browser) InNavigator(ctx context.Context, prop string) bool {
	var ok bool
	if err := b.eval(ctx, inScript("navigator", prop), &ok); err != nil {
		b.logger.Debug("navigator probe failed", zap.String("prop", prop), zap.Error(err))
		return false
	}
	return ok
}

// InWindow implements probe.Capabilities.
func (b *Browser) InWindow(ctx context.Context, prop string) bool {
	var ok bool
	if err := b.eval(ctx, inScript("window", prop), &ok); err != nil {
		b.logger.Debug("window probe failed", zap.String("prop", prop), zap.Error(err))
		return false
	}
	return ok
}

// Battery waits for navigator.getBattery to settle.
func (b *Browser) Battery(ctx context.Context) error {
	var ok bool
	if err := b.eval(ctx, batteryScript, &ok, awaitPromise); err != nil {
		return err
	}
	if !ok {
		return errors.New("battery status rejected")
	}
	return nil
}

const batteryScript = `navigator.getBattery().then(() => true, () => false)`

func inScript(object, prop string) string {
	return fmt.Sprintf("(%s in %s)", jsString(prop), object)
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
