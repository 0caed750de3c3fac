package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"go.uber.org/zap"

	"checkpoint/internal/types"
)

const (
	canvasWidth  = 200
	canvasHeight = 50

	fontProbe = "mmmmmmmmmmlli"
	fontSize  = "72px"
)

// CandidateFonts is probed in this order; detected fonts keep it.
var CandidateFonts = []string{
	"Arial", "Verdana", "Times New Roman", "Courier New", "Georgia",
	"Palatino", "Garamond", "Comic Sans MS", "Trebuchet MS",
}

var baseFonts = []string{"monospace", "sans-serif", "serif"}

var audioChain = []Node{
	{Kind: Oscillator},
	{Kind: Analyser},
	{Kind: ScriptProcessor, BufferSize: 4096, Inputs: 1, Outputs: 1},
	{Kind: Gain, Gain: 0},
}

// Collector samples an Environment into a Fingerprint.
type Collector struct {
	env    Environment
	logger *zap.Logger
}

func NewCollector(env Environment, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{env: env, logger: logger.Named("collector")}
}

// Collect never fails. Attributes that cannot be read keep their zero
// value; the canvas, WebGL and audio probes fall back to nil.
func (c *Collector) Collect(ctx context.Context) types.Fingerprint {
	var fp types.Fingerprint

	if nav, err := c.env.Navigator(ctx); err != nil {
		c.logger.Warn("navigator unavailable", zap.Error(err))
	} else {
		fp.UserAgent = nav.UserAgent
		fp.Language = nav.Language
		fp.Languages = nav.Languages
		fp.Platform = nav.Platform
		fp.HardwareConcurrency = nav.HardwareConcurrency
		fp.DeviceMemory = nav.DeviceMemory
		fp.Plugins = nav.Plugins
		fp.Webdriver = nav.Webdriver
	}
	if screen, ratio, err := c.env.Screen(ctx); err != nil {
		c.logger.Warn("screen unavailable", zap.Error(err))
	} else {
		fp.Screen = screen
		fp.PixelRatio = ratio
	}
	if tz, offset, err := c.env.Timezone(ctx); err != nil {
		c.logger.Warn("timezone unavailable", zap.Error(err))
	} else {
		fp.Timezone = tz
		fp.TimezoneOffset = offset
	}
	if attr, err := c.env.HasDocumentAttribute(ctx, "webdriver"); err != nil {
		c.logger.Warn("document attribute check failed", zap.Error(err))
	} else {
		fp.WebdriverAttribute = attr
	}

	fp.Canvas = c.canvasHash(ctx)
	fp.WebGL = c.webGL(ctx)
	fp.Fonts = c.detectFonts(ctx)
	fp.Audio = c.audio(ctx)
	return fp
}

func (c *Collector) canvasHash(ctx context.Context) *string {
	cv, err := c.env.Canvas(ctx, canvasWidth, canvasHeight)
	if err != nil || cv == nil {
		c.logger.Debug("canvas unavailable", zap.Error(err))
		return nil
	}
	cv.SetTextBaseline("top")
	cv.SetFont("14px Arial")
	cv.SetTextBaseline("alphabetic")
	cv.SetFillStyle("#f60")
	cv.FillRect(125, 1, 62, 20)
	cv.SetFillStyle("#069")
	cv.FillText("Checkpoint Security", 2, 15)
	cv.SetFillStyle("rgba(102, 204, 0, 0.7)")
	cv.FillText("Verification", 4, 17)

	url, err := cv.DataURL(ctx)
	if err != nil {
		c.logger.Debug("canvas serialization failed", zap.Error(err))
		return nil
	}
	hash := HashCanvas(url)
	return &hash
}

// HashCanvas reduces a canvas data URL to its hex SHA-256.
func HashCanvas(dataURL string) string {
	sum := sha256.Sum256([]byte(dataURL))
	return hex.EncodeToString(sum[:])
}

func (c *Collector) webGL(ctx context.Context) *types.WebGLInfo {
	gl, err := c.env.WebGL(ctx)
	if err != nil || gl == nil {
		c.logger.Debug("webgl unavailable", zap.Error(err))
		return nil
	}
	vendorParam, rendererParam := GLVendor, GLRenderer
	if ok, err := gl.HasExtension(ctx, DebugRendererExtension); err == nil && ok {
		vendorParam, rendererParam = GLUnmaskedVendor, GLUnmaskedRenderer
	}

	var info types.WebGLInfo
	for _, p := range []struct {
		name string
		dst  *string
	}{
		{vendorParam, &info.Vendor},
		{rendererParam, &info.Renderer},
		{GLVersion, &info.Version},
		{GLShadingLanguageVersion, &info.ShadingLanguageVersion},
	} {
		v, err := gl.Parameter(ctx, p.name)
		if err != nil {
			c.logger.Debug("webgl parameter failed", zap.String("param", p.name), zap.Error(err))
			return nil
		}
		*p.dst = v
	}
	return &info
}

// detectFonts reports a candidate as present when its width differs from
// the width of every generic baseline family.
func (c *Collector) detectFonts(ctx context.Context) []string {
	detected := []string{}
	cv, err := c.env.Canvas(ctx, canvasWidth, canvasHeight)
	if err != nil || cv == nil {
		return detected
	}

	baseWidths := make(map[string]float64, len(baseFonts))
	for _, base := range baseFonts {
		cv.SetFont(fontSize + " " + base)
		w, err := cv.MeasureText(ctx, fontProbe)
		if err != nil {
			c.logger.Debug("font baseline failed", zap.String("font", base), zap.Error(err))
			return detected
		}
		baseWidths[base] = w
	}

	for _, font := range CandidateFonts {
		present := true
		for _, base := range baseFonts {
			cv.SetFont(fontSize + " " + font + ", " + base)
			w, err := cv.MeasureText(ctx, fontProbe)
			if err != nil || w == baseWidths[base] {
				present = false
				break
			}
		}
		if present {
			detected = append(detected, font)
		}
	}
	return detected
}

func (c *Collector) audio(ctx context.Context) *types.AudioInfo {
	ac, err := c.env.Audio(ctx)
	if err != nil || ac == nil {
		c.logger.Debug("audio unavailable", zap.Error(err))
		return nil
	}
	defer func() {
		if err := ac.Close(ctx); err != nil {
			c.logger.Debug("audio close failed", zap.Error(err))
		}
	}()

	if err := ac.Connect(ctx, audioChain); err != nil {
		c.logger.Debug("audio graph failed", zap.Error(err))
		return nil
	}
	if err := ac.Start(ctx); err != nil {
		c.logger.Debug("oscillator start failed", zap.Error(err))
		return nil
	}
	info, err := ac.Info(ctx)
	if err != nil {
		return nil
	}
	return &info
}
