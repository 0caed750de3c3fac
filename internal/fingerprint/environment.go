package fingerprint

import (
	"context"

	"checkpoint/internal/types"
)

// Navigator carries the navigator attributes read by the collector.
type Navigator struct {
	UserAgent           string
	Language            string
	Languages           []string
	Platform            string
	HardwareConcurrency int
	DeviceMemory        float64
	Webdriver           bool
	Plugins             []string
}

// Environment is the read-only view of the browser the collector samples.
// WebGL and Audio return (nil, nil) when the API is absent.
type Environment interface {
	Navigator(ctx context.Context) (Navigator, error)
	Screen(ctx context.Context) (screen types.Screen, pixelRatio float64, err error)
	Timezone(ctx context.Context) (name string, offsetMinutes int, err error)
	HasDocumentAttribute(ctx context.Context, name string) (bool, error)
	Canvas(ctx context.Context, width, height int) (Canvas, error)
	WebGL(ctx context.Context) (WebGL, error)
	Audio(ctx context.Context) (AudioContext, error)
}

// Canvas is an off-screen 2D drawing surface.
type Canvas interface {
	SetFont(font string)
	SetFillStyle(style string)
	SetTextBaseline(baseline string)
	FillRect(x, y, w, h float64)
	FillText(text string, x, y float64)
	MeasureText(ctx context.Context, text string) (float64, error)
	DataURL(ctx context.Context) (string, error)
}

// WebGL parameter and extension names.
const (
	GLVendor                 = "VENDOR"
	GLRenderer               = "RENDERER"
	GLVersion                = "VERSION"
	GLShadingLanguageVersion = "SHADING_LANGUAGE_VERSION"
	GLUnmaskedVendor         = "UNMASKED_VENDOR_WEBGL"
	GLUnmaskedRenderer       = "UNMASKED_RENDERER_WEBGL"

	DebugRendererExtension = "WEBGL_debug_renderer_info"
)

type WebGL interface {
	HasExtension(ctx context.Context, name string) (bool, error)
	Parameter(ctx context.Context, name string) (string, error)
}

type NodeKind string

const (
	Oscillator      NodeKind = "oscillator"
	Analyser        NodeKind = "analyser"
	ScriptProcessor NodeKind = "scriptProcessor"
	Gain            NodeKind = "gain"
)

// Node describes one audio node in a processing chain.
type Node struct {
	Kind       NodeKind
	BufferSize int
	Inputs     int
	Outputs    int
	Gain       float64
}

type AudioContext interface {
	// Connect builds nodes in order, connecting each to the next and the
	// last one to the destination.
	Connect(ctx context.Context, chain []Node) error
	Start(ctx context.Context) error
	Info(ctx context.Context) (types.AudioInfo, error)
	Close(ctx context.Context) error
}
