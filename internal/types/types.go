package types

import (
	"fmt"
	"time"
)

// Fingerprint is the device snapshot taken once per session. Canvas, WebGL
// and Audio are nil when collection failed.
type Fingerprint struct {
	UserAgent           string   `json:"userAgent"`
	Language            string   `json:"language"`
	Languages           []string `json:"languages"`
	Platform            string   `json:"platform"`
	HardwareConcurrency int      `json:"hardwareConcurrency"`
	DeviceMemory        float64  `json:"deviceMemory"`
	Screen              Screen   `json:"screen"`
	PixelRatio          float64  `json:"pixelRatio"`
	Timezone            string   `json:"timezone"`
	TimezoneOffset      int      `json:"timezoneOffset"`
	Plugins             []string `json:"plugins"`

	Canvas *string    `json:"canvas"`
	WebGL  *WebGLInfo `json:"webgl"`
	Fonts  []string   `json:"fonts"`
	Audio  *AudioInfo `json:"audio"`

	// Automation markers.
	Webdriver          bool `json:"webdriver"`
	WebdriverAttribute bool `json:"webdriverAttribute"`
}

type Screen struct {
	Width      int `json:"width"`
	Height     int `json:"height"`
	ColorDepth int `json:"colorDepth"`
}

// Resolution formats the screen as WIDTHxHEIGHT.
func (s Screen) Resolution() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

type WebGLInfo struct {
	Vendor                 string `json:"vendor"`
	Renderer               string `json:"renderer"`
	Version                string `json:"version"`
	ShadingLanguageVersion string `json:"shadingLanguageVersion"`
}

type AudioInfo struct {
	SampleRate      float64 `json:"sampleRate"`
	State           string  `json:"state"`
	MaxChannelCount int     `json:"maxChannelCount"`
}

type PointerSample struct {
	X  float64   `json:"x"`
	Y  float64   `json:"y"`
	At time.Time `json:"at"`
}

type KeySample struct {
	Key string    `json:"key"`
	At  time.Time `json:"at"`
}

// TimingMarks holds the session timestamps. Zero means unset.
type TimingMarks struct {
	PageLoad          time.Time
	FirstInteraction  time.Time
	VerificationStart time.Time
}

type VerificationState int

const (
	Idle VerificationState = iota
	Pending
	Verified
	Failed
)

func (s VerificationState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Verified:
		return "verified"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition can happen.
func (s VerificationState) Terminal() bool {
	return s == Verified || s == Failed
}

// Outcome describes a finished decision.
type Outcome struct {
	State   VerificationState
	Score   int
	Elapsed time.Duration
	Settle  time.Duration
	At      time.Time
}
