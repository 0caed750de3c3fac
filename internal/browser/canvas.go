package browser

import (
	"context"
	"fmt"
	"strings"

	"checkpoint/internal/fingerprint"
)

// canvas records drawing calls and replays them in a fresh page canvas on
// every read, so a read costs one round trip.
type canvas struct {
	b      *Browser
	width  int
	height int
	font   string
	ops    []string
}

func (b *Browser) Canvas(_ context.Context, width, height int) (fingerprint.Canvas, error) {
	return &canvas{b: b, width: width, height: height}, nil
}

func (c *canvas) SetFont(font string) {
	c.font = font
	c.ops = append(c.ops, "ctx.font = "+jsString(font)+";")
}

func (c *canvas) SetFillStyle(style string) {
	c.ops = append(c.ops, "ctx.fillStyle = "+jsString(style)+";")
}

func (c *canvas) SetTextBaseline(baseline string) {
	c.ops = append(c.ops, "ctx.textBaseline = "+jsString(baseline)+";")
}

func (c *canvas) FillRect(x, y, w, h float64) {
	c.ops = append(c.ops, fmt.Sprintf("ctx.fillRect(%g, %g, %g, %g);", x, y, w, h))
}

func (c *canvas) FillText(text string, x, y float64) {
	c.ops = append(c.ops, fmt.Sprintf("ctx.fillText(%s, %g, %g);", jsString(text), x, y))
}

// MeasureText only needs the current font.
func (c *canvas) MeasureText(ctx context.Context, text string) (float64, error) {
	var setup []string
	if c.font != "" {
		setup = append(setup, "ctx.font = "+jsString(c.font)+";")
	}
	var width float64
	err := c.b.eval(ctx, canvasScript(c.width, c.height, setup, "ctx.measureText("+jsString(text)+").width"), &width)
	return width, err
}

func (c *canvas) DataURL(ctx context.Context) (string, error) {
	var url string
	err := c.b.eval(ctx, canvasScript(c.width, c.height, c.ops, "canvas.toDataURL()"), &url)
	return url, err
}

func canvasScript(width, height int, ops []string, result string) string {
	var sb strings.Builder
	sb.WriteString("(() => {\n")
	fmt.Fprintf(&sb, "const canvas = document.createElement('canvas');\ncanvas.width = %d;\ncanvas.height = %d;\n", width, height)
	sb.WriteString("const ctx = canvas.getContext('2d');\n")
	for _, op := range ops {
		sb.WriteString(op)
		sb.WriteByte('\n')
	}
	sb.WriteString("return " + result + ";\n})()")
	return sb.String()
}
