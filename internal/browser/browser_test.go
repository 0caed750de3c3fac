package browser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"checkpoint/internal/fingerprint"
)

func TestJSString(t *testing.T) {
	assert.Equal(t, `"plain"`, jsString("plain"))
	assert.Equal(t, `"a\"b\\c"`, jsString(`a"b\c`))
	assert.Equal(t, `"\u003c/script\u003e"`, jsString("</script>"))
}

func TestInScript(t *testing.T) {
	assert.Equal(t, `("getBattery" in navigator)`, inScript("navigator", "getBattery"))
	assert.Equal(t, `("__nightmare" in window)`, inScript("window", "__nightmare"))
}

func TestCanvasScriptReplaysOps(t *testing.T) {
	c := &canvas{width: 200, height: 50}
	c.SetTextBaseline("top")
	c.SetFont("14px Arial")
	c.SetFillStyle("#f60")
	c.FillRect(125, 1, 62, 20)
	c.FillText("Checkpoint Security", 2, 15)

	got := canvasScript(c.width, c.height, c.ops, "canvas.toDataURL()")
	assert.Contains(t, got, "canvas.width = 200;")
	assert.Contains(t, got, "canvas.height = 50;")
	assert.Contains(t, got, `ctx.textBaseline = "top";`)
	assert.Contains(t, got, "ctx.fillRect(125, 1, 62, 20);")
	assert.Contains(t, got, `ctx.fillText("Checkpoint Security", 2, 15);`)
	assert.Contains(t, got, "return canvas.toDataURL();")
	assert.Less(t, strings.Index(got, "textBaseline"), strings.Index(got, "fillText"), "ops keep their order")
	assert.Equal(t, "14px Arial", c.font)
}

func TestParameterScript(t *testing.T) {
	plain := parameterScript(fingerprint.GLVendor)
	assert.Contains(t, plain, `const src = gl;`)
	assert.Contains(t, plain, `src["VENDOR"]`)
	assert.Contains(t, plain, "experimental-webgl")

	unmasked := parameterScript(fingerprint.GLUnmaskedRenderer)
	assert.Contains(t, unmasked, `gl.getExtension("WEBGL_debug_renderer_info")`)
	assert.Contains(t, unmasked, `src["UNMASKED_RENDERER_WEBGL"]`)
}

func TestConnectScript(t *testing.T) {
	got := connectScript("ref", []fingerprint.Node{
		{Kind: fingerprint.Oscillator},
		{Kind: fingerprint.Analyser},
		{Kind: fingerprint.ScriptProcessor, BufferSize: 4096, Inputs: 1, Outputs: 1},
		{Kind: fingerprint.Gain, Gain: 0},
	})
	assert.Contains(t, got, `window["ref"]`)
	assert.Contains(t, got, "c.createOscillator()")
	assert.Contains(t, got, "c.createScriptProcessor(4096, 1, 1)")
	assert.Contains(t, got, "n.gain.value = 0;")
	assert.Contains(t, got, "connect(c.destination)")
}
