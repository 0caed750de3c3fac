package browser

import (
	"context"
	"fmt"

	"checkpoint/internal/fingerprint"
)

// glContext falls back to the prefixed context name older engines use.
const glContext = `(() => {
	const canvas = document.createElement('canvas');
	return canvas.getContext('webgl') || canvas.getContext('experimental-webgl');
})()`

type webGL struct {
	b *Browser
}

// WebGL returns nil when the page cannot create a context.
func (b *Browser) WebGL(ctx context.Context) (fingerprint.WebGL, error) {
	var ok bool
	if err := b.eval(ctx, "!!"+glContext, &ok); err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &webGL{b: b}, nil
}

func (g *webGL) HasExtension(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := g.b.eval(ctx, hasExtensionScript(name), &ok)
	return ok, err
}

func (g *webGL) Parameter(ctx context.Context, name string) (string, error) {
	var v string
	err := g.b.eval(ctx, parameterScript(name), &v)
	return v, err
}

func hasExtensionScript(name string) string {
	return fmt.Sprintf("(() => { const gl = %s; return !!gl && !!gl.getExtension(%s); })()", glContext, jsString(name))
}

// parameterScript reads a context constant, or a debug renderer constant
// for the unmasked names.
func parameterScript(name string) string {
	source := "gl"
	if name == fingerprint.GLUnmaskedVendor || name == fingerprint.GLUnmaskedRenderer {
		source = "gl.getExtension(" + jsString(fingerprint.DebugRendererExtension) + ")"
	}
	return fmt.Sprintf("(() => { const gl = %s; const src = %s; return String(gl.getParameter(src[%s])); })()",
		glContext, source, jsString(name))
}
