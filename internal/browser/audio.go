package browser

import (
	"context"
	"fmt"
	"strings"

	"checkpoint/internal/fingerprint"
	"checkpoint/internal/types"
	"checkpoint/internal/utils"
)

// audioContext keeps its page objects under a random global so
// concurrent contexts in one tab do not collide.
type audioContext struct {
	b   *Browser
	ref string
}

// Audio returns nil when the page has no AudioContext constructor.
func (b *Browser) Audio(ctx context.Context) (fingerprint.AudioContext, error) {
	ref := "__cp_audio_" + strings.NewReplacer("-", "_").Replace(utils.GenerateNonce())
	var ok bool
	script := fmt.Sprintf(`(() => {
	const AC = window.AudioContext || window.webkitAudioContext;
	if (!AC) return false;
	window[%s] = { ctx: new AC(), nodes: [] };
	return true;
})()`, jsString(ref))
	if err := b.eval(ctx, script, &ok); err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &audioContext{b: b, ref: ref}, nil
}

func (a *audioContext) Connect(ctx context.Context, chain []fingerprint.Node) error {
	return a.b.eval(ctx, connectScript(a.ref, chain), nil)
}

func (a *audioContext) Start(ctx context.Context) error {
	return a.b.eval(ctx, fmt.Sprintf(`(() => {
	const a = window[%s];
	if (a.nodes.length && a.nodes[0].start) a.nodes[0].start(0);
	return true;
})()`, jsString(a.ref)), nil)
}

func (a *audioContext) Info(ctx context.Context) (types.AudioInfo, error) {
	var info types.AudioInfo
	err := a.b.eval(ctx, fmt.Sprintf(`(() => {
	const c = window[%s].ctx;
	return { sampleRate: c.sampleRate, state: c.state, maxChannelCount: c.destination.maxChannelCount };
})()`, jsString(a.ref)), &info)
	return info, err
}

func (a *audioContext) Close(ctx context.Context) error {
	return a.b.eval(ctx, fmt.Sprintf(`(() => {
	const a = window[%[1]s];
	if (!a) return true;
	delete window[%[1]s];
	return a.ctx.close().then(() => true);
})()`, jsString(a.ref)), nil, awaitPromise)
}

func connectScript(ref string, chain []fingerprint.Node) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "(() => {\nconst a = window[%s];\nconst c = a.ctx;\nlet n;\n", jsString(ref))
	for _, node := range chain {
		switch node.Kind {
		case fingerprint.Oscillator:
			sb.WriteString("n = c.createOscillator();\n")
		case fingerprint.Analyser:
			sb.WriteString("n = c.createAnalyser();\n")
		case fingerprint.ScriptProcessor:
			fmt.Fprintf(&sb, "n = c.createScriptProcessor(%d, %d, %d);\n", node.BufferSize, node.Inputs, node.Outputs)
		case fingerprint.Gain:
			fmt.Fprintf(&sb, "n = c.createGain();\nn.gain.value = %g;\n", node.Gain)
		default:
			fmt.Fprintf(&sb, "throw new Error(%s);\n", jsString("unknown node "+string(node.Kind)))
			continue
		}
		sb.WriteString("if (a.nodes.length) a.nodes[a.nodes.length - 1].connect(n);\na.nodes.push(n);\n")
	}
	sb.WriteString("if (a.nodes.length) a.nodes[a.nodes.length - 1].connect(c.destination);\nreturn true;\n})()")
	return sb.String()
}
