package fingerprint

import (
	"context"

	"checkpoint/internal/types"
)

// Source yields the fingerprint of a session.
type Source interface {
	Collect(ctx context.Context) types.Fingerprint
}

// Static is a fingerprint collected elsewhere, e.g. reported by a page
// sensor.
type Static types.Fingerprint

func (s Static) Collect(context.Context) types.Fingerprint {
	return types.Fingerprint(s)
}

// Validate reports whether fp shows none of the automation tells.
func Validate(fp types.Fingerprint) bool {
	switch {
	case fp.Webdriver:
		return false
	case len(fp.Plugins) == 0:
		return false
	case fp.Canvas == nil:
		return false
	case fp.WebGL == nil:
		return false
	case fp.WebdriverAttribute:
		return false
	case len(fp.Languages) == 0:
		return false
	}
	return true
}
