package diagnostics

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/oschwald/geoip2-golang/v2"
	"go.uber.org/zap"

	"checkpoint/internal/engine"
	"checkpoint/internal/types"
)

// Locator resolves an address to a city record.
type Locator interface {
	City(ip netip.Addr) (*geoip2.City, error)
}

// GeoResult compares the browser timezone with the client address.
type GeoResult struct {
	Country  string
	TimeZone string
	Mismatch bool
}

// GeoCheck flags sessions whose reported timezone differs from the
// timezone of their address.
type GeoCheck struct {
	locator Locator
	logger  *zap.Logger
	closer  func() error
}

// OpenGeoCheck loads a MaxMind city database.
func OpenGeoCheck(path string, logger *zap.Logger) (*GeoCheck, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening geoip database %s: %w", path, err)
	}
	g := NewGeoCheck(db, logger)
	g.closer = db.Close
	return g, nil
}

func NewGeoCheck(locator Locator, logger *zap.Logger) *GeoCheck {
	return &GeoCheck{locator: locator, logger: named(logger, "geo")}
}

// Compare looks up clientIP. An empty database timezone is never a mismatch.
func (g *GeoCheck) Compare(clientIP, timezone string) (GeoResult, error) {
	addr, err := netip.ParseAddr(clientIP)
	if err != nil {
		return GeoResult{}, fmt.Errorf("parsing client ip %q: %w", clientIP, err)
	}
	record, err := g.locator.City(addr)
	if err != nil {
		return GeoResult{}, fmt.Errorf("geoip lookup %s: %w", clientIP, err)
	}
	res := GeoResult{Country: record.Country.ISOCode, TimeZone: record.Location.TimeZone}
	res.Mismatch = res.TimeZone != "" && timezone != "" && res.TimeZone != timezone
	return res, nil
}

// Hook returns a fingerprint hook bound to one client address.
func (g *GeoCheck) Hook(clientIP string) engine.Hook {
	return func(_ context.Context, fp types.Fingerprint) {
		res, err := g.Compare(clientIP, fp.Timezone)
		if err != nil {
			g.logger.Debug("geo check skipped", zap.Error(err))
			return
		}
		if res.Mismatch {
			g.logger.Info("timezone mismatch",
				zap.String("ip", clientIP),
				zap.String("country", res.Country),
				zap.String("expected", res.TimeZone),
				zap.String("reported", fp.Timezone))
		}
	}
}

func (g *GeoCheck) Close() error {
	if g.closer == nil {
		return nil
	}
	return g.closer()
}
