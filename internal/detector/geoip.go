package detector

import (
	"context"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// GeoIPResolver resolves client IPs against a local MaxMind country
// database. Private and unrecognized addresses resolve to an empty
// location rather than an error.
type GeoIPResolver struct {
	reader *geoip2.Reader
}

// NewGeoIPResolver opens the .mmdb database at path.
func NewGeoIPResolver(path string) (*GeoIPResolver, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open GeoIP database: %w", err)
	}
	return &GeoIPResolver{reader: reader}, nil
}

func (r *GeoIPResolver) Resolve(ctx context.Context, ip string) (Location, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return Location{}, fmt.Errorf("invalid ip address: %s", ip)
	}

	record, err := r.reader.Country(parsed)
	if err != nil {
		return Location{}, err
	}

	return Location{Country: record.Country.IsoCode}, nil
}

func (r *GeoIPResolver) Close() error {
	return r.reader.Close()
}
