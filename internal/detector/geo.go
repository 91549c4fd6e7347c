package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/opensource-finance/harrier/internal/domain"
)

const (
	maxKnownLocations = 10
	geoAnomalyScore   = 35
)

// regionOf maps ISO country codes to coarse regions. Travel inside a
// region is treated as normal; only a jump to a country whose region
// matches none of the identity's known locations fires.
var regionOf = map[string]string{
	// North America
	"US": "north_america", "CA": "north_america", "MX": "north_america",
	// South America
	"BR": "south_america", "AR": "south_america", "CL": "south_america",
	"CO": "south_america", "PE": "south_america", "UY": "south_america",
	// Europe
	"GB": "europe", "IE": "europe", "FR": "europe", "DE": "europe",
	"ES": "europe", "PT": "europe", "IT": "europe", "NL": "europe",
	"BE": "europe", "CH": "europe", "AT": "europe", "SE": "europe",
	"NO": "europe", "DK": "europe", "FI": "europe", "PL": "europe",
	"CZ": "europe", "RO": "europe", "GR": "europe", "UA": "europe",
	// Asia-Pacific
	"CN": "asia_pacific", "JP": "asia_pacific", "KR": "asia_pacific",
	"IN": "asia_pacific", "SG": "asia_pacific", "HK": "asia_pacific",
	"TW": "asia_pacific", "TH": "asia_pacific", "VN": "asia_pacific",
	"MY": "asia_pacific", "ID": "asia_pacific", "PH": "asia_pacific",
	"AU": "asia_pacific", "NZ": "asia_pacific",
	// Middle East
	"AE": "middle_east", "SA": "middle_east", "IL": "middle_east",
	"TR": "middle_east", "QA": "middle_east", "EG": "middle_east",
	// Africa
	"ZA": "africa", "NG": "africa", "KE": "africa", "MA": "africa",
	"GH": "africa",
}

// Geo flags access from a country that shares no region with any of
// the identity's known locations. The orchestrator resolves the
// country before the fan-out; an empty country means the location is
// unknown and the detector stays silent.
type Geo struct {
	store domain.KVStore
}

func NewGeo(store domain.KVStore) *Geo {
	return &Geo{store: store}
}

func (d *Geo) Name() string { return domain.RuleGeoAnomaly }

func (d *Geo) Detect(ctx context.Context, check *domain.CheckContext) (*domain.Signal, error) {
	if !check.HasIdentity() || check.Country == "" {
		return nil, nil
	}

	key := domain.LocationHistoryKey(check.IdentityID)
	known, err := d.knownLocations(ctx, key)
	if err != nil {
		return nil, err
	}

	if len(known) == 0 {
		// First location on file: establish the baseline, no signal.
		if err := d.save(ctx, key, []string{check.Country}); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if idx := indexOf(known, check.Country); idx >= 0 {
		known = append(known[:idx], known[idx+1:]...)
		if err := d.save(ctx, key, prepend(known, check.Country, maxKnownLocations)); err != nil {
			return nil, err
		}
		return nil, nil
	}

	anomalous := !sharesRegion(check.Country, known)

	if err := d.save(ctx, key, prepend(known, check.Country, maxKnownLocations)); err != nil {
		return nil, err
	}

	if !anomalous {
		return nil, nil
	}

	return &domain.Signal{
		Rule:   domain.RuleGeoAnomaly,
		Score:  geoAnomalyScore,
		Reason: fmt.Sprintf("access from unfamiliar country %s", check.Country),
		Metadata: map[string]string{
			"country":         check.Country,
			"known_locations": strconv.Itoa(len(known)),
		},
	}, nil
}

// sharesRegion reports whether the country's region matches the region
// of any known location. Countries absent from the region table never
// share a region.
func sharesRegion(country string, known []string) bool {
	region := regionOf[country]
	if region == "" {
		return false
	}
	for _, k := range known {
		if regionOf[k] == region {
			return true
		}
	}
	return false
}

func (d *Geo) knownLocations(ctx context.Context, key string) ([]string, error) {
	raw, err := d.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var known []string
	if err := json.Unmarshal(raw, &known); err != nil {
		return nil, nil
	}
	return known, nil
}

func (d *Geo) save(ctx context.Context, key string, locations []string) error {
	buf, err := json.Marshal(locations)
	if err != nil {
		return err
	}
	return d.store.Set(ctx, key, buf, domain.LocationHistoryTTL)
}
