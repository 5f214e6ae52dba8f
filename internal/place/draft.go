package place

import (
	"context"
	"fmt"
)

// RegionRadiusMeters is the fixed span of the map region shown around a place.
const RegionRadiusMeters = 1000.0

// Region is the map area displayed for a record.
type Region struct {
	Center       Coordinate `json:"center"`
	RadiusMeters float64    `json:"radiusMeters"`
}

// RegionFor returns the display region centred on r.
func RegionFor(r Record) Region {
	return Region{Center: r.Coordinate, RadiusMeters: RegionRadiusMeters}
}

// DraftFromLocation starts a new, unsaved record at the device coordinate c
// and fills name and address from reverse geocoding. When geocoding fails the
// positioned blank draft is still returned alongside the error.
func DraftFromLocation(ctx context.Context, lp LocationProvider, c Coordinate) (Record, error) {
	draft := Record{Coordinate: c}
	pm, err := lp.ReverseGeocode(ctx, c)
	if err != nil {
		return draft, fmt.Errorf("reverse geocode: %w", err)
	}
	draft.Name = pm.Name
	draft.Address = pm.Thoroughfare
	return draft, nil
}

// DraftFromSuggestion starts a new, unsaved record from an autocomplete pick.
func DraftFromSuggestion(s Suggestion) Record {
	return Record{Name: s.Name, Address: s.Address, Coordinate: s.Coordinate}
}
