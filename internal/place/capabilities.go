package place

import (
	"context"
	"errors"
)

// ErrAutocompleteCancelled is returned when an autocomplete request ends
// without a usable query or is abandoned by the caller.
var ErrAutocompleteCancelled = errors.New("autocomplete cancelled")

// AuthProvider supplies the identifier of the signed-in user, if any.
type AuthProvider interface {
	CurrentUser(ctx context.Context) (string, bool)
}

// Placemark is a reverse-geocoding guess for a coordinate.
type Placemark struct {
	Name         string `json:"name"`
	Thoroughfare string `json:"thoroughfare"`
}

// LocationProvider turns a device coordinate into a human readable placemark.
type LocationProvider interface {
	ReverseGeocode(ctx context.Context, c Coordinate) (Placemark, error)
}

// Suggestion is one place returned by an autocomplete lookup.
type Suggestion struct {
	Name       string     `json:"name"`
	Address    string     `json:"address"`
	Coordinate Coordinate `json:"coordinate"`
}

// PlaceAutocompleteProvider resolves free text into candidate places.
type PlaceAutocompleteProvider interface {
	Autocomplete(ctx context.Context, query string) ([]Suggestion, error)
}
