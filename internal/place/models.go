package place

// CollectionName is the backend document collection holding every place.
const CollectionName = "places"

// UnknownUser is recorded as the posting user when a place is saved without
// a signed-in user.
const UnknownUser = "unknown user"

// Stored field names of a place document.
const (
	FieldName          = "placeName"
	FieldAddress       = "address"
	FieldPostingUserID = "postingUserID"
	FieldLatitude      = "latitude"
	FieldLongitude     = "longitude"
)

// Coordinate is a geographic position in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Record is a single place as moved between the list, the edit flow and the store.
// DocumentID is empty until the record has been saved once; afterwards it
// names the one backend document every later save overwrites.
type Record struct {
	Name          string     `json:"name"`
	Address       string     `json:"address"`
	Coordinate    Coordinate `json:"coordinate"`
	PostingUserID string     `json:"postingUserID"`
	DocumentID    string     `json:"documentID,omitempty"`
}

// Persisted reports whether the record has a backend document.
func (r Record) Persisted() bool { return r.DocumentID != "" }
