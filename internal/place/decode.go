package place

import (
	"math"
	"strconv"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Decode builds a Record from a stored document.
//
// Each field is read on its own: a missing field, or one holding a value of
// the wrong type, falls back to the zero value ("" for the string fields and
// 0.0 for latitude/longitude). The document identifier always becomes the
// record's DocumentID.
func Decode(id string, fields map[string]any) Record {
	name, _ := stringField(fields, FieldName)
	address, _ := stringField(fields, FieldAddress)
	postingUserID, _ := stringField(fields, FieldPostingUserID)
	lat, _ := numberField(fields, FieldLatitude)
	lng, _ := numberField(fields, FieldLongitude)
	return Record{
		Name:          name,
		Address:       address,
		PostingUserID: postingUserID,
		Coordinate:    Coordinate{Latitude: lat, Longitude: lng},
		DocumentID:    id,
	}
}

// Encode returns the full set of stored fields for r. Saves always write
// all five fields so an update fully replaces the previous document.
func Encode(r Record) map[string]any {
	return map[string]any{
		FieldName:          r.Name,
		FieldAddress:       r.Address,
		FieldPostingUserID: r.PostingUserID,
		FieldLatitude:      r.Coordinate.Latitude,
		FieldLongitude:     r.Coordinate.Longitude,
	}
}

func stringField(fields map[string]any, key string) (string, bool) {
	s, ok := fields[key].(string)
	return s, ok
}

// numberField accepts the numeric types document drivers hand back for a
// stored number; whole numbers may arrive as integers and documents written
// by other tools may hold Decimal128. NaN and infinities count as missing.
func numberField(fields map[string]any, key string) (float64, bool) {
	var f float64
	switch v := fields[key].(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case primitive.Decimal128:
		parsed, err := strconv.ParseFloat(v.String(), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
