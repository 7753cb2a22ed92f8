package domain

import "fmt"

// TaxiType identifies which TLC trip dataset a file belongs to.
type TaxiType string

const (
	TaxiTypeFHV    TaxiType = "fhv"
	TaxiTypeGreen  TaxiType = "green"
	TaxiTypeYellow TaxiType = "yellow"
)

// String returns the string representation of TaxiType.
func (t TaxiType) String() string {
	return string(t)
}

// IsValid checks if the taxi type is a known value.
func (t TaxiType) IsValid() bool {
	return t == TaxiTypeFHV || t == TaxiTypeGreen || t == TaxiTypeYellow
}

// ParseTaxiType converts a CLI/env value into a TaxiType.
func ParseTaxiType(s string) (TaxiType, error) {
	t := TaxiType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown taxi type %q (want fhv, green or yellow)", s)
	}
	return t, nil
}

// Columns returns the source column names for this taxi type.
func (t TaxiType) Columns() TripColumns {
	switch t {
	case TaxiTypeGreen:
		return TripColumns{
			Pickup:     "lpep_pickup_datetime",
			Dropoff:    "lpep_dropoff_datetime",
			PickupZone: "PULocationID",
			DropZone:   "DOLocationID",
			Distance:   "trip_distance",
		}
	case TaxiTypeYellow:
		return TripColumns{
			Pickup:     "tpep_pickup_datetime",
			Dropoff:    "tpep_dropoff_datetime",
			PickupZone: "PULocationID",
			DropZone:   "DOLocationID",
			Distance:   "trip_distance",
		}
	default:
		return TripColumns{
			Pickup:     "pickup_datetime",
			Dropoff:    "dropOff_datetime",
			PickupZone: "PUlocationID",
			DropZone:   "DOlocationID",
		}
	}
}

// TripColumns names the raw columns a trip file carries.
// Distance is empty for datasets without a distance column.
type TripColumns struct {
	Pickup     string
	Dropoff    string
	PickupZone string
	DropZone   string
	Distance   string
}
