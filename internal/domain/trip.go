package domain

import "time"

// MissingZoneID replaces absent pickup/drop-off zone identifiers.
const MissingZoneID = "-1"

// Duration bounds in minutes, both inclusive.
const (
	MinDurationMinutes = 1.0
	MaxDurationMinutes = 60.0
)

// TripRecord is one raw row of a trip file.
type TripRecord struct {
	PickupTime   time.Time // zero if null
	DropoffTime  time.Time // zero if null
	PickupZone   *int64   // nullable
	DropoffZone  *int64   // nullable
	TripDistance *float64 // nullable, absent for fhv
}

// PreparedRecord is a TripRecord that survived preparation.
// Invariant: MinDurationMinutes <= Duration <= MaxDurationMinutes.
type PreparedRecord struct {
	Trip        TripRecord
	SourceIndex int     // row position in the source file
	Duration    float64 // minutes
	PickupZone  string  // MissingZoneID if absent
	DropoffZone string  // MissingZoneID if absent
	RideID      string
}
