// Package features turns raw trip records into model-ready feature dictionaries.
package features

import (
	"math"
	"strconv"

	"taxi-duration-lab/internal/domain"
)

// DurationMinutes returns dropoff - pickup in minutes, or NaN when either
// timestamp is missing.
func DurationMinutes(t domain.TripRecord) float64 {
	if t.PickupTime.IsZero() || t.DropoffTime.IsZero() {
		return math.NaN()
	}
	return t.DropoffTime.Sub(t.PickupTime).Minutes()
}

// InDurationRange reports whether d lies in [MinDurationMinutes, MaxDurationMinutes].
// NaN is never in range.
func InDurationRange(d float64) bool {
	return d >= domain.MinDurationMinutes && d <= domain.MaxDurationMinutes
}

// Prepare computes trip durations, drops rows outside the duration range and
// fills missing zone IDs with MissingZoneID. Retained rows keep their source
// order. The input slice is not modified.
func Prepare(records []domain.TripRecord) []domain.PreparedRecord {
	prepared := make([]domain.PreparedRecord, 0, len(records))

	for i, r := range records {
		d := DurationMinutes(r)
		if !InDurationRange(d) {
			continue
		}

		prepared = append(prepared, domain.PreparedRecord{
			Trip:        copyTrip(r),
			SourceIndex: i,
			Duration:    d,
			PickupZone:  zoneString(r.PickupZone),
			DropoffZone: zoneString(r.DropoffZone),
		})
	}

	return prepared
}

// zoneString renders a nullable zone ID as an integer string.
func zoneString(zone *int64) string {
	if zone == nil {
		return domain.MissingZoneID
	}
	return strconv.FormatInt(*zone, 10)
}

// copyTrip detaches the nullable fields so callers cannot alias the source.
func copyTrip(r domain.TripRecord) domain.TripRecord {
	out := r
	if r.PickupZone != nil {
		v := *r.PickupZone
		out.PickupZone = &v
	}
	if r.DropoffZone != nil {
		v := *r.DropoffZone
		out.DropoffZone = &v
	}
	if r.TripDistance != nil {
		v := *r.TripDistance
		out.TripDistance = &v
	}
	return out
}
