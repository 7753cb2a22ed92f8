package features

import (
	"fmt"

	"taxi-duration-lab/internal/domain"
)

// BuildDicts builds one FeatureDict per prepared record, in order.
func BuildDicts(prepared []domain.PreparedRecord, layout domain.FeatureLayout) []domain.FeatureDict {
	dicts := make([]domain.FeatureDict, len(prepared))
	for i, p := range prepared {
		dicts[i] = buildDict(p.PickupZone, p.DropoffZone, p.Trip.TripDistance, layout)
	}
	return dicts
}

// RideFeatures builds the FeatureDict for a single online ride.
func RideFeatures(ride domain.Ride, layout domain.FeatureLayout) domain.FeatureDict {
	distance := ride.TripDistance
	return buildDict(
		fmt.Sprintf("%d", ride.PickupZone),
		fmt.Sprintf("%d", ride.DropoffZone),
		&distance,
		layout,
	)
}

func buildDict(pickup, dropoff string, distance *float64, layout domain.FeatureLayout) domain.FeatureDict {
	if layout == domain.FeatureLayoutCombined {
		d := domain.FeatureDict{
			domain.FeaturePickupDrop: pickup + "_" + dropoff,
		}
		// Missing distance is left out; the vectorizer treats absent keys as zero.
		if distance != nil {
			d[domain.FeatureTripDistance] = *distance
		}
		return d
	}

	return domain.FeatureDict{
		domain.FeaturePickupZone:  pickup,
		domain.FeatureDropoffZone: dropoff,
	}
}
