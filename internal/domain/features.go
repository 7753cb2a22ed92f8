package domain

// FeatureDict maps a feature name to its value.
// Values are string (categorical) or float64 (numeric).
type FeatureDict map[string]any

// FeatureLayout selects which keys a FeatureDict carries.
type FeatureLayout string

const (
	// FeatureLayoutCategorical uses the two zone IDs as separate categoricals.
	FeatureLayoutCategorical FeatureLayout = "categorical"

	// FeatureLayoutCombined joins the zone IDs into PU_DO and adds trip_distance.
	FeatureLayoutCombined FeatureLayout = "combined"
)

// Feature keys.
const (
	FeaturePickupZone   = "PUlocationID"
	FeatureDropoffZone  = "DOlocationID"
	FeaturePickupDrop   = "PU_DO"
	FeatureTripDistance = "trip_distance"
)

// IsValid checks if the layout is a known value.
func (l FeatureLayout) IsValid() bool {
	return l == FeatureLayoutCategorical || l == FeatureLayoutCombined
}
