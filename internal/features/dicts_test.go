package features

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxi-duration-lab/internal/domain"
)

func TestBuildDicts_Categorical(t *testing.T) {
	prepared := []domain.PreparedRecord{
		{PickupZone: "10", DropoffZone: "20"},
		{PickupZone: domain.MissingZoneID, DropoffZone: "3"},
	}

	dicts := BuildDicts(prepared, domain.FeatureLayoutCategorical)

	require.Len(t, dicts, 2)
	assert.Equal(t, domain.FeatureDict{"PUlocationID": "10", "DOlocationID": "20"}, dicts[0])
	assert.Equal(t, domain.FeatureDict{"PUlocationID": "-1", "DOlocationID": "3"}, dicts[1])
}

func TestBuildDicts_Combined(t *testing.T) {
	distance := 2.5
	prepared := []domain.PreparedRecord{
		{PickupZone: "43", DropoffZone: "151", Trip: domain.TripRecord{TripDistance: &distance}},
		{PickupZone: "1", DropoffZone: "2"},
	}

	dicts := BuildDicts(prepared, domain.FeatureLayoutCombined)

	require.Len(t, dicts, 2)
	assert.Equal(t, domain.FeatureDict{"PU_DO": "43_151", "trip_distance": 2.5}, dicts[0])
	assert.Equal(t, domain.FeatureDict{"PU_DO": "1_2"}, dicts[1])
}

func TestRideFeatures(t *testing.T) {
	ride := domain.Ride{PickupZone: 34, DropoffZone: 56, TripDistance: 55}

	assert.Equal(t,
		domain.FeatureDict{"PU_DO": "34_56", "trip_distance": 55.0},
		RideFeatures(ride, domain.FeatureLayoutCombined),
	)
	assert.Equal(t,
		domain.FeatureDict{"PUlocationID": "34", "DOlocationID": "56"},
		RideFeatures(ride, domain.FeatureLayoutCategorical),
	)
}

func TestAssignRideIDs_Index(t *testing.T) {
	prepared := []domain.PreparedRecord{{SourceIndex: 1}, {SourceIndex: 7}}

	AssignRideIDs(prepared, 2021, 3, false)

	assert.Equal(t, "2021/03_1", prepared[0].RideID)
	assert.Equal(t, "2021/03_7", prepared[1].RideID)
}

func TestAssignRideIDs_UUID(t *testing.T) {
	prepared := make([]domain.PreparedRecord, 3)

	AssignRideIDs(prepared, 2021, 3, true)

	pattern := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	seen := make(map[string]bool)
	for _, p := range prepared {
		assert.Regexp(t, pattern, p.RideID)
		assert.False(t, seen[p.RideID], "duplicate ride id %s", p.RideID)
		seen[p.RideID] = true
	}
}
