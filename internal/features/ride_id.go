package features

import (
	"fmt"

	"github.com/google/uuid"

	"taxi-duration-lab/internal/domain"
)

// RideIDFormat is the index-mode ride ID layout: year/month_sourceRow.
const RideIDFormat = "%04d/%02d_%d"

// AssignRideIDs sets RideID on every record in place.
// In uuid mode each ride gets a random identifier; otherwise the ID is
// keyed by year, month and the record's source row index.
func AssignRideIDs(prepared []domain.PreparedRecord, year, month int, useUUID bool) {
	for i := range prepared {
		if useUUID {
			prepared[i].RideID = uuid.NewString()
			continue
		}
		prepared[i].RideID = fmt.Sprintf(RideIDFormat, year, month, prepared[i].SourceIndex)
	}
}
