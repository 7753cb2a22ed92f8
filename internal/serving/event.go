// Package serving exposes single-ride predictions over HTTP and fans each
// prediction out to Redis and websocket subscribers.
package serving

import (
	"context"

	"taxi-duration-lab/internal/domain"
)

// EventType tags prediction messages.
const EventType = "prediction"

// Event is the message published for every online prediction.
type Event struct {
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

// EventData carries one prediction.
type EventData struct {
	PredictionID string  `json:"prediction_id"`
	RideID       string  `json:"ride_id"`
	PickupZone   string  `json:"PULocationID"`
	DropoffZone  string  `json:"DOLocationID"`
	Duration     float64 `json:"duration"`
	ModelVersion string  `json:"model_version"`
	CreatedAt    int64   `json:"created_at"`
}

// NewEvent builds the published message for p.
func NewEvent(p *domain.PredictionResult) Event {
	return Event{
		Type: EventType,
		Data: EventData{
			PredictionID: p.PredictionID,
			RideID:       p.RideID,
			PickupZone:   p.PickupZone,
			DropoffZone:  p.DropoffZone,
			Duration:     p.PredictedDuration,
			ModelVersion: p.ModelVersion,
			CreatedAt:    p.CreatedAt,
		},
	}
}

// Publisher delivers predictions to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, p *domain.PredictionResult) error
}
