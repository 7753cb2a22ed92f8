package serving

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"taxi-duration-lab/internal/domain"
	"taxi-duration-lab/internal/features"
	"taxi-duration-lab/internal/idhash"
	"taxi-duration-lab/internal/model"
	"taxi-duration-lab/internal/observability"
	"taxi-duration-lab/internal/storage"
)

// maxRequestBytes bounds the /predict request body.
const maxRequestBytes = 1 << 16

// ErrBadRequest is returned for malformed ride requests.
var ErrBadRequest = errors.New("bad request")

// Server answers single-ride prediction requests.
type Server struct {
	scorer       *model.Scorer
	layout       domain.FeatureLayout
	modelVersion string

	publishers      []Publisher
	predictionStore storage.PredictionStore
	hub             *Hub

	logger *log.Logger
	now    func() time.Time
}

// Options for creating Server.
type Options struct {
	Artifact     *model.Artifact
	ModelVersion string // overrides the artifact version when set

	// Optional sinks
	Publishers      []Publisher
	PredictionStore storage.PredictionStore
	Hub             *Hub // served on /ws/predictions and published to

	Logger *log.Logger
}

// NewServer creates a prediction server.
func NewServer(opts Options) *Server {
	version := opts.ModelVersion
	if version == "" {
		version = opts.Artifact.ModelVersion()
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	publishers := append([]Publisher(nil), opts.Publishers...)
	if opts.Hub != nil {
		publishers = append(publishers, opts.Hub)
	}

	return &Server{
		scorer:          opts.Artifact.Scorer(),
		layout:          opts.Artifact.Layout,
		modelVersion:    version,
		publishers:      publishers,
		predictionStore: opts.PredictionStore,
		hub:             opts.Hub,
		logger:          logger,
		now:             time.Now,
	}
}

// WithClock sets a custom clock for prediction timestamps.
func (s *Server) WithClock(now func() time.Time) *Server {
	s.now = now
	return s
}

// ModelVersion returns the version reported with every prediction.
func (s *Server) ModelVersion() string {
	return s.modelVersion
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/predict", s.handlePredict)

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	if s.hub != nil {
		mux.Handle("/ws/predictions", s.hub)
	}

	return mux
}

// Predict scores one ride, then stores and publishes the result.
// Store and publish failures are logged and do not fail the prediction.
func (s *Server) Predict(ctx context.Context, ride domain.Ride) (*domain.PredictionResult, error) {
	if ride.PickupZone < 0 || ride.DropoffZone < 0 {
		return nil, fmt.Errorf("%w: negative location id", ErrBadRequest)
	}
	if ride.TripDistance < 0 {
		return nil, fmt.Errorf("%w: negative trip_distance", ErrBadRequest)
	}

	dict := features.RideFeatures(ride, s.layout)
	duration := s.scorer.Score([]domain.FeatureDict{dict})[0]

	rideID := uuid.NewString()
	result := &domain.PredictionResult{
		PredictionID:      idhash.ComputePredictionID(rideID, s.modelVersion),
		RideID:            rideID,
		PredictedDuration: duration,
		ModelVersion:      s.modelVersion,
		PickupZone:        fmt.Sprintf("%d", ride.PickupZone),
		DropoffZone:       fmt.Sprintf("%d", ride.DropoffZone),
		CreatedAt:         s.now().UnixMilli(),
	}

	if s.predictionStore != nil {
		if err := s.predictionStore.InsertBulk(ctx, []*domain.PredictionResult{result}); err != nil {
			s.logger.Printf("store prediction %s: %v", rideID, err)
		}
	}
	for _, p := range s.publishers {
		if err := p.Publish(ctx, result); err != nil {
			s.logger.Printf("publish prediction %s: %v", rideID, err)
		}
	}

	return result, nil
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var ride domain.Ride
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	if err := dec.Decode(&ride); err != nil {
		observability.RecordOnlinePrediction("bad_request", 0)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid ride: %v", err))
		return
	}

	result, err := s.Predict(r.Context(), ride)
	if err != nil {
		observability.RecordOnlinePrediction("bad_request", 0)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	observability.RecordOnlinePrediction("ok", time.Since(start).Seconds())
	s.logger.Printf("predicted %.2f min for %s -> %s", result.PredictedDuration, result.PickupZone, result.DropoffZone)

	writeJSON(w, http.StatusOK, domain.RidePrediction{
		Duration:     result.PredictedDuration,
		ModelVersion: result.ModelVersion,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
