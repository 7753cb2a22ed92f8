package tripdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Storage moves whole files between memory and any supported location.
// It satisfies model.Source and model.Sink.
type Storage struct {
	endpoint string
	creds    *credentials.Credentials
	client   *http.Client

	mu      sync.Mutex
	objects *ObjectStore
}

// StorageOption configures a Storage.
type StorageOption func(*Storage)

// WithCredentials sets static object store credentials.
func WithCredentials(creds *credentials.Credentials) StorageOption {
	return func(s *Storage) { s.creds = creds }
}

// WithHTTPClient replaces the client used for http(s) locations.
func WithHTTPClient(c *http.Client) StorageOption {
	return func(s *Storage) { s.client = c }
}

// NewStorage creates a Storage. endpoint overrides the S3 endpoint when set.
func NewStorage(endpoint string, opts ...StorageOption) *Storage {
	s := &Storage{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ObjectStore returns the lazily-created S3 client.
func (s *Storage) ObjectStore() (*ObjectStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.objects != nil {
		return s.objects, nil
	}
	objects, err := NewObjectStore(s.endpoint, s.creds)
	if err != nil {
		return nil, err
	}
	s.objects = objects
	return objects, nil
}

// ReadAll returns the full contents at location.
func (s *Storage) ReadAll(ctx context.Context, location string) ([]byte, error) {
	loc, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch loc.Kind {
	case KindLocal:
		data, err = os.ReadFile(loc.Path)
	case KindS3:
		objects, oerr := s.ObjectStore()
		if oerr != nil {
			return nil, oerr
		}
		data, err = objects.Get(ctx, loc.Bucket, loc.Key)
	case KindHTTP:
		data, err = s.httpGet(ctx, loc.Raw)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRead, location, err)
	}
	return data, nil
}

// WriteAll stores data at location, creating local directories as needed.
// http(s) locations are read-only.
func (s *Storage) WriteAll(ctx context.Context, location string, data []byte) error {
	loc, err := ParseLocation(location)
	if err != nil {
		return err
	}

	switch loc.Kind {
	case KindLocal:
		if dir := filepath.Dir(loc.Path); dir != "" {
			if err = os.MkdirAll(dir, 0755); err != nil {
				break
			}
		}
		err = os.WriteFile(loc.Path, data, 0644)
	case KindS3:
		objects, oerr := s.ObjectStore()
		if oerr != nil {
			return oerr
		}
		err = objects.Put(ctx, loc.Bucket, loc.Key, data, contentTypeFor(loc.Key))
	case KindHTTP:
		return fmt.Errorf("%w: cannot write to %s", ErrUnsupportedLocation, location)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWrite, location, err)
	}
	return nil
}

func (s *Storage) httpGet(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func contentTypeFor(key string) string {
	switch filepath.Ext(key) {
	case ".parquet":
		return "application/vnd.apache.parquet"
	case ".json":
		return "application/json"
	case ".md":
		return "text/markdown"
	default:
		return "application/octet-stream"
	}
}

// Retryable reports whether err is a read or write failure worth retrying.
// Unsupported locations and bad endpoints never succeed on retry.
func Retryable(err error) bool {
	if errors.Is(err, ErrUnsupportedLocation) || errors.Is(err, ErrInvalidEndpoint) {
		return false
	}
	return errors.Is(err, ErrRead) || errors.Is(err, ErrWrite)
}
