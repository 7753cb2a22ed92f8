// Package tripdata reads TLC trip files and writes prediction files.
// Locations may be local paths, file:// URLs, s3:// objects or http(s) URLs.
package tripdata

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrRead wraps every failure to fetch or decode an input.
	ErrRead = errors.New("read failed")

	// ErrWrite wraps every failure to encode or store an output.
	ErrWrite = errors.New("write failed")

	// ErrUnsupportedLocation is returned for schemes no backend handles.
	ErrUnsupportedLocation = errors.New("unsupported location")

	// ErrInvalidEndpoint is returned when the object store cannot be configured.
	ErrInvalidEndpoint = errors.New("invalid storage endpoint")
)

// Kind is the storage backend a location resolves to.
type Kind int

const (
	KindLocal Kind = iota
	KindS3
	KindHTTP
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindS3:
		return "s3"
	case KindHTTP:
		return "http"
	default:
		return "unknown"
	}
}

// Location is a parsed input or output address.
type Location struct {
	Kind Kind
	Raw  string

	Path   string // KindLocal
	Bucket string // KindS3
	Key    string // KindS3
}

// ParseLocation classifies raw by scheme. A string without a scheme is a local path.
func ParseLocation(raw string) (Location, error) {
	if raw == "" {
		return Location{}, fmt.Errorf("%w: empty location", ErrUnsupportedLocation)
	}

	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return Location{Kind: KindLocal, Raw: raw, Path: raw}, nil
	}

	switch strings.ToLower(scheme) {
	case "file":
		u, err := url.Parse(raw)
		if err != nil || u.Path == "" {
			return Location{}, fmt.Errorf("%w: bad file url %q", ErrUnsupportedLocation, raw)
		}
		return Location{Kind: KindLocal, Raw: raw, Path: u.Path}, nil

	case "s3":
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" || key == "" {
			return Location{}, fmt.Errorf("%w: s3 location %q needs bucket and key", ErrUnsupportedLocation, raw)
		}
		return Location{Kind: KindS3, Raw: raw, Bucket: bucket, Key: key}, nil

	case "http", "https":
		return Location{Kind: KindHTTP, Raw: raw}, nil

	default:
		return Location{}, fmt.Errorf("%w: scheme %q in %q", ErrUnsupportedLocation, scheme, raw)
	}
}
