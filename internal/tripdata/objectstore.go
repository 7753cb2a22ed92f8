package tripdata

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DefaultS3Host is used when no endpoint override is configured.
const DefaultS3Host = "s3.amazonaws.com"

// ObjectStore reads and writes whole objects in an S3-compatible store.
type ObjectStore struct {
	client *minio.Client
}

// NewObjectStore connects to endpoint, or AWS S3 when endpoint is empty.
// An endpoint like http://127.0.0.1:4566 switches to path-style addressing
// so local emulators work. When creds is nil, credentials come from the
// AWS/MinIO environment variables or the shared credentials file.
func NewObjectStore(endpoint string, creds *credentials.Credentials) (*ObjectStore, error) {
	host, secure, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}

	if creds == nil {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.EnvMinio{},
			&credentials.FileAWSCredentials{},
		})
	}

	opts := &minio.Options{
		Creds:  creds,
		Secure: secure,
		Region: os.Getenv("AWS_DEFAULT_REGION"),
	}
	if endpoint != "" {
		opts.BucketLookup = minio.BucketLookupPath
	}

	client, err := minio.New(host, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: create s3 client: %v", ErrInvalidEndpoint, err)
	}
	return &ObjectStore{client: client}, nil
}

// Get returns the full object body.
func (s *ObjectStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", bucket, key, err)
	}
	return data, nil
}

// Put stores data under bucket/key, replacing any existing object.
func (s *ObjectStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// EnsureBucket creates bucket if it does not exist.
func (s *ObjectStore) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	return nil
}

// splitEndpoint turns an endpoint URL into the host and TLS flag minio expects.
func splitEndpoint(endpoint string) (string, bool, error) {
	if endpoint == "" {
		return DefaultS3Host, true, nil
	}
	if !strings.Contains(endpoint, "://") {
		return endpoint, false, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("parse storage endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("storage endpoint %q has no host", endpoint)
	}
	return u.Host, u.Scheme == "https", nil
}
