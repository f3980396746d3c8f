package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/prostay/apiserver/config"
)

// MaxImageBytes bounds a single uploaded image.
const MaxImageBytes = 5 << 20

var (
	// ErrUnsupportedImage is returned for uploads that are not jpeg, png,
	// gif or webp.
	ErrUnsupportedImage = errors.New("unsupported image type")
	// ErrImageTooLarge is returned for uploads over MaxImageBytes.
	ErrImageTooLarge = errors.New("image too large")
	// ErrInvalidKey is returned for object keys outside the image prefixes.
	ErrInvalidKey = errors.New("invalid object key")
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Storage stores property images and profile photos on an ObjectStorage
// backend. Stored keys are served back through the API's /images route.
type Storage struct {
	backend ObjectStorage
}

// NewStorage constructs a Storage for the provided backend.
func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend}
}

// NewFromConfig builds the configured backend. It returns nil, nil when
// storage is disabled.
func NewFromConfig(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var (
		backend ObjectStorage
		err     error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none":
		return nil, nil
	case "minio":
		backend, err = NewMinioClient(cfg.Minio)
	case "gcs":
		backend, err = NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", backend.Bucket(), err)
	}
	return NewStorage(backend), nil
}

// SaveImage validates data as an image and stores it under prefix with a
// random name. It returns the object key.
func (s *Storage) SaveImage(ctx context.Context, prefix string, data []byte) (string, error) {
	if len(data) > MaxImageBytes {
		return "", ErrImageTooLarge
	}
	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", ErrUnsupportedImage
	}

	key := path.Join(prefix, uuid.NewString()+ext)
	if err := s.backend.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return key, nil
}

// Open returns a reader for a stored image. Keys are restricted to the
// image prefixes.
func (s *Storage) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	key = strings.TrimPrefix(path.Clean("/"+key), "/")
	dir := path.Dir(key)
	if dir != PrefixProperties && dir != PrefixUsers {
		return nil, "", ErrInvalidKey
	}
	contentType := "application/octet-stream"
	for ct, ext := range imageExtensions {
		if path.Ext(key) == ext {
			contentType = ct
		}
	}
	reader, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return reader, contentType, nil
}

// Delete removes an image. Empty keys are ignored.
func (s *Storage) Delete(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	return s.backend.Delete(ctx, key)
}

// Bucket returns the configured bucket name.
func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}

// Object key prefixes.
const (
	PrefixProperties = "properties"
	PrefixUsers      = "users"
)
