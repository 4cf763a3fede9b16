package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOSource reads snapshots from an S3-compatible object store such as
// MinIO or Ceph RGW.
type MinIOSource struct {
	mc     *minio.Client
	logger *slog.Logger
}

// NewMinIOSource creates a MinIO source. cfg.Endpoint is host[:port].
func NewMinIOSource(cfg Config, logger *slog.Logger) (*MinIOSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("minio backend requires snapshot.endpoint")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	return &MinIOSource{
		mc:     mc,
		logger: logger.With("backend", BackendMinIO, "endpoint", cfg.Endpoint),
	}, nil
}

// Fetch downloads the snapshot object.
func (s *MinIOSource) Fetch(ctx context.Context, loc Locator) ([]byte, error) {
	obj, err := s.mc.GetObject(ctx, loc.Bucket, loc.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.wrap(loc, err)
	}
	defer obj.Close()

	// GetObject is lazy; errors such as a missing key surface on read.
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.wrap(loc, err)
	}

	s.logger.Debug("fetched snapshot", "locator", loc.String(), "bytes", len(data))
	return data, nil
}

func (s *MinIOSource) wrap(loc Locator, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %s", ErrNotFound, loc)
	}
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, loc, err)
}
