// Package snapshot fetches Terraform state snapshots and turns them into
// deployment states.
// This is part of the Imperative Shell - handles I/O with storage backends.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrNotFound is returned when no snapshot exists at the locator.
	ErrNotFound = errors.New("snapshot not found")

	// ErrUnavailable is returned when the snapshot could not be read.
	ErrUnavailable = errors.New("snapshot unavailable")

	// ErrUnknownBackend is returned for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown snapshot backend")
)

// =============================================================================
// Source
// =============================================================================

// Locator addresses one snapshot object.
type Locator struct {
	Bucket string
	Key    string
}

func (l Locator) String() string {
	if l.Bucket == "" {
		return l.Key
	}
	return l.Bucket + "/" + l.Key
}

// ServicePlaceholder is replaced by the service name in key templates.
const ServicePlaceholder = "{service}"

// LocatorFor builds the locator of a service's snapshot.
//
// Example:
//
//	LocatorFor("tf-state", "ecs/{service}.tfstate", "helpdesk") // tf-state/ecs/helpdesk.tfstate
func LocatorFor(bucket, keyTemplate, service string) Locator {
	return Locator{
		Bucket: bucket,
		Key:    strings.ReplaceAll(keyTemplate, ServicePlaceholder, service),
	}
}

// Source reads raw snapshot documents.
type Source interface {
	// Fetch returns the snapshot at loc, or an error wrapping ErrNotFound
	// when there is none.
	Fetch(ctx context.Context, loc Locator) ([]byte, error)
}

// =============================================================================
// Configuration
// =============================================================================

// Backend names.
const (
	BackendS3    = "s3"
	BackendMinIO = "minio"
	BackendFile  = "file"
)

// Config selects and configures a snapshot backend.
type Config struct {
	// Backend is one of "s3", "minio" or "file".
	Backend string

	// Bucket holds the snapshots. For the file backend it is a directory
	// below Dir.
	Bucket string

	// KeyTemplate is the object key, with {service} substituted.
	KeyTemplate string

	// Region and Profile configure AWS. An empty AccessKeyID uses the
	// default credential chain.
	Region          string
	Profile         string
	AccessKeyID     string
	SecretAccessKey string

	// Endpoint overrides the S3 endpoint; required for minio.
	Endpoint  string
	UseSSL    bool
	PathStyle bool

	// Dir is the root directory of the file backend.
	Dir string

	// Timeout bounds a single fetch. Zero means no timeout.
	Timeout time.Duration
}

// Locator returns the locator of service's snapshot.
func (c Config) Locator(service string) Locator {
	return LocatorFor(c.Bucket, c.KeyTemplate, service)
}

// NewSource creates the source selected by cfg.Backend.
func NewSource(ctx context.Context, cfg Config, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case BackendS3:
		return NewS3Source(ctx, cfg, logger)
	case BackendMinIO:
		return NewMinIOSource(cfg, logger)
	case BackendFile:
		return NewFileSource(cfg.Dir), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
