package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithy "github.com/aws/smithy-go"
)

// objectGetter is the part of the S3 client the source uses.
type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads snapshots from Amazon S3, where Terraform's s3 backend
// keeps them.
type S3Source struct {
	client objectGetter
	logger *slog.Logger
}

// NewS3Source creates an S3 source. Static credentials are used when
// cfg.AccessKeyID is set, otherwise the default AWS credential chain.
func NewS3Source(ctx context.Context, cfg Config, logger *slog.Logger) (*S3Source, error) {
	if logger == nil {
		logger = slog.Default()
	}

	applyEndpoint := func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	}

	var client *s3.Client
	if cfg.AccessKeyID != "" {
		opts := s3.Options{
			Region:      cfg.Region,
			Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		}
		applyEndpoint(&opts)
		client = s3.New(opts)
	} else {
		loadOpts := []func(*awsconfig.LoadOptions) error{}
		if cfg.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
		}
		if cfg.Profile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client = s3.NewFromConfig(awsCfg, applyEndpoint)
	}

	return newS3Source(client, logger), nil
}

func newS3Source(client objectGetter, logger *slog.Logger) *S3Source {
	return &S3Source{
		client: client,
		logger: logger.With("backend", BackendS3),
	}
}

// Fetch downloads the snapshot object.
func (s *S3Source) Fetch(ctx context.Context, loc Locator) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%w: s3://%s", ErrNotFound, loc)
		}
		return nil, fmt.Errorf("%w: get s3://%s: %v", ErrUnavailable, loc, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read s3://%s: %v", ErrUnavailable, loc, err)
	}

	s.logger.Debug("fetched snapshot", "locator", loc.String(), "bytes", len(data))
	return data, nil
}

func isS3NotFound(err error) bool {
	var noSuchKey *s3types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var noSuchBucket *s3types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return true
		}
	}
	return false
}
