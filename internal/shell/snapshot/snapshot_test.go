package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithy "github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/bgplan/internal/core/domain"
)

// =============================================================================
// Test Helpers
// =============================================================================

var testLocator = Locator{Bucket: "tf-state", Key: "ecs/helpdesk.tfstate"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "tf-state", "ecs", "helpdesk.tfstate"))
	require.NoError(t, err)
	return data
}

// fakeSource returns canned data and counts fetches.
type fakeSource struct {
	data  []byte
	err   error
	calls int
	locs  []Locator
	delay time.Duration
}

func (f *fakeSource) Fetch(ctx context.Context, loc Locator) ([]byte, error) {
	f.calls++
	f.locs = append(f.locs, loc)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		}
	}
	return f.data, f.err
}

type fakeS3 struct {
	body  string
	err   error
	input *s3.GetObjectInput
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

// =============================================================================
// Locator Tests
// =============================================================================

func TestLocatorFor(t *testing.T) {
	loc := LocatorFor("tf-state", "ecs/{service}.tfstate", "helpdesk")
	assert.Equal(t, "tf-state", loc.Bucket)
	assert.Equal(t, "ecs/helpdesk.tfstate", loc.Key)
	assert.Equal(t, "tf-state/ecs/helpdesk.tfstate", loc.String())

	assert.Equal(t, "terraform.tfstate", LocatorFor("", "terraform.tfstate", "x").String())
}

func TestConfigLocator(t *testing.T) {
	cfg := Config{Bucket: "b", KeyTemplate: "{service}/{service}.tfstate"}
	assert.Equal(t, Locator{Bucket: "b", Key: "billing/billing.tfstate"}, cfg.Locator("billing"))
}

func TestNewSource(t *testing.T) {
	ctx := context.Background()

	src, err := NewSource(ctx, Config{Backend: BackendFile, Dir: "testdata"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileSource{}, src)

	src, err = NewSource(ctx, Config{
		Backend:         BackendS3,
		Region:          "us-east-1",
		AccessKeyID:     "AKIATEST",
		SecretAccessKey: "secret",
	}, nil)
	require.NoError(t, err)
	assert.IsType(t, &S3Source{}, src)

	src, err = NewSource(ctx, Config{
		Backend:         BackendMinIO,
		Endpoint:        "localhost:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
	}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MinIOSource{}, src)

	_, err = NewSource(ctx, Config{Backend: "gcs"}, nil)
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestNewMinIOSource_RequiresEndpoint(t *testing.T) {
	_, err := NewMinIOSource(Config{Backend: BackendMinIO}, nil)
	assert.Error(t, err)
}

// =============================================================================
// File Source Tests
// =============================================================================

func TestFileSource_Fetch(t *testing.T) {
	src := NewFileSource("testdata")

	data, err := src.Fetch(context.Background(), testLocator)
	require.NoError(t, err)
	assert.Contains(t, string(data), "helpdesk_active")
}

func TestFileSource_NotFound(t *testing.T) {
	src := NewFileSource(t.TempDir())

	_, err := src.Fetch(context.Background(), testLocator)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileSource_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileSource("testdata").Fetch(ctx, testLocator)
	assert.ErrorIs(t, err, ErrUnavailable)
}

// =============================================================================
// S3 Source Tests
// =============================================================================

func TestS3Source_Fetch(t *testing.T) {
	client := &fakeS3{body: `{"version": 4}`}
	src := newS3Source(client, discardLogger())

	data, err := src.Fetch(context.Background(), testLocator)
	require.NoError(t, err)
	assert.Equal(t, `{"version": 4}`, string(data))
	assert.Equal(t, "tf-state", aws.ToString(client.input.Bucket))
	assert.Equal(t, "ecs/helpdesk.tfstate", aws.ToString(client.input.Key))
}

func TestS3Source_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no such key", &s3types.NoSuchKey{}, ErrNotFound},
		{"no such bucket", &s3types.NoSuchBucket{}, ErrNotFound},
		{"head style not found", &smithy.GenericAPIError{Code: "NotFound"}, ErrNotFound},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, ErrUnavailable},
		{"network", errors.New("dial tcp: connection refused"), ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newS3Source(&fakeS3{err: tt.err}, discardLogger())
			_, err := src.Fetch(context.Background(), testLocator)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// =============================================================================
// Loader Tests
// =============================================================================

func TestLoader_Load(t *testing.T) {
	src := &fakeSource{data: readFixture(t)}
	loader := NewLoader(src, time.Second, discardLogger())

	res := loader.Load(context.Background(), "helpdesk", testLocator)

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, []Locator{testLocator}, src.locs)
	assert.True(t, res.Found)
	assert.Equal(t, int64(7), res.Serial)
	assert.Equal(t, "5d1c7a52-2f0e-4a8b-8c1e-3b9e0f6d4c20", res.Lineage)
	assert.Empty(t, res.Problems)

	assert.Equal(t, domain.SlotA, res.State.Stages.Active)
	assert.Equal(t, domain.SlotNone, res.State.Stages.Inactive)
	assert.Equal(t, strings.Repeat("a", 64), res.State.Slots.A.DockerImageDigest)
	assert.Equal(t, "arn:aws:ecs:us-east-1:123456789012:task-definition/helpdesk:1", res.State.Slots.A.TaskDefinitionRef)
	assert.NoError(t, res.State.Check())
}

func TestLoader_OtherServiceIsEmpty(t *testing.T) {
	src := &fakeSource{data: readFixture(t)}
	res := NewLoader(src, 0, discardLogger()).Load(context.Background(), "billing", testLocator)

	assert.True(t, res.Found)
	assert.Equal(t, domain.EmptyState(), res.State)
}

func TestLoader_FailsOpen(t *testing.T) {
	tests := []struct {
		name string
		src  *fakeSource
	}{
		{"not found", &fakeSource{err: fmt.Errorf("%w: x", ErrNotFound)}},
		{"unavailable", &fakeSource{err: fmt.Errorf("%w: timeout", ErrUnavailable)}},
		{"unparsable", &fakeSource{data: []byte("not json")}},
		{"empty document", &fakeSource{data: []byte("  ")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewLoader(tt.src, 0, discardLogger()).Load(context.Background(), "helpdesk", testLocator)

			assert.Equal(t, 1, tt.src.calls)
			assert.False(t, res.Found)
			assert.Equal(t, domain.EmptyState(), res.State)
		})
	}
}

func TestLoader_Timeout(t *testing.T) {
	src := &fakeSource{data: readFixture(t), delay: time.Second}
	loader := NewLoader(src, 10*time.Millisecond, discardLogger())

	res := loader.Load(context.Background(), "helpdesk", testLocator)

	assert.Equal(t, 1, src.calls)
	assert.False(t, res.Found)
	assert.Equal(t, domain.EmptyState(), res.State)
}

func TestLoader_ReportsProblems(t *testing.T) {
	doc := `{"version": 4, "resources": [
		{"type": "aws_ecs_task_definition", "name": "helpdesk_b", "instances": []},
		{"type": "aws_lb_listener", "name": "helpdesk_active", "instances": [
			{"attributes": {}, "dependencies": ["aws_lb_target_group.helpdesk_b"]}
		]}
	]}`
	src := &fakeSource{data: []byte(doc)}

	res := NewLoader(src, 0, discardLogger()).Load(context.Background(), "helpdesk", testLocator)

	assert.True(t, res.Found)
	require.Len(t, res.Problems, 2)
	assert.Equal(t, domain.SlotNone, res.State.Stages.Active)
	assert.NoError(t, res.State.Check())
}
