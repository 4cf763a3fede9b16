package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileSource reads snapshots from the local filesystem, e.g. a local
// Terraform backend or a state pulled by CI.
// The file path is {dir}/{bucket}/{key}.
type FileSource struct {
	dir string
}

// NewFileSource creates a file source rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Path returns the file a locator maps to.
func (s *FileSource) Path(loc Locator) string {
	return filepath.Join(s.dir, loc.Bucket, loc.Key)
}

// Fetch reads the snapshot file.
func (s *FileSource) Fetch(ctx context.Context, loc Locator) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	path := s.Path(loc)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return data, nil
}
