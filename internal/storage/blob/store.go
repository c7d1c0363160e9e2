package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/echodoc/internal/interfaces"
	"github.com/ternarybob/echodoc/internal/models"
)

// Store is a filesystem-backed blob store. Blobs are laid out as
// <dir>/<jobID>/<filename>; filenames are sanitized to their base name
// so uploads cannot escape the job directory.
type Store struct {
	dir    string
	logger arbor.ILogger
}

// NewStore creates a blob store rooted at dir
func NewStore(dir string, logger arbor.ILogger) (interfaces.BlobStorage, error) {
	if dir == "" {
		return nil, models.NewValidationError("blob store directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

func (s *Store) Put(ctx context.Context, jobID, filename string, data []byte) (string, error) {
	name, err := sanitize(filename)
	if err != nil {
		return "", err
	}
	if jobID == "" {
		return "", models.NewValidationError("blob requires a job id")
	}

	jobDir := filepath.Join(s.dir, jobID)
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create blob job directory: %w", err)
	}

	path := filepath.Join(jobDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}

	s.logger.Debug().Str("job_id", jobID).Str("file", name).Int("bytes", len(data)).Msg("Blob stored")
	return path, nil
}

func (s *Store) Get(ctx context.Context, jobID, filename string) ([]byte, error) {
	name, err := sanitize(filename)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, jobID, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, models.NewNotFoundError("blob not found: %s/%s", jobID, name)
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

func sanitize(filename string) (string, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", models.NewValidationError("invalid blob filename: %q", filename)
	}
	return name, nil
}
