package staging

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrInvalidFileType means the declared filename is not a PDF.
	ErrInvalidFileType = errors.New("only PDF files are supported")
	// ErrFileTooLarge means the upload exceeds the configured maximum.
	ErrFileTooLarge = errors.New("file too large")
)

// Area stages uploaded documents on disk for the lifetime of one request.
// Every staged file gets a unique name, so concurrent requests never contend
// on the same path.
type Area struct {
	dir     string
	maxSize int64
	logger  *slog.Logger
}

// NewArea creates the staging directory if needed.
func NewArea(dir string, maxSize int64, logger *slog.Logger) (*Area, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &Area{dir: dir, maxSize: maxSize, logger: logger}, nil
}

// MaxSize reports the configured upload limit in bytes.
func (a *Area) MaxSize() int64 { return a.maxSize }

// StagedFile is a handle to one staged upload. Release unlinks the file and
// is safe to call more than once; only the first call does work.
type StagedFile struct {
	Path string
	Size int64

	once   sync.Once
	logger *slog.Logger
}

// Release removes the staged file. A missing file is not an error.
func (f *StagedFile) Release() {
	f.once.Do(func() {
		if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			f.logger.Warn("staging.release_failed", "path", f.Path, "error", err)
		}
	})
}

// Stage validates and writes the upload to a unique path.
//
// The declared name must end in .pdf (case-insensitive) and the content must
// fit the configured maximum. The size check runs on the buffered bytes, not
// the declared size, so a lying Content-Length cannot bypass it.
func (a *Area) Stage(content []byte, declaredName string) (*StagedFile, error) {
	if declaredName == "" || !strings.HasSuffix(strings.ToLower(declaredName), ".pdf") {
		return nil, ErrInvalidFileType
	}
	if a.maxSize > 0 && int64(len(content)) > a.maxSize {
		return nil, ErrFileTooLarge
	}

	path := filepath.Join(a.dir, uuid.New().String()+".pdf")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return nil, fmt.Errorf("write staged file: %w", err)
	}
	a.logger.Debug("staging.staged", "path", path, "size", len(content))
	return &StagedFile{Path: path, Size: int64(len(content)), logger: a.logger}, nil
}
