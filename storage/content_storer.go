package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/coreybb/consumo/logging"
)

// outputDirForStorage is the default base directory for exported reports.
const outputDirForStorage = "_output"

// Format is an export file type; its value is the file extension.
type Format string

const FormatXLSX Format = "xlsx"

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ReportStorer saves an exported report.
type ReportStorer interface {
	// Store saves the content and returns the relative path where it was stored.
	Store(date, name string, content []byte, format Format) (relativeStoragePath string, err error)
}

// LocalFileStorer implements ReportStorer on the local file system.
type LocalFileStorer struct {
	basePath string
}

// NewLocalFileStorer creates a new LocalFileStorer.
// If basePath is empty, it defaults to outputDirForStorage.
func NewLocalFileStorer(basePath string) *LocalFileStorer {
	if basePath == "" {
		basePath = outputDirForStorage
	}
	return &LocalFileStorer{basePath: basePath}
}

func (lfs *LocalFileStorer) BasePath() string {
	return lfs.basePath
}

// Store writes content to <basePath>/reports/<date>/<name>.<format> and
// returns reports/<date>/<name>.<format>.
func (lfs *LocalFileStorer) Store(date, name string, content []byte, format Format) (string, error) {
	date, name = sanitize(date), sanitize(name)
	if date == "" || name == "" {
		return "", fmt.Errorf("date and name cannot be empty for storing a report")
	}
	if format == "" {
		return "", fmt.Errorf("format cannot be empty for storing a report")
	}

	relativeDir := filepath.Join("reports", date)
	fileName := name + "." + string(format)
	relativeStoragePath := filepath.Join(relativeDir, fileName)

	fullStorageDir := filepath.Join(lfs.basePath, relativeDir)
	fullStoragePath := filepath.Join(fullStorageDir, fileName)

	if err := os.MkdirAll(fullStorageDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}

	if err := os.WriteFile(fullStoragePath, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}

	logging.Debug().
		Str("path", fullStoragePath).
		Str("format", string(format)).
		Int("bytes", len(content)).
		Msg("Saved report")
	return relativeStoragePath, nil
}

// sanitize keeps a path element inside its parent directory.
func sanitize(s string) string {
	s = unsafePathChars.ReplaceAllString(s, "_")
	if s == "." || s == ".." {
		return ""
	}
	return s
}
