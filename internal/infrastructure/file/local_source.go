package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mohammadpnp/catalog-import/internal/application/catalogimport"
	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
)

// LocalSource opens import files from the local filesystem. Relative paths
// resolve against BaseDir.
type LocalSource struct {
	BaseDir string
}

func NewLocalSource(baseDir string) *LocalSource {
	if baseDir == "" {
		baseDir = "."
	}
	return &LocalSource{BaseDir: baseDir}
}

func (s *LocalSource) Open(ctx context.Context, sourcePath string) (io.ReadCloser, error) {
	_ = ctx

	path := s.resolve(sourcePath)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file %s: %w", path, err)
	}
	return file, nil
}

// OpenRecords opens a structured export. DBF text fields are decoded with
// encodingName, falling back to cp1251.
func (s *LocalSource) OpenRecords(ctx context.Context, sourcePath string, format catalog.SourceFormat, encodingName string) (catalogimport.RecordReader, error) {
	_ = ctx

	path := s.resolve(sourcePath)
	switch format {
	case catalog.FormatDBF:
		r, err := OpenDBF(path, encodingName)
		if err != nil {
			return nil, err
		}
		return r, nil
	case catalog.FormatXLSX:
		r, err := OpenXLSX(path)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, fmt.Errorf("%w: %s has no record reader", catalogimport.ErrInvalidImportSource, format)
}

func (s *LocalSource) resolve(sourcePath string) string {
	if filepath.IsAbs(sourcePath) {
		return sourcePath
	}
	return filepath.Join(s.BaseDir, sourcePath)
}
