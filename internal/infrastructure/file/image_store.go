package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
)

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

var _ catalog.ImageStore = (*ImageStore)(nil)

// ImageStore checks product images under a media root.
type ImageStore struct {
	root string
}

func NewImageStore(root string) *ImageStore {
	return &ImageStore{root: root}
}

func (s *ImageStore) Exists(ctx context.Context, relPath string) (bool, error) {
	_ = ctx

	info, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(relPath)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat image %s: %w", relPath, err)
	}
	return !info.IsDir(), nil
}

// CountImages counts image files anywhere under the root.
func (s *ImageStore) CountImages(ctx context.Context) (int64, error) {
	var count int64
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := imageExtensions[strings.ToLower(filepath.Ext(d.Name()))]; ok {
			count++
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("count images: %w", err)
	}
	return count, nil
}
