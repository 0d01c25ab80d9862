package catalogadmin

import (
	"context"
	"fmt"
	"math"

	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
	"go.uber.org/zap"
)

const (
	maxMissingSamples = 10
	imageRefPageSize  = 1000
)

type Rating string

const (
	RatingExcellent Rating = "excellent"
	RatingGood      Rating = "good"
	RatingAverage   Rating = "average"
	RatingLow       Rating = "low"
)

func RateCoverage(percent float64) Rating {
	switch {
	case percent >= 80:
		return RatingExcellent
	case percent >= 60:
		return RatingGood
	case percent >= 40:
		return RatingAverage
	}
	return RatingLow
}

type imageCatalog interface {
	LoadCategories(ctx context.Context) ([]catalog.Category, error)
	ProductImageRefs(ctx context.Context, afterID int64, limit int) ([]catalog.ProductImageRef, error)
}

type MissingImage struct {
	TmpID    string `json:"tmp_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Path     string `json:"path"`
}

type ImageCoverageOutput struct {
	TotalProducts   int64          `json:"total_products"`
	WithImages      int64          `json:"with_images"`
	WithoutImages   int64          `json:"without_images"`
	CoveragePercent float64        `json:"coverage_percent"`
	Rating          Rating         `json:"rating"`
	Missing         []MissingImage `json:"missing"`
	ImageFiles      int64          `json:"image_files"`
	OrphanedFiles   int64          `json:"orphaned_files"`
}

type ImageCoverage interface {
	Execute(ctx context.Context) (ImageCoverageOutput, error)
}

type imageCoverage struct {
	catalog imageCatalog
	images  catalog.ImageStore
	logger  *zap.Logger
}

func NewImageCoverage(store imageCatalog, images catalog.ImageStore, logger *zap.Logger) ImageCoverage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &imageCoverage{catalog: store, images: images, logger: logger}
}

// Execute walks every product and checks for a file at its image path.
func (uc *imageCoverage) Execute(ctx context.Context) (ImageCoverageOutput, error) {
	categories, err := uc.catalog.LoadCategories(ctx)
	if err != nil {
		return ImageCoverageOutput{}, fmt.Errorf("load categories: %w", err)
	}
	byID := make(map[int64]catalog.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	out := ImageCoverageOutput{Missing: []MissingImage{}}
	var afterID int64
	for {
		refs, err := uc.catalog.ProductImageRefs(ctx, afterID, imageRefPageSize)
		if err != nil {
			return ImageCoverageOutput{}, fmt.Errorf("list products after %d: %w", afterID, err)
		}
		if len(refs) == 0 {
			break
		}

		for _, ref := range refs {
			afterID = ref.ID
			out.TotalProducts++

			rootSlug := catalog.UncategorizedSlug
			if category, ok := byID[ref.CategoryID]; ok {
				rootSlug = catalog.RootCategory(category, byID).Slug
			}
			path := catalog.ImagePath(rootSlug, ref.TmpID)

			exists, err := uc.images.Exists(ctx, path)
			if err != nil {
				return ImageCoverageOutput{}, fmt.Errorf("check image %s: %w", path, err)
			}
			if exists {
				out.WithImages++
				continue
			}

			out.WithoutImages++
			if len(out.Missing) < maxMissingSamples {
				out.Missing = append(out.Missing, MissingImage{
					TmpID:    ref.TmpID,
					Name:     catalog.Truncate(ref.Name, 50),
					Category: rootSlug,
					Path:     path,
				})
			}
		}

		if len(refs) < imageRefPageSize {
			break
		}
	}

	if out.TotalProducts > 0 {
		pct := float64(out.WithImages) / float64(out.TotalProducts) * 100
		out.CoveragePercent = math.Round(pct*10) / 10
	}
	out.Rating = RateCoverage(out.CoveragePercent)

	files, err := uc.images.CountImages(ctx)
	if err != nil {
		uc.logger.Warn("image directory scan failed", zap.Error(err))
	} else {
		out.ImageFiles = files
		if files > out.WithImages {
			out.OrphanedFiles = files - out.WithImages
		}
	}

	uc.logger.Info("image coverage computed",
		zap.Int64("products", out.TotalProducts),
		zap.Int64("with_images", out.WithImages),
		zap.Float64("coverage_percent", out.CoveragePercent),
		zap.String("rating", string(out.Rating)),
	)
	return out, nil
}
