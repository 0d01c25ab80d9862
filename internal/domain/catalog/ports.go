package catalog

import (
	"context"
	"time"
)

type ImportJobRepository interface {
	Create(ctx context.Context, job ImportJob) (ImportJob, error)
	Get(ctx context.Context, jobID string) (ImportJob, error)
	ActiveJob(ctx context.Context) (*ImportJob, error)
	TryStart(ctx context.Context, jobID string) error
	SetTotal(ctx context.Context, jobID string, total int64, checksum string) error
	UpdateProgress(ctx context.Context, jobID string, progress ImportProgress) error
	IsCancelRequested(ctx context.Context, jobID string) (bool, error)
	RequestCancel(ctx context.Context, jobID string, at time.Time) (JobStatus, error)
	Complete(ctx context.Context, jobID string, summary ImportSummary) error
	Fail(ctx context.Context, jobID string, reason string, summary ImportSummary) error
	MarkCancelled(ctx context.Context, jobID string, summary ImportSummary) error
	RecoverInterrupted(ctx context.Context, reason string) (int64, error)
}

// ProductKeys are the identifiers already taken in the products table.
type ProductKeys struct {
	TmpIDs []string
	Slugs  []string
}

type CatalogStore interface {
	LoadBrands(ctx context.Context) ([]Brand, error)
	LoadCategories(ctx context.Context) ([]Category, error)
	LoadProductKeys(ctx context.Context) (ProductKeys, error)
	GetOrCreateBrand(ctx context.Context, brand Brand) (Brand, bool, error)
	GetOrCreateCategory(ctx context.Context, category Category) (Category, bool, error)
	DeleteProducts(ctx context.Context) (int64, error)
}

// BatchItem is one resolved product with the source row it came from.
type BatchItem struct {
	Row     int64
	Product Product
	// Update rewrites the stored product with the same TmpID instead of inserting.
	Update bool
}

type ProductWriter interface {
	WriteBatch(ctx context.Context, jobID string, batch []BatchItem, transactional bool) (BatchResult, error)
	SaveProduct(ctx context.Context, item BatchItem) (bool, error)
}

// CatalogMaintenance covers the operator commands that run outside imports.
type CatalogMaintenance interface {
	LoadCategories(ctx context.Context) ([]Category, error)
	ClearCatalog(ctx context.Context, keepCategories, keepBrands bool) (ClearResult, error)
	ClearFeatured(ctx context.Context) (int64, error)
	FeatureRandomProducts(ctx context.Context, count int, brandFilter string) ([]Product, error)
	ProductImageRefs(ctx context.Context, afterID int64, limit int) ([]ProductImageRef, error)
}

type ImageStore interface {
	Exists(ctx context.Context, relPath string) (bool, error)
	CountImages(ctx context.Context) (int64, error)
}
