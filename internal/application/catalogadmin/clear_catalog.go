package catalogadmin

import (
	"context"
	"fmt"

	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
	"go.uber.org/zap"
)

type clearStore interface {
	ClearCatalog(ctx context.Context, keepCategories, keepBrands bool) (catalog.ClearResult, error)
}

type activeJobReader interface {
	ActiveJob(ctx context.Context) (*catalog.ImportJob, error)
}

type ClearCatalogInput struct {
	KeepCategories bool
	KeepBrands     bool
	Confirm        bool
}

type ClearCatalog interface {
	Execute(ctx context.Context, in ClearCatalogInput) (catalog.ClearResult, error)
}

type clearCatalog struct {
	store  clearStore
	jobs   activeJobReader
	logger *zap.Logger
}

func NewClearCatalog(store clearStore, jobs activeJobReader, logger *zap.Logger) ClearCatalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &clearCatalog{store: store, jobs: jobs, logger: logger}
}

// Execute deletes products and, unless kept, brands and categories.
// It refuses to run while an import is processing.
func (uc *clearCatalog) Execute(ctx context.Context, in ClearCatalogInput) (catalog.ClearResult, error) {
	if !in.Confirm {
		return catalog.ClearResult{}, ErrClearNotConfirmed
	}

	active, err := uc.jobs.ActiveJob(ctx)
	if err != nil {
		return catalog.ClearResult{}, fmt.Errorf("check active import: %w", err)
	}
	if active != nil {
		return catalog.ClearResult{}, fmt.Errorf("%w: job %s", catalog.ErrImportAlreadyRunning, active.ID)
	}

	result, err := uc.store.ClearCatalog(ctx, in.KeepCategories, in.KeepBrands)
	if err != nil {
		return catalog.ClearResult{}, fmt.Errorf("clear catalog: %w", err)
	}

	uc.logger.Info("catalog cleared",
		zap.Int64("products", result.Products),
		zap.Int64("brands", result.Brands),
		zap.Int64("categories", result.Categories),
	)
	return result, nil
}
