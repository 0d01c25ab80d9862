package catalogimport

import (
	"context"
	"fmt"

	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
	"go.uber.org/zap"
)

const (
	DefaultProgressEvery    = 1000
	DefaultCancelCheckEvery = 1000
	DefaultSubBatchEvery    = 500
)

type trackerStore interface {
	SetTotal(ctx context.Context, jobID string, total int64, checksum string) error
	UpdateProgress(ctx context.Context, jobID string, progress catalog.ImportProgress) error
	IsCancelRequested(ctx context.Context, jobID string) (bool, error)
	Complete(ctx context.Context, jobID string, summary catalog.ImportSummary) error
	Fail(ctx context.Context, jobID string, reason string, summary catalog.ImportSummary) error
	MarkCancelled(ctx context.Context, jobID string, summary catalog.ImportSummary) error
}

// Tracker keeps the in-memory progress of one job and persists it at a
// coarser interval than per row.
type Tracker struct {
	store         trackerStore
	jobID         string
	logger        *zap.Logger
	progressEvery int64

	summary      catalog.ImportSummary
	lastReported int64
}

func NewTracker(store trackerStore, jobID string, logger *zap.Logger, progressEvery int64) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if progressEvery <= 0 {
		progressEvery = DefaultProgressEvery
	}
	return &Tracker{store: store, jobID: jobID, logger: logger, progressEvery: progressEvery}
}

func (t *Tracker) Begin(ctx context.Context, total int64, checksum string) error {
	t.summary = catalog.ImportSummary{TotalRows: total}
	t.lastReported = 0
	if err := t.store.SetTotal(ctx, t.jobID, total, checksum); err != nil {
		return fmt.Errorf("set total rows: %w", err)
	}
	return nil
}

func (t *Tracker) RowSeen(row int64) {
	if row > t.summary.CurrentRow {
		t.summary.CurrentRow = row
	}
}

func (t *Tracker) RowProcessed() {
	t.summary.ProcessedRows++
}

// RowsDropped takes back rows counted as processed that were still buffered
// when the import stopped and will never be written.
func (t *Tracker) RowsDropped(n int) {
	t.summary.ProcessedRows -= int64(n)
	if t.summary.ProcessedRows < 0 {
		t.summary.ProcessedRows = 0
	}
}

func (t *Tracker) RowFailed(row int64, err error) {
	t.summary.ProcessedRows++
	t.recordError(catalog.RowError{Row: row, Reason: truncateReason(err.Error())})
}

func (t *Tracker) BatchCommitted(result catalog.BatchResult) {
	t.summary.CreatedProducts += result.Created
	t.summary.UpdatedProducts += result.Updated
	t.summary.SkippedProducts += result.Skipped
	for _, failure := range result.Failed {
		t.recordError(failure)
	}
}

func (t *Tracker) SetCreatedEntities(brands, categories int64) {
	t.summary.CreatedBrands = brands
	t.summary.CreatedCategories = categories
}

// Checkpoint persists progress when force is set or enough rows passed.
func (t *Tracker) Checkpoint(ctx context.Context, force bool) error {
	if !force && t.summary.CurrentRow-t.lastReported < t.progressEvery {
		return nil
	}
	if err := t.store.UpdateProgress(ctx, t.jobID, t.summary.ImportProgress); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	t.lastReported = t.summary.CurrentRow

	t.logger.Info("import progress",
		zap.String("job_id", t.jobID),
		zap.Int64("current_row", t.summary.CurrentRow),
		zap.Int64("total_rows", t.summary.TotalRows),
		zap.Int("percent", catalog.ProgressPercent(t.summary.CurrentRow, t.summary.TotalRows)),
		zap.Int64("created", t.summary.CreatedProducts),
		zap.Int64("errors", t.summary.ErrorCount),
	)
	return nil
}

// CancelRequested polls the job's cancellation flag. Read failures are
// logged and treated as "not yet".
func (t *Tracker) CancelRequested(ctx context.Context) bool {
	cancelled, err := t.store.IsCancelRequested(ctx, t.jobID)
	if err != nil {
		t.logger.Warn("cancel poll failed", zap.String("job_id", t.jobID), zap.Error(err))
		return false
	}
	return cancelled
}

func (t *Tracker) Complete(ctx context.Context) error {
	return t.store.Complete(ctx, t.jobID, t.summary)
}

func (t *Tracker) Fail(ctx context.Context, cause error) error {
	return t.store.Fail(ctx, t.jobID, truncateReason(cause.Error()), t.summary)
}

func (t *Tracker) Cancel(ctx context.Context) error {
	return t.store.MarkCancelled(ctx, t.jobID, t.summary)
}

func (t *Tracker) Summary() catalog.ImportSummary {
	return t.summary
}

func (t *Tracker) recordError(rowErr catalog.RowError) {
	t.summary.ErrorCount++
	if len(t.summary.RowErrors) < catalog.MaxStoredRowErrors {
		t.summary.RowErrors = append(t.summary.RowErrors, rowErr)
	}
}
