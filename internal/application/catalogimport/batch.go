package catalogimport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts  = 3
	DefaultRetryBackoff = 500 * time.Millisecond
)

type productWriter interface {
	WriteBatch(ctx context.Context, jobID string, batch []catalog.BatchItem, transactional bool) (catalog.BatchResult, error)
	SaveProduct(ctx context.Context, item catalog.BatchItem) (bool, error)
}

type BatchEngineConfig struct {
	MaxAttempts  int
	RetryBackoff time.Duration
}

// BatchEngine persists resolved products batch by batch. Lock contention is
// retried with doubling backoff; any other failure degrades to one-by-one saves.
type BatchEngine struct {
	writer productWriter
	logger *zap.Logger
	cfg    BatchEngineConfig
}

func NewBatchEngine(writer productWriter, logger *zap.Logger, cfg BatchEngineConfig) *BatchEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	return &BatchEngine{writer: writer, logger: logger, cfg: cfg}
}

func (e *BatchEngine) Flush(ctx context.Context, jobID string, batch []catalog.BatchItem, transactional bool) (catalog.BatchResult, error) {
	if len(batch) == 0 {
		return catalog.BatchResult{}, nil
	}

	delay := e.cfg.RetryBackoff
	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		result, err := e.writer.WriteBatch(ctx, jobID, batch, transactional)
		if err == nil {
			e.logger.Debug("batch written",
				zap.Int("size", len(batch)),
				zap.Int64("created", result.Created),
				zap.Int64("updated", result.Updated),
				zap.Int64("skipped", result.Skipped),
			)
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return catalog.BatchResult{}, ctxErr
		}

		if !errors.Is(err, catalog.ErrStoreBusy) {
			e.logger.Error("batch write failed, saving one by one", zap.Int("size", len(batch)), zap.Error(err))
			return e.saveOneByOne(ctx, batch), nil
		}

		lastErr = err
		if attempt == e.cfg.MaxAttempts {
			break
		}
		e.logger.Warn("store busy, retrying batch",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", e.cfg.MaxAttempts),
			zap.Duration("delay", delay),
		)
		if !sleepWithContext(ctx, delay) {
			return catalog.BatchResult{}, ctx.Err()
		}
		delay *= 2
	}

	return catalog.BatchResult{}, fmt.Errorf("write batch after %d attempts: %w", e.cfg.MaxAttempts, lastErr)
}

func (e *BatchEngine) saveOneByOne(ctx context.Context, batch []catalog.BatchItem) catalog.BatchResult {
	var result catalog.BatchResult
	for _, item := range batch {
		applied, err := e.writer.SaveProduct(ctx, item)
		if err != nil {
			e.logger.Error("product save failed",
				zap.Int64("row", item.Row),
				zap.String("tmp_id", item.Product.TmpID),
				zap.Error(err),
			)
			result.Failed = append(result.Failed, catalog.RowError{
				Row:    item.Row,
				Reason: truncateReason(fmt.Sprintf("save product %s: %v", item.Product.TmpID, err)),
			})
			continue
		}

		switch {
		case !applied:
			result.Skipped++
		case item.Update:
			result.Updated++
		default:
			result.Created++
		}
	}
	return result
}
