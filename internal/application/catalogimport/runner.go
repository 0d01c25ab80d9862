package catalogimport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxReasonLength = 1000

type catalogStore interface {
	resolverStore
	LoadProductKeys(ctx context.Context) (catalog.ProductKeys, error)
	DeleteProducts(ctx context.Context) (int64, error)
}

// CacheInvalidator drops storefront caches once an import changed the catalog.
type CacheInvalidator interface {
	InvalidateCatalog(ctx context.Context) error
}

type RunnerConfig struct {
	SampleSize       int
	ProgressEvery    int64
	CancelCheckEvery int64
	SubBatchEvery    int64
	Batch            BatchEngineConfig
}

// Runner drives one import job through a single pass over its source file.
type Runner struct {
	jobs    trackerStore
	catalog catalogStore
	source  ImportSource
	records RecordSource
	engine  *BatchEngine
	cache   CacheInvalidator
	logger  *zap.Logger
	cfg     RunnerConfig

	detector *Detector
}

func NewRunner(
	jobs trackerStore,
	store catalogStore,
	source ImportSource,
	records RecordSource,
	writer productWriter,
	cache CacheInvalidator,
	logger *zap.Logger,
	cfg RunnerConfig,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = DefaultSampleSize
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = DefaultProgressEvery
	}
	if cfg.CancelCheckEvery <= 0 {
		cfg.CancelCheckEvery = DefaultCancelCheckEvery
	}
	if cfg.SubBatchEvery <= 0 {
		cfg.SubBatchEvery = DefaultSubBatchEvery
	}

	return &Runner{
		jobs:     jobs,
		catalog:  store,
		source:   source,
		records:  records,
		engine:   NewBatchEngine(writer, logger, cfg.Batch),
		cache:    cache,
		logger:   logger,
		cfg:      cfg,
		detector: NewDetector(logger),
	}
}

// Run processes a job already moved to processing. Failures are written to
// the job record; the returned error only reports them to the caller.
func (r *Runner) Run(ctx context.Context, job catalog.ImportJob) (catalog.ImportSummary, error) {
	log := r.logger.With(zap.String("job_id", job.ID), zap.String("source", job.SourcePath))
	tracker := NewTracker(r.jobs, job.ID, log, r.cfg.ProgressEvery)

	opts, err := job.Options.Normalize()
	if err != nil {
		return r.fail(ctx, tracker, log, fmt.Errorf("invalid options: %w", err))
	}

	stream, total, checksum, err := r.openStream(ctx, job.SourcePath, opts, log)
	if err != nil {
		return r.fail(ctx, tracker, log, fmt.Errorf("prepare source: %w", err))
	}
	defer stream.Close()

	total = windowTotal(total, opts.SkipRows, opts.TestLines)
	if err := tracker.Begin(ctx, total, checksum); err != nil {
		return r.fail(ctx, tracker, log, err)
	}
	log.Info("import started",
		zap.Int64("total_rows", total),
		zap.String("checksum", checksum),
		zap.Int("batch_size", opts.BatchSize),
		zap.String("mode", string(opts.Mode)),
	)

	if opts.ClearExisting {
		deleted, err := r.catalog.DeleteProducts(ctx)
		if err != nil {
			return r.fail(ctx, tracker, log, fmt.Errorf("clear existing products: %w", err))
		}
		log.Info("existing products cleared", zap.Int64("deleted", deleted))
	}

	session, err := NewResolverSession(ctx, r.catalog, log)
	if err != nil {
		return r.fail(ctx, tracker, log, err)
	}
	keys, err := r.catalog.LoadProductKeys(ctx)
	if err != nil {
		return r.fail(ctx, tracker, log, fmt.Errorf("load product keys: %w", err))
	}
	log.Info("product keys loaded", zap.Int("tmp_ids", len(keys.TmpIDs)), zap.Int("slugs", len(keys.Slugs)))

	rows := rowResolver{
		session:   session,
		allocator: NewKeyAllocator(keys, opts.Mode),
		sanitizer: NewSanitizer(opts.Sanitize),
		logger:    log,
	}

	batch := make([]catalog.BatchItem, 0, opts.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		result, err := r.engine.Flush(ctx, job.ID, batch, !opts.DisableTransactions)
		if err != nil {
			return err
		}
		tracker.BatchCommitted(result)
		batch = batch[:0]
		return tracker.Checkpoint(ctx, true)
	}

	var rowNum int64
	for {
		if err := ctx.Err(); err != nil {
			return r.fail(ctx, tracker, log, fmt.Errorf("import interrupted: %w", err))
		}

		source, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return r.fail(ctx, tracker, log, fmt.Errorf("read row %d: %w", rowNum+1, err))
		}

		rowNum++
		if rowNum <= opts.SkipRows {
			continue
		}
		if opts.TestLines > 0 && rowNum > opts.TestLines {
			log.Info("test row limit reached", zap.Int64("test_lines", opts.TestLines))
			break
		}

		position := rowNum - opts.SkipRows
		tracker.RowSeen(position)

		item, err := rows.resolve(ctx, rowNum, source)
		if err != nil {
			tracker.RowFailed(rowNum, err)
			if tracker.Summary().ErrorCount <= catalog.MaxStoredRowErrors {
				log.Error("row skipped", zap.Int64("row", rowNum), zap.Error(err))
			}
		} else {
			batch = append(batch, item)
			tracker.RowProcessed()
		}

		full := len(batch) >= opts.BatchSize
		if full || r.pollDue(position, len(batch), opts.BatchSize) {
			if tracker.CancelRequested(ctx) {
				return r.cancel(ctx, tracker, log, len(batch))
			}
		}
		if full {
			if err := flush(); err != nil {
				return r.fail(ctx, tracker, log, fmt.Errorf("flush batch at row %d: %w", rowNum, err))
			}
			continue
		}

		if err := tracker.Checkpoint(ctx, false); err != nil {
			log.Warn("progress update failed", zap.Error(err))
		}
	}

	if len(batch) > 0 && tracker.CancelRequested(ctx) {
		return r.cancel(ctx, tracker, log, len(batch))
	}
	if err := flush(); err != nil {
		return r.fail(ctx, tracker, log, fmt.Errorf("flush last batch: %w", err))
	}

	tracker.SetCreatedEntities(session.Created())
	if err := tracker.Checkpoint(ctx, true); err != nil {
		return r.fail(ctx, tracker, log, err)
	}
	if err := tracker.Complete(ctx); err != nil {
		return r.fail(ctx, tracker, log, fmt.Errorf("complete job: %w", err))
	}

	summary := tracker.Summary()
	log.Info("import completed",
		zap.Int64("processed", summary.ProcessedRows),
		zap.Int64("created", summary.CreatedProducts),
		zap.Int64("updated", summary.UpdatedProducts),
		zap.Int64("skipped", summary.SkippedProducts),
		zap.Int64("brands_created", summary.CreatedBrands),
		zap.Int64("categories_created", summary.CreatedCategories),
		zap.Int64("errors", summary.ErrorCount),
	)
	r.invalidateCache(ctx, log, summary)
	return summary, nil
}

func (r *Runner) openStream(ctx context.Context, path string, opts catalog.ImportOptions, log *zap.Logger) (rowStream, int64, string, error) {
	format := catalog.FormatForPath(path)
	if format != catalog.FormatDelimited {
		return r.openRecords(ctx, path, format, opts)
	}

	sample, err := r.readSample(ctx, path)
	if err != nil {
		return nil, 0, "", err
	}
	detection, err := r.detector.Detect(sample, opts.Encoding, opts.Delimiter)
	if err != nil {
		return nil, 0, "", err
	}
	log.Info("source detected",
		zap.String("encoding", detection.Encoding),
		zap.String("delimiter", detection.Delimiter),
		zap.String("proposed", detection.Proposed),
		zap.Int("confidence", detection.Confidence),
	)

	counter, err := r.source.Open(ctx, path)
	if err != nil {
		return nil, 0, "", err
	}
	total, checksum, err := scanDelimited(counter)
	counter.Close()
	if err != nil {
		return nil, 0, "", fmt.Errorf("count rows: %w", err)
	}

	rc, err := r.source.Open(ctx, path)
	if err != nil {
		return nil, 0, "", err
	}
	stream, err := newDelimitedStream(rc, detection.Encoding, detection.Delimiter)
	if err != nil {
		rc.Close()
		return nil, 0, "", err
	}
	return stream, total, checksum, nil
}

func (r *Runner) openRecords(ctx context.Context, path string, format catalog.SourceFormat, opts catalog.ImportOptions) (rowStream, int64, string, error) {
	if r.records == nil {
		return nil, 0, "", fmt.Errorf("%w: %s sources are not supported", ErrInvalidImportSource, format)
	}

	raw, err := r.source.Open(ctx, path)
	if err != nil {
		return nil, 0, "", err
	}
	checksum, err := checksumReader(raw)
	raw.Close()
	if err != nil {
		return nil, 0, "", fmt.Errorf("checksum source: %w", err)
	}

	records, err := r.records.OpenRecords(ctx, path, format, opts.Encoding)
	if err != nil {
		return nil, 0, "", fmt.Errorf("open %s records: %w", format, err)
	}
	return recordStream{records: records}, records.Total(), checksum, nil
}

func (r *Runner) readSample(ctx context.Context, path string) ([]byte, error) {
	rc, err := r.source.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	sample, err := io.ReadAll(io.LimitReader(rc, int64(r.cfg.SampleSize)))
	if err != nil {
		return nil, fmt.Errorf("read sample: %w", err)
	}
	return sample, nil
}

func (r *Runner) pollDue(position int64, batchLen, batchSize int) bool {
	if position%r.cfg.CancelCheckEvery == 0 {
		return true
	}
	sub := int(r.cfg.SubBatchEvery)
	return batchSize > sub && batchLen > 0 && batchLen%sub == 0
}

func (r *Runner) fail(ctx context.Context, tracker *Tracker, log *zap.Logger, cause error) (catalog.ImportSummary, error) {
	log.Error("import failed", zap.Error(cause))
	if err := tracker.Fail(context.WithoutCancel(ctx), cause); err != nil {
		return tracker.Summary(), fmt.Errorf("%v; mark failed: %w", cause, err)
	}
	return tracker.Summary(), cause
}

func (r *Runner) cancel(ctx context.Context, tracker *Tracker, log *zap.Logger, dropped int) (catalog.ImportSummary, error) {
	log.Warn("import cancelled by operator",
		zap.Int64("current_row", tracker.Summary().CurrentRow),
		zap.Int("unflushed_rows", dropped),
	)
	tracker.RowsDropped(dropped)
	if err := tracker.Cancel(ctx); err != nil {
		return tracker.Summary(), fmt.Errorf("mark cancelled: %w", err)
	}
	summary := tracker.Summary()
	r.invalidateCache(ctx, log, summary)
	return summary, nil
}

func (r *Runner) invalidateCache(ctx context.Context, log *zap.Logger, summary catalog.ImportSummary) {
	if r.cache == nil || summary.CreatedProducts+summary.UpdatedProducts == 0 {
		return
	}
	if err := r.cache.InvalidateCatalog(ctx); err != nil {
		log.Error("catalog cache invalidation failed", zap.Error(err))
	}
}

type rowResolver struct {
	session   *ResolverSession
	allocator *KeyAllocator
	sanitizer Sanitizer
	logger    *zap.Logger
}

func (rr rowResolver) resolve(ctx context.Context, rowNum int64, source catalog.SourceRow) (catalog.BatchItem, error) {
	row, err := rr.sanitizer.Apply(source)
	if err != nil {
		return catalog.BatchItem{}, err
	}

	tmpID := row.TmpID
	if tmpID == "" {
		tmpID = fmt.Sprintf("auto-%d", rowNum)
		rr.logger.Warn("empty TMP_ID replaced", zap.Int64("row", rowNum), zap.String("tmp_id", tmpID))
	}
	name := row.Name
	if name == "" {
		name = catalog.PlaceholderName
		rr.logger.Warn("empty NAME replaced", zap.Int64("row", rowNum))
	}

	brand, ok, err := rr.session.Brand(ctx, row.Producer)
	if err != nil {
		return catalog.BatchItem{}, err
	}
	if !ok {
		rr.logger.Debug("row without producer", zap.Int64("row", rowNum))
		if brand, err = rr.session.UnknownBrand(ctx); err != nil {
			return catalog.BatchItem{}, err
		}
	}

	category, ok, err := rr.session.Category(ctx, row.SectionID)
	if err != nil {
		return catalog.BatchItem{}, err
	}
	if !ok {
		rr.logger.Debug("row without section", zap.Int64("row", rowNum))
		if category, err = rr.session.Uncategorized(ctx); err != nil {
			return catalog.BatchItem{}, err
		}
	}

	assigned, update := rr.allocator.AllocateID(tmpID)
	if assigned != tmpID {
		rr.logger.Warn("duplicate TMP_ID remapped",
			zap.Int64("row", rowNum),
			zap.String("tmp_id", tmpID),
			zap.String("assigned", assigned),
		)
	}

	var slug string
	if !update {
		slug = rr.allocator.AllocateSlug(name, assigned)
	}

	return catalog.BatchItem{
		Row:    rowNum,
		Update: update,
		Product: catalog.Product{
			TmpID:         assigned,
			Name:          catalog.Truncate(name, catalog.MaxNameLength),
			Slug:          slug,
			CategoryID:    category.ID,
			BrandID:       brand.ID,
			Code:          catalog.Truncate(assigned, catalog.MaxCatalogNumberLength),
			CatalogNumber: catalog.Truncate(catalog.OrDefault(row.CatalogNumber, assigned), catalog.MaxCatalogNumberLength),
			CrossNumber:   catalog.Truncate(row.CrossNumber, catalog.MaxCrossNumberLength),
			ArtikylNumber: catalog.Truncate(row.ArtikylNumber, catalog.MaxArtikylNumberLength),
			Applicability: catalog.Truncate(catalog.OrDefault(row.Applicability, catalog.PlaceholderApplicability), catalog.MaxApplicabilityLength),
			Price:         decimal.Zero,
			InStock:       true,
			IsNew:         true,
		},
	}, nil
}

// windowTotal narrows a row count to the rows skip and test limits leave.
func windowTotal(total, skip, test int64) int64 {
	if test > 0 && total > test {
		total = test
	}
	total -= skip
	if total < 0 {
		return 0
	}
	return total
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func truncateReason(reason string) string {
	reason = strings.TrimSpace(reason)
	if len(reason) <= maxReasonLength {
		return reason
	}
	cut := maxReasonLength
	for cut > 0 && !utf8.RuneStart(reason[cut]) {
		cut--
	}
	return reason[:cut]
}
