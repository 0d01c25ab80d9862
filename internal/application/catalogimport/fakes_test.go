package catalogimport_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	app "github.com/mohammadpnp/catalog-import/internal/application/catalogimport"
	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
)

type fakeJobStore struct {
	mu   sync.Mutex
	jobs map[string]catalog.ImportJob

	progressCalls []catalog.ImportProgress
	totalCalls    int
	polls         int
	// cancelAtPoll raises the cancel flag once the poll count reaches it.
	cancelAtPoll int

	completed   *catalog.ImportSummary
	cancelled   *catalog.ImportSummary
	failReason  string
	tryStartErr error
	createErr   error
	activeErr   error
}

func newFakeJobStore(jobs ...catalog.ImportJob) *fakeJobStore {
	s := &fakeJobStore{jobs: make(map[string]catalog.ImportJob)}
	for _, job := range jobs {
		s.jobs[job.ID] = job
	}
	return s
}

func (f *fakeJobStore) Create(ctx context.Context, job catalog.ImportJob) (catalog.ImportJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return catalog.ImportJob{}, f.createErr
	}
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeJobStore) Get(ctx context.Context, jobID string) (catalog.ImportJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return catalog.ImportJob{}, catalog.ErrJobNotFound
	}
	return job, nil
}

func (f *fakeJobStore) ActiveJob(ctx context.Context) (*catalog.ImportJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.activeErr != nil {
		return nil, f.activeErr
	}
	for _, job := range f.jobs {
		if job.Status == catalog.JobProcessing {
			active := job
			return &active, nil
		}
	}
	return nil, nil
}

func (f *fakeJobStore) TryStart(ctx context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tryStartErr != nil {
		return f.tryStartErr
	}
	job, ok := f.jobs[jobID]
	if !ok {
		return catalog.ErrJobNotFound
	}
	if !catalog.CanTransition(job.Status, catalog.JobProcessing) {
		return catalog.ErrInvalidTransition
	}
	now := time.Now()
	job.Status = catalog.JobProcessing
	job.StartedAt = &now
	f.jobs[jobID] = job
	return nil
}

func (f *fakeJobStore) SetTotal(ctx context.Context, jobID string, total int64, checksum string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.totalCalls++
	job := f.jobs[jobID]
	job.TotalRows = total
	job.SourceChecksum = checksum
	f.jobs[jobID] = job
	return nil
}

func (f *fakeJobStore) UpdateProgress(ctx context.Context, jobID string, progress catalog.ImportProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progressCalls = append(f.progressCalls, progress)
	job := f.jobs[jobID]
	job.CurrentRow = progress.CurrentRow
	job.ProcessedRows = progress.ProcessedRows
	f.jobs[jobID] = job
	return nil
}

func (f *fakeJobStore) IsCancelRequested(ctx context.Context, jobID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.cancelAtPoll > 0 && f.polls >= f.cancelAtPoll {
		return true, nil
	}
	return f.jobs[jobID].Cancelled, nil
}

func (f *fakeJobStore) RequestCancel(ctx context.Context, jobID string, at time.Time) (catalog.JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return "", catalog.ErrJobNotFound
	}
	if job.Status.Terminal() {
		return job.Status, nil
	}
	job.Cancelled = true
	job.CancelledAt = &at
	if job.Status == catalog.JobPending {
		job.Status = catalog.JobCancelled
	}
	f.jobs[jobID] = job
	return job.Status, nil
}

func (f *fakeJobStore) Complete(ctx context.Context, jobID string, summary catalog.ImportSummary) error {
	return f.finish(jobID, catalog.JobCompleted, "", summary)
}

func (f *fakeJobStore) Fail(ctx context.Context, jobID string, reason string, summary catalog.ImportSummary) error {
	return f.finish(jobID, catalog.JobFailed, reason, summary)
}

func (f *fakeJobStore) MarkCancelled(ctx context.Context, jobID string, summary catalog.ImportSummary) error {
	return f.finish(jobID, catalog.JobCancelled, "", summary)
}

func (f *fakeJobStore) RecoverInterrupted(ctx context.Context, reason string) (int64, error) {
	return 0, nil
}

func (f *fakeJobStore) finish(jobID string, status catalog.JobStatus, reason string, summary catalog.ImportSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := f.jobs[jobID]
	job.Status = status
	job.ProcessedRows = summary.ProcessedRows
	job.CreatedProducts = summary.CreatedProducts
	job.ErrorCount = summary.ErrorCount
	f.jobs[jobID] = job

	switch status {
	case catalog.JobCompleted:
		f.completed = &summary
	case catalog.JobCancelled:
		f.cancelled = &summary
	case catalog.JobFailed:
		f.failReason = reason
	}
	return nil
}

func (f *fakeJobStore) job(id string) catalog.ImportJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs[id]
}

// fakeCatalog keeps brands, categories and products in memory and plays
// both the catalog store and the product writer.
type fakeCatalog struct {
	mu sync.Mutex

	nextID     int64
	brands     map[string]catalog.Brand
	categories map[string]catalog.Category
	products   map[string]catalog.Product
	slugs      map[string]string

	batchSizes   []int
	busyFailures int
	batchErr     error
	saveErrs     map[string]error
	deleted      bool
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		brands:     make(map[string]catalog.Brand),
		categories: make(map[string]catalog.Category),
		products:   make(map[string]catalog.Product),
		slugs:      make(map[string]string),
		saveErrs:   make(map[string]error),
	}
}

func (f *fakeCatalog) LoadBrands(ctx context.Context) ([]catalog.Brand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]catalog.Brand, 0, len(f.brands))
	for _, b := range f.brands {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeCatalog) LoadCategories(ctx context.Context) ([]catalog.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]catalog.Category, 0, len(f.categories))
	for _, c := range f.categories {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCatalog) LoadProductKeys(ctx context.Context) (catalog.ProductKeys, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys catalog.ProductKeys
	for id, p := range f.products {
		keys.TmpIDs = append(keys.TmpIDs, id)
		keys.Slugs = append(keys.Slugs, p.Slug)
	}
	return keys, nil
}

func (f *fakeCatalog) GetOrCreateBrand(ctx context.Context, brand catalog.Brand) (catalog.Brand, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.brands[brand.Slug]; ok {
		return existing, false, nil
	}
	f.nextID++
	brand.ID = f.nextID
	f.brands[brand.Slug] = brand
	return brand, true, nil
}

func (f *fakeCatalog) GetOrCreateCategory(ctx context.Context, category catalog.Category) (catalog.Category, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.categories[category.Slug]; ok {
		return existing, false, nil
	}
	f.nextID++
	category.ID = f.nextID
	f.categories[category.Slug] = category
	return category, true, nil
}

func (f *fakeCatalog) DeleteProducts(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.products))
	f.products = make(map[string]catalog.Product)
	f.slugs = make(map[string]string)
	f.deleted = true
	return n, nil
}

func (f *fakeCatalog) WriteBatch(ctx context.Context, jobID string, batch []catalog.BatchItem, transactional bool) (catalog.BatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busyFailures > 0 {
		f.busyFailures--
		return catalog.BatchResult{}, catalog.ErrStoreBusy
	}
	if f.batchErr != nil {
		return catalog.BatchResult{}, f.batchErr
	}

	f.batchSizes = append(f.batchSizes, len(batch))
	var result catalog.BatchResult
	for _, item := range batch {
		switch f.apply(item) {
		case applyCreated:
			result.Created++
		case applyUpdated:
			result.Updated++
		default:
			result.Skipped++
		}
	}
	return result, nil
}

func (f *fakeCatalog) SaveProduct(ctx context.Context, item catalog.BatchItem) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.saveErrs[item.Product.TmpID]; err != nil {
		return false, err
	}
	return f.apply(item) != applySkipped, nil
}

type applyOutcome int

const (
	applySkipped applyOutcome = iota
	applyCreated
	applyUpdated
)

func (f *fakeCatalog) apply(item catalog.BatchItem) applyOutcome {
	p := item.Product
	if item.Update {
		existing, ok := f.products[p.TmpID]
		if !ok {
			return applySkipped
		}
		p.ID = existing.ID
		p.Slug = existing.Slug
		f.products[p.TmpID] = p
		return applyUpdated
	}
	if _, ok := f.products[p.TmpID]; ok {
		return applySkipped
	}
	if _, ok := f.slugs[p.Slug]; ok {
		return applySkipped
	}
	f.nextID++
	p.ID = f.nextID
	f.products[p.TmpID] = p
	f.slugs[p.Slug] = p.TmpID
	return applyCreated
}

func (f *fakeCatalog) product(tmpID string) (catalog.Product, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[tmpID]
	return p, ok
}

func (f *fakeCatalog) productCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.products)
}

type fakeSource struct {
	data []byte
	err  error
}

func (f *fakeSource) Open(ctx context.Context, sourcePath string) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(string(f.data))), nil
}

type fakeRecordReader struct {
	records []map[string]string
	pos     int
}

func (r *fakeRecordReader) Next() (map[string]string, error) {
	if r.pos >= len(r.records) {
		return nil, io.EOF
	}
	rec := r.records[r.pos]
	r.pos++
	return rec, nil
}

func (r *fakeRecordReader) Total() int64 { return int64(len(r.records)) }
func (r *fakeRecordReader) Close() error { return nil }

type fakeRecordSource struct {
	records    []map[string]string
	gotFormat  catalog.SourceFormat
	gotEncoded string
}

func (f *fakeRecordSource) OpenRecords(ctx context.Context, sourcePath string, format catalog.SourceFormat, encodingName string) (app.RecordReader, error) {
	f.gotFormat = format
	f.gotEncoded = encodingName
	return &fakeRecordReader{records: f.records}, nil
}

type fakeCache struct {
	calls int
	err   error
}

func (f *fakeCache) InvalidateCatalog(ctx context.Context) error {
	f.calls++
	return f.err
}

var errBoom = errors.New("boom")
