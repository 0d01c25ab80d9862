package catalogimport_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	app "github.com/mohammadpnp/catalog-import/internal/application/catalogimport"
	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
	"go.uber.org/zap"
)

func testRunnerConfig() app.RunnerConfig {
	return app.RunnerConfig{Batch: app.BatchEngineConfig{RetryBackoff: time.Millisecond}}
}

func processingJob(path string, opts catalog.ImportOptions) catalog.ImportJob {
	return catalog.ImportJob{
		ID:         "job-1",
		SourcePath: path,
		Status:     catalog.JobProcessing,
		Options:    opts,
	}
}

func runImport(t *testing.T, cat *fakeCatalog, data string, opts catalog.ImportOptions) (*fakeJobStore, catalog.ImportSummary, error) {
	t.Helper()
	job := processingJob("catalog.csv", opts)
	jobs := newFakeJobStore(job)
	runner := app.NewRunner(jobs, cat, &fakeSource{data: []byte(data)}, nil, cat, nil, zap.NewNop(), testRunnerConfig())
	summary, err := runner.Run(context.Background(), job)
	return jobs, summary, err
}

func TestRunnerEndToEnd(t *testing.T) {
	t.Parallel()

	data := "P1#Widget#Acme#####10\n" +
		"P1#Widget2#Acme#####10\n" +
		"#######\n"
	cat := newFakeCatalog()

	jobs, summary, err := runImport(t, cat, data, catalog.ImportOptions{BatchSize: 2})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got := jobs.job("job-1").Status; got != catalog.JobCompleted {
		t.Fatalf("expected completed, got %s", got)
	}
	if summary.TotalRows != 3 || summary.ProcessedRows != 3 {
		t.Fatalf("unexpected totals: %+v", summary)
	}
	if summary.CreatedProducts != 3 || summary.ErrorCount != 0 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if cat.productCount() != 3 {
		t.Fatalf("expected 3 products, got %d", cat.productCount())
	}

	acme, ok := cat.brands["acme"]
	if !ok || acme.Name != "Acme" {
		t.Fatalf("expected brand Acme, got %+v", cat.brands)
	}
	section, ok := cat.categories["category-10"]
	if !ok {
		t.Fatalf("expected category for section 10, got %+v", cat.categories)
	}

	first, ok := cat.product("P1")
	if !ok || first.Name != "Widget" {
		t.Fatalf("unexpected P1: %+v", first)
	}
	if first.BrandID != acme.ID || first.CategoryID != section.ID {
		t.Fatalf("P1 not linked to Acme/section 10: %+v", first)
	}
	if first.CatalogNumber != "P1" || first.Applicability != catalog.PlaceholderApplicability {
		t.Fatalf("P1 defaults not applied: %+v", first)
	}

	dup, ok := cat.product("P1-dup1")
	if !ok || dup.Name != "Widget2" {
		t.Fatalf("expected P1-dup1 with name Widget2, got %+v", dup)
	}

	empty, ok := cat.product("auto-3")
	if !ok {
		t.Fatal("expected placeholder product auto-3")
	}
	if empty.Name != catalog.PlaceholderName {
		t.Fatalf("unexpected placeholder name: %q", empty.Name)
	}
	if empty.BrandID != cat.brands[catalog.UnknownBrandSlug].ID {
		t.Fatalf("expected unknown brand, got %d", empty.BrandID)
	}
	if empty.CategoryID != cat.categories[catalog.UncategorizedSlug].ID {
		t.Fatalf("expected uncategorized, got %d", empty.CategoryID)
	}

	slugs := map[string]bool{}
	for _, id := range []string{"P1", "P1-dup1", "auto-3"} {
		p, _ := cat.product(id)
		if p.Slug == "" || slugs[p.Slug] {
			t.Fatalf("slug %q empty or repeated", p.Slug)
		}
		slugs[p.Slug] = true
	}

	if len(cat.batchSizes) != 2 || cat.batchSizes[0] != 2 || cat.batchSizes[1] != 1 {
		t.Fatalf("unexpected batch sizes: %v", cat.batchSizes)
	}
}

func TestRunnerReimportDuplicateMode(t *testing.T) {
	t.Parallel()

	data := "A1#Alpha#Acme#####5\nA2#Beta#Acme#####5\n"
	cat := newFakeCatalog()

	if _, _, err := runImport(t, cat, data, catalog.ImportOptions{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	brands, categories := len(cat.brands), len(cat.categories)

	_, summary, err := runImport(t, cat, data, catalog.ImportOptions{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if summary.CreatedProducts != 2 || summary.CreatedBrands != 0 || summary.CreatedCategories != 0 {
		t.Fatalf("unexpected second summary: %+v", summary)
	}
	if len(cat.brands) != brands || len(cat.categories) != categories {
		t.Fatal("brand or category count grew on re-import")
	}
	for _, id := range []string{"A1", "A2", "A1-dup1", "A2-dup1"} {
		if _, ok := cat.product(id); !ok {
			t.Fatalf("expected product %s", id)
		}
	}
}

func TestRunnerReimportUpdateMode(t *testing.T) {
	t.Parallel()

	cat := newFakeCatalog()
	if _, _, err := runImport(t, cat, "A1#Alpha#Acme#####5\n", catalog.ImportOptions{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	original, _ := cat.product("A1")

	_, summary, err := runImport(t, cat, "A1#Alpha v2#Acme#####5\nA1#Alpha v3#Acme#####5\n", catalog.ImportOptions{Mode: catalog.ModeUpdate})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if summary.UpdatedProducts != 1 || summary.CreatedProducts != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	updated, _ := cat.product("A1")
	if updated.Name != "Alpha v2" || updated.Slug != original.Slug {
		t.Fatalf("expected in-place update keeping slug, got %+v", updated)
	}
	if _, ok := cat.product("A1-dup1"); !ok {
		t.Fatal("expected second occurrence stored as A1-dup1")
	}
}

func TestRunnerCancellationKeepsCommittedBatches(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i := 1; i <= 6; i++ {
		fmt.Fprintf(&b, "C%d#Part %d#Acme#####7\n", i, i)
	}

	job := processingJob("catalog.csv", catalog.ImportOptions{BatchSize: 2})
	jobs := newFakeJobStore(job)
	jobs.cancelAtPoll = 2
	cat := newFakeCatalog()
	cache := &fakeCache{}

	runner := app.NewRunner(jobs, cat, &fakeSource{data: []byte(b.String())}, nil, cat, cache, zap.NewNop(), testRunnerConfig())
	summary, err := runner.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("cancellation must not be an error, got %v", err)
	}

	if got := jobs.job("job-1").Status; got != catalog.JobCancelled {
		t.Fatalf("expected cancelled, got %s", got)
	}
	if jobs.cancelled == nil {
		t.Fatal("expected MarkCancelled to be called")
	}
	if summary.ProcessedRows >= 6 {
		t.Fatalf("expected processed rows below 6, got %d", summary.ProcessedRows)
	}
	if cat.productCount() != 2 {
		t.Fatalf("expected first batch to stay committed, got %d products", cat.productCount())
	}
	if cache.calls != 1 {
		t.Fatalf("expected cache invalidation after committed rows, got %d", cache.calls)
	}
}

func TestRunnerCancellationDoesNotCountUnflushedRows(t *testing.T) {
	t.Parallel()

	job := processingJob("catalog.csv", catalog.ImportOptions{BatchSize: 2})
	jobs := newFakeJobStore(job)
	jobs.cancelAtPoll = 1
	cat := newFakeCatalog()

	runner := app.NewRunner(jobs, cat, &fakeSource{data: []byte("C1#Part 1#Acme#####7\nC2#Part 2#Acme#####7\n")}, nil, cat, &fakeCache{}, zap.NewNop(), testRunnerConfig())
	summary, err := runner.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("cancellation must not be an error, got %v", err)
	}

	if got := jobs.job("job-1").Status; got != catalog.JobCancelled {
		t.Fatalf("expected cancelled, got %s", got)
	}
	if cat.productCount() != 0 {
		t.Fatalf("expected no products written, got %d", cat.productCount())
	}
	if summary.ProcessedRows != 0 {
		t.Fatalf("expected dropped batch excluded from processed rows, got %d", summary.ProcessedRows)
	}
	if jobs.cancelled == nil || jobs.cancelled.ProcessedRows != 0 {
		t.Fatalf("expected persisted processed rows 0, got %+v", jobs.cancelled)
	}
}

func TestRunnerUnrecognizedLayoutFailsBeforeWrites(t *testing.T) {
	t.Parallel()

	cat := newFakeCatalog()
	jobs, _, err := runImport(t, cat, "justoneword\nanother\n", catalog.ImportOptions{ClearExisting: true})
	if err == nil {
		t.Fatal("expected error")
	}

	got := jobs.job("job-1")
	if got.Status != catalog.JobFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if !strings.Contains(jobs.failReason, app.ErrUnrecognizedLayout.Error()) {
		t.Fatalf("unexpected fail reason: %s", jobs.failReason)
	}
	if cat.deleted || cat.productCount() != 0 {
		t.Fatal("expected no writes before layout detection")
	}
	if jobs.totalCalls != 0 {
		t.Fatal("expected total rows to stay unset")
	}
}

func TestRunnerRetriesBusyStore(t *testing.T) {
	t.Parallel()

	cat := newFakeCatalog()
	cat.busyFailures = 2

	jobs, summary, err := runImport(t, cat, "B1#One#Acme#####1\nB2#Two#Acme#####1\n", catalog.ImportOptions{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if summary.CreatedProducts != 2 {
		t.Fatalf("expected 2 created, got %d", summary.CreatedProducts)
	}
	if jobs.job("job-1").Status != catalog.JobCompleted {
		t.Fatal("expected completed")
	}
}

func TestRunnerFailsWhenBusyRetriesExhausted(t *testing.T) {
	t.Parallel()

	cat := newFakeCatalog()
	cat.busyFailures = 10

	jobs, _, err := runImport(t, cat, "B1#One#Acme#####1\n", catalog.ImportOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
	if jobs.job("job-1").Status != catalog.JobFailed {
		t.Fatal("expected failed")
	}
	if !strings.Contains(jobs.failReason, catalog.ErrStoreBusy.Error()) {
		t.Fatalf("unexpected fail reason: %s", jobs.failReason)
	}
}

func TestRunnerFallsBackToSingleSaves(t *testing.T) {
	t.Parallel()

	cat := newFakeCatalog()
	cat.batchErr = errBoom
	cat.saveErrs["B2"] = errBoom

	jobs, summary, err := runImport(t, cat, "B1#One#Acme#####1\nB2#Two#Acme#####1\nB3#Three#Acme#####1\n", catalog.ImportOptions{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if jobs.job("job-1").Status != catalog.JobCompleted {
		t.Fatal("expected completed")
	}
	if summary.CreatedProducts != 2 || summary.ErrorCount != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(summary.RowErrors) != 1 || summary.RowErrors[0].Row != 2 {
		t.Fatalf("unexpected row errors: %+v", summary.RowErrors)
	}
}

func TestRunnerAppliesRowWindow(t *testing.T) {
	t.Parallel()

	data := "W1#One#Acme#####1\nW2#Two#Acme#####1\nW3#Three#Acme#####1\nW4#Four#Acme#####1\nW5#Five#Acme#####1\n"
	cat := newFakeCatalog()

	_, summary, err := runImport(t, cat, data, catalog.ImportOptions{SkipRows: 1, TestLines: 3})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if summary.TotalRows != 2 || summary.CreatedProducts != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	for _, id := range []string{"W2", "W3"} {
		if _, ok := cat.product(id); !ok {
			t.Fatalf("expected %s", id)
		}
	}
	if _, ok := cat.product("W1"); ok {
		t.Fatal("skipped row was imported")
	}
}

func TestRunnerSanitizeRejectSkipsRow(t *testing.T) {
	t.Parallel()

	cat := newFakeCatalog()
	data := "S1#Good#Acme#####1\nS<2>#Bad#Acme#####1\n"

	_, summary, err := runImport(t, cat, data, catalog.ImportOptions{Sanitize: catalog.SanitizeReject})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if summary.CreatedProducts != 1 || summary.ErrorCount != 1 || summary.ProcessedRows != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if !strings.Contains(summary.RowErrors[0].Reason, "TMP_ID") {
		t.Fatalf("unexpected reason: %s", summary.RowErrors[0].Reason)
	}
}

func TestRunnerReadsStructuredRecords(t *testing.T) {
	t.Parallel()

	records := &fakeRecordSource{records: []map[string]string{
		{"TMP_ID": "D1", "NAME": "Disk", "PROPERTY_P": "Brembo", "SECTION_ID": "[3]"},
		{"TMP_ID": "D2", "NAME": "Pad", "PROPERTY_P": "Brembo", "PROPERTY_M": "Golf IV", "SECTION_ID": "3"},
	}}
	job := processingJob("export.dbf", catalog.ImportOptions{Encoding: "cp866"})
	jobs := newFakeJobStore(job)
	cat := newFakeCatalog()

	runner := app.NewRunner(jobs, cat, &fakeSource{data: []byte("raw dbf bytes")}, records, cat, nil, zap.NewNop(), testRunnerConfig())
	summary, err := runner.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if records.gotFormat != catalog.FormatDBF || records.gotEncoded != "cp866" {
		t.Fatalf("unexpected record source call: %s %s", records.gotFormat, records.gotEncoded)
	}
	if summary.CreatedProducts != 2 || summary.TotalRows != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if jobs.job("job-1").SourceChecksum == "" {
		t.Fatal("expected source checksum")
	}
	pad, _ := cat.product("D2")
	if pad.Applicability != "Golf IV" || pad.CategoryID != cat.categories["category-3"].ID {
		t.Fatalf("unexpected product: %+v", pad)
	}
}

func TestRunnerProgressIsMonotonic(t *testing.T) {
	t.Parallel()

	const rows = 2500
	var b strings.Builder
	for i := 1; i <= rows; i++ {
		fmt.Fprintf(&b, "M%d#Item %d#Acme#####9\n", i, i)
	}

	cat := newFakeCatalog()
	jobs, summary, err := runImport(t, cat, b.String(), catalog.ImportOptions{BatchSize: 700})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var last int64
	for _, p := range jobs.progressCalls {
		if p.ProcessedRows < last {
			t.Fatalf("processed rows went backwards: %d after %d", p.ProcessedRows, last)
		}
		last = p.ProcessedRows
	}
	if last != rows || summary.ProcessedRows != rows || summary.CreatedProducts != rows {
		t.Fatalf("expected %d rows, got last=%d summary=%+v", rows, last, summary)
	}
}

func TestRunnerInvalidOptionsFailJob(t *testing.T) {
	t.Parallel()

	jobs, _, err := runImport(t, newFakeCatalog(), "X#Y\n", catalog.ImportOptions{Mode: "merge"})
	if err == nil {
		t.Fatal("expected error")
	}
	if jobs.job("job-1").Status != catalog.JobFailed {
		t.Fatal("expected failed")
	}
}
