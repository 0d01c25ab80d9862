package catalogimport

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
	"go.uber.org/zap"
)

var supportedExtensions = map[string]struct{}{
	".csv":  {},
	".txt":  {},
	".tsv":  {},
	".dbf":  {},
	".xlsx": {},
}

type startStore interface {
	Create(ctx context.Context, job catalog.ImportJob) (catalog.ImportJob, error)
	ActiveJob(ctx context.Context) (*catalog.ImportJob, error)
	Fail(ctx context.Context, jobID string, reason string, summary catalog.ImportSummary) error
}

type jobLauncher interface {
	Launch(ctx context.Context, jobID string) error
}

type StartImportInput struct {
	SourcePath       string
	OriginalFilename string
	Options          catalog.ImportOptions
}

type StartImportOutput struct {
	JobID  string            `json:"job_id"`
	Status catalog.JobStatus `json:"status"`
}

type StartImport interface {
	Execute(ctx context.Context, in StartImportInput) (StartImportOutput, error)
}

type startImport struct {
	store    startStore
	launcher jobLauncher
	defaults catalog.ImportOptions
	logger   *zap.Logger
	now      func() time.Time
}

// NewStartImport registers import jobs and hands them to the launcher.
// defaults fill batch size, mode and sanitize when a request leaves them empty.
func NewStartImport(store startStore, launcher jobLauncher, defaults catalog.ImportOptions, logger *zap.Logger) StartImport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &startImport{
		store:    store,
		launcher: launcher,
		defaults: defaults,
		logger:   logger,
		now:      time.Now,
	}
}

func (uc *startImport) Execute(ctx context.Context, in StartImportInput) (StartImportOutput, error) {
	sourcePath := strings.TrimSpace(in.SourcePath)
	if sourcePath == "" {
		return StartImportOutput{}, fmt.Errorf("%w: source path is required", ErrInvalidImportSource)
	}
	if _, ok := supportedExtensions[strings.ToLower(filepath.Ext(sourcePath))]; !ok {
		return StartImportOutput{}, fmt.Errorf("%w: unsupported file type %q", ErrInvalidImportSource, filepath.Ext(sourcePath))
	}

	opts, err := uc.withDefaults(in.Options).Normalize()
	if err != nil {
		return StartImportOutput{}, err
	}

	active, err := uc.store.ActiveJob(ctx)
	if err != nil {
		return StartImportOutput{}, fmt.Errorf("check active import: %w", err)
	}
	if active != nil {
		return StartImportOutput{JobID: active.ID, Status: active.Status}, catalog.ErrImportAlreadyRunning
	}

	filename := in.OriginalFilename
	if filename == "" {
		filename = filepath.Base(sourcePath)
	}

	job, err := uc.store.Create(ctx, catalog.ImportJob{
		ID:               uuid.NewString(),
		SourcePath:       sourcePath,
		OriginalFilename: filename,
		UploadedAt:       uc.now().UTC(),
		Status:           catalog.JobPending,
		Options:          opts,
	})
	if err != nil {
		return StartImportOutput{}, fmt.Errorf("%w: %v", ErrCreateImportJob, err)
	}

	if err := uc.launcher.Launch(ctx, job.ID); err != nil {
		// A job that never started must not stay pending.
		if failErr := uc.store.Fail(context.WithoutCancel(ctx), job.ID, truncateReason(err.Error()), catalog.ImportSummary{}); failErr != nil {
			uc.logger.Error("failed to retire rejected job", zap.String("job_id", job.ID), zap.Error(failErr))
		}
		out := StartImportOutput{JobID: job.ID, Status: catalog.JobFailed}
		if errors.Is(err, catalog.ErrImportAlreadyRunning) {
			return out, err
		}
		return out, fmt.Errorf("launch import: %w", err)
	}

	uc.logger.Info("import job launched",
		zap.String("job_id", job.ID),
		zap.String("source", sourcePath),
		zap.String("format", string(catalog.FormatForPath(sourcePath))),
	)
	return StartImportOutput{JobID: job.ID, Status: catalog.JobProcessing}, nil
}

func (uc *startImport) withDefaults(opts catalog.ImportOptions) catalog.ImportOptions {
	if opts.BatchSize <= 0 {
		opts.BatchSize = uc.defaults.BatchSize
	}
	if opts.Mode == "" {
		opts.Mode = uc.defaults.Mode
	}
	if opts.Sanitize == "" {
		opts.Sanitize = uc.defaults.Sanitize
	}
	return opts
}
