package catalogimport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
	"go.uber.org/zap"
)

type launcherStore interface {
	Get(ctx context.Context, jobID string) (catalog.ImportJob, error)
	TryStart(ctx context.Context, jobID string) error
	Fail(ctx context.Context, jobID string, reason string, summary catalog.ImportSummary) error
}

type jobRunner interface {
	Run(ctx context.Context, job catalog.ImportJob) (catalog.ImportSummary, error)
}

// Launcher starts import jobs in the background, one at a time per process.
// The store's TryStart enforces the same limit across processes.
type Launcher struct {
	baseCtx context.Context
	store   launcherStore
	runner  jobRunner
	logger  *zap.Logger

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewLauncher binds background runs to baseCtx, so cancelling it stops them.
func NewLauncher(baseCtx context.Context, store launcherStore, runner jobRunner, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{baseCtx: baseCtx, store: store, runner: runner, logger: logger}
}

// Launch moves a pending job to processing and runs it asynchronously.
func (l *Launcher) Launch(ctx context.Context, jobID string) error {
	if !l.running.CompareAndSwap(false, true) {
		return catalog.ErrImportAlreadyRunning
	}

	if err := l.store.TryStart(ctx, jobID); err != nil {
		l.running.Store(false)
		return err
	}

	job, err := l.store.Get(ctx, jobID)
	if err != nil {
		l.running.Store(false)
		reason := fmt.Sprintf("load job: %v", err)
		if failErr := l.store.Fail(context.WithoutCancel(ctx), jobID, truncateReason(reason), catalog.ImportSummary{}); failErr != nil {
			l.logger.Error("failed to mark job failed", zap.String("job_id", jobID), zap.Error(failErr))
		}
		return err
	}

	l.wg.Add(1)
	go l.run(job)
	return nil
}

func (l *Launcher) run(job catalog.ImportJob) {
	defer l.wg.Done()
	defer l.running.Store(false)
	defer func() {
		if rec := recover(); rec != nil {
			reason := fmt.Sprintf("import panicked: %v", rec)
			l.logger.Error("import panicked", zap.String("job_id", job.ID), zap.Any("panic", rec))
			if err := l.store.Fail(context.WithoutCancel(l.baseCtx), job.ID, truncateReason(reason), catalog.ImportSummary{}); err != nil {
				l.logger.Error("failed to mark job failed", zap.String("job_id", job.ID), zap.Error(err))
			}
		}
	}()

	if _, err := l.runner.Run(l.baseCtx, job); err != nil && !errors.Is(err, context.Canceled) {
		l.logger.Warn("import job ended with error", zap.String("job_id", job.ID), zap.Error(err))
	}
}

// Busy reports whether this process is running an import.
func (l *Launcher) Busy() bool {
	return l.running.Load()
}

// Wait blocks until every launched run has returned.
func (l *Launcher) Wait() {
	l.wg.Wait()
}
