package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
	"github.com/mohammadpnp/catalog-import/internal/infrastructure/db/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const uniqueViolation = "23505"

var allStatuses = []catalog.JobStatus{
	catalog.JobPending,
	catalog.JobProcessing,
	catalog.JobCompleted,
	catalog.JobFailed,
	catalog.JobCancelled,
}

var _ catalog.ImportJobRepository = (*ImportJobRepository)(nil)

type ImportJobRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewImportJobRepository(db *gorm.DB) *ImportJobRepository {
	return &ImportJobRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *ImportJobRepository) Create(ctx context.Context, job catalog.ImportJob) (catalog.ImportJob, error) {
	options, err := json.Marshal(job.Options)
	if err != nil {
		return catalog.ImportJob{}, fmt.Errorf("encode options: %w", err)
	}
	if job.Status == "" {
		job.Status = catalog.JobPending
	}
	if job.UploadedAt.IsZero() {
		job.UploadedAt = r.now()
	}

	row := models.ImportJob{
		ID:               job.ID,
		SourcePath:       job.SourcePath,
		OriginalFilename: job.OriginalFilename,
		UploadedAt:       job.UploadedAt,
		Status:           string(job.Status),
		Options:          datatypes.JSON(options),
		RowErrors:        datatypes.JSON("[]"),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return catalog.ImportJob{}, fmt.Errorf("create import job: %w", err)
	}
	return toDomainJob(row)
}

func (r *ImportJobRepository) Get(ctx context.Context, jobID string) (catalog.ImportJob, error) {
	var row models.ImportJob
	if err := r.db.WithContext(ctx).First(&row, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return catalog.ImportJob{}, catalog.ErrJobNotFound
		}
		return catalog.ImportJob{}, fmt.Errorf("get import job: %w", err)
	}
	return toDomainJob(row)
}

func (r *ImportJobRepository) ActiveJob(ctx context.Context) (*catalog.ImportJob, error) {
	var rows []models.ImportJob
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(catalog.JobProcessing)).
		Order("started_at").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find active import job: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	job, err := toDomainJob(rows[0])
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// TryStart moves a pending job to processing. The partial unique index on
// status turns a concurrent start into ErrImportAlreadyRunning.
func (r *ImportJobRepository) TryStart(ctx context.Context, jobID string) error {
	now := r.now()
	res := r.db.WithContext(ctx).
		Model(&models.ImportJob{}).
		Where("id = ? AND status = ? AND cancelled = ?", jobID, string(catalog.JobPending), false).
		Updates(map[string]any{
			"status":     string(catalog.JobProcessing),
			"started_at": now,
		})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return catalog.ErrImportAlreadyRunning
		}
		return fmt.Errorf("start import job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return r.explainMiss(ctx, jobID, catalog.JobProcessing)
	}
	return nil
}

func (r *ImportJobRepository) SetTotal(ctx context.Context, jobID string, total int64, checksum string) error {
	res := r.db.WithContext(ctx).
		Model(&models.ImportJob{}).
		Where("id = ?", jobID).
		Updates(map[string]any{
			"total_rows":      total,
			"source_checksum": checksum,
			"current_row":     0,
			"processed_rows":  0,
		})
	if res.Error != nil {
		return fmt.Errorf("set total rows: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return catalog.ErrJobNotFound
	}
	return nil
}

func (r *ImportJobRepository) UpdateProgress(ctx context.Context, jobID string, progress catalog.ImportProgress) error {
	res := r.db.WithContext(ctx).
		Model(&models.ImportJob{}).
		Where("id = ? AND status = ?", jobID, string(catalog.JobProcessing)).
		Updates(progressColumns(progress))
	if res.Error != nil {
		return fmt.Errorf("update import progress: %w", res.Error)
	}
	return nil
}

func (r *ImportJobRepository) IsCancelRequested(ctx context.Context, jobID string) (bool, error) {
	var row models.ImportJob
	if err := r.db.WithContext(ctx).Select("cancelled").Take(&row, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, catalog.ErrJobNotFound
		}
		return false, fmt.Errorf("read cancel flag: %w", err)
	}
	return row.Cancelled, nil
}

// RequestCancel flags a live job for cancellation and returns its status
// afterwards. A pending job goes straight to cancelled; finished jobs are
// left untouched.
func (r *ImportJobRepository) RequestCancel(ctx context.Context, jobID string, at time.Time) (catalog.JobStatus, error) {
	var status catalog.JobStatus
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.ImportJob
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = ?", jobID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return catalog.ErrJobNotFound
			}
			return err
		}

		status = catalog.JobStatus(row.Status)
		if status.Terminal() {
			return nil
		}

		updates := map[string]any{"cancelled": true, "cancelled_at": at}
		if status == catalog.JobPending {
			status = catalog.JobCancelled
			updates["status"] = string(catalog.JobCancelled)
			updates["finished_at"] = at
		}
		return tx.Model(&models.ImportJob{}).Where("id = ?", jobID).Updates(updates).Error
	})
	if err != nil {
		if errors.Is(err, catalog.ErrJobNotFound) {
			return "", err
		}
		return "", fmt.Errorf("request cancel: %w", err)
	}
	return status, nil
}

func (r *ImportJobRepository) Complete(ctx context.Context, jobID string, summary catalog.ImportSummary) error {
	return r.finish(ctx, jobID, catalog.JobCompleted, "", summary)
}

func (r *ImportJobRepository) Fail(ctx context.Context, jobID string, reason string, summary catalog.ImportSummary) error {
	return r.finish(ctx, jobID, catalog.JobFailed, reason, summary)
}

func (r *ImportJobRepository) MarkCancelled(ctx context.Context, jobID string, summary catalog.ImportSummary) error {
	return r.finish(ctx, jobID, catalog.JobCancelled, "", summary)
}

// RecoverInterrupted fails jobs a previous process left in processing.
func (r *ImportJobRepository) RecoverInterrupted(ctx context.Context, reason string) (int64, error) {
	now := r.now()
	res := r.db.WithContext(ctx).
		Model(&models.ImportJob{}).
		Where("status = ?", string(catalog.JobProcessing)).
		Updates(map[string]any{
			"status":      string(catalog.JobFailed),
			"error_log":   reason,
			"finished_at": now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("recover interrupted jobs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *ImportJobRepository) finish(ctx context.Context, jobID string, to catalog.JobStatus, reason string, summary catalog.ImportSummary) error {
	rowErrors, err := json.Marshal(storedRowErrors(summary.RowErrors))
	if err != nil {
		return fmt.Errorf("encode row errors: %w", err)
	}

	now := r.now()
	updates := progressColumns(summary.ImportProgress)
	updates["status"] = string(to)
	updates["finished_at"] = now
	updates["error_log"] = formatErrorLog(reason, summary.RowErrors)
	updates["row_errors"] = datatypes.JSON(rowErrors)
	if to == catalog.JobCompleted {
		updates["processed"] = true
		updates["processed_at"] = now
	}
	if summary.TotalRows > 0 {
		updates["total_rows"] = summary.TotalRows
	}

	res := r.db.WithContext(ctx).
		Model(&models.ImportJob{}).
		Where("id = ? AND status IN ?", jobID, statusesLeadingTo(to)).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("mark import job %s: %w", to, res.Error)
	}
	if res.RowsAffected == 0 {
		return r.explainMiss(ctx, jobID, to)
	}
	return nil
}

func (r *ImportJobRepository) explainMiss(ctx context.Context, jobID string, to catalog.JobStatus) error {
	job, err := r.Get(ctx, jobID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s to %s", catalog.ErrInvalidTransition, job.Status, to)
}

func progressColumns(p catalog.ImportProgress) map[string]any {
	return map[string]any{
		"current_row":      p.CurrentRow,
		"processed_rows":   p.ProcessedRows,
		"created_products": p.CreatedProducts,
		"updated_products": p.UpdatedProducts,
		"skipped_products": p.SkippedProducts,
		"error_count":      p.ErrorCount,
	}
}

func statusesLeadingTo(to catalog.JobStatus) []string {
	out := make([]string, 0, 2)
	for _, from := range allStatuses {
		if catalog.CanTransition(from, to) {
			out = append(out, string(from))
		}
	}
	return out
}

type storedRowError struct {
	Row    int64  `json:"row"`
	Reason string `json:"reason"`
}

func storedRowErrors(rowErrors []catalog.RowError) []storedRowError {
	out := make([]storedRowError, 0, len(rowErrors))
	for _, e := range rowErrors {
		out = append(out, storedRowError{Row: e.Row, Reason: e.Reason})
	}
	return out
}

func formatErrorLog(reason string, rowErrors []catalog.RowError) string {
	lines := make([]string, 0, len(rowErrors)+1)
	if reason = strings.TrimSpace(reason); reason != "" {
		lines = append(lines, reason)
	}
	for _, e := range rowErrors {
		lines = append(lines, fmt.Sprintf("row %d: %s", e.Row, e.Reason))
	}
	return strings.Join(lines, "\n")
}

func toDomainJob(row models.ImportJob) (catalog.ImportJob, error) {
	var opts catalog.ImportOptions
	if len(row.Options) > 0 {
		if err := json.Unmarshal(row.Options, &opts); err != nil {
			return catalog.ImportJob{}, fmt.Errorf("decode options of job %s: %w", row.ID, err)
		}
	}

	return catalog.ImportJob{
		ID:               row.ID,
		SourcePath:       row.SourcePath,
		OriginalFilename: row.OriginalFilename,
		UploadedAt:       row.UploadedAt,
		Status:           catalog.JobStatus(row.Status),
		Options:          opts,
		SourceChecksum:   row.SourceChecksum,
		CurrentRow:       row.CurrentRow,
		TotalRows:        row.TotalRows,
		ProcessedRows:    row.ProcessedRows,
		CreatedProducts:  row.CreatedProducts,
		UpdatedProducts:  row.UpdatedProducts,
		SkippedProducts:  row.SkippedProducts,
		ErrorCount:       row.ErrorCount,
		ErrorLog:         row.ErrorLog,
		Cancelled:        row.Cancelled,
		CancelledAt:      row.CancelledAt,
		Processed:        row.Processed,
		ProcessedAt:      row.ProcessedAt,
		StartedAt:        row.StartedAt,
		FinishedAt:       row.FinishedAt,
	}, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
