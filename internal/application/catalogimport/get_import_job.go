package catalogimport

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
)

var ErrGetImportJob = errors.New("failed to get import job")

type jobReader interface {
	Get(ctx context.Context, jobID string) (catalog.ImportJob, error)
}

type GetImportJobOutput struct {
	ID               string                `json:"id"`
	SourcePath       string                `json:"source_path"`
	OriginalFilename string                `json:"original_filename"`
	Status           catalog.JobStatus     `json:"status"`
	Options          catalog.ImportOptions `json:"options"`
	SourceChecksum   string                `json:"source_checksum,omitempty"`

	CurrentRow      int64   `json:"current_row"`
	TotalRows       int64   `json:"total_rows"`
	ProgressPercent int     `json:"progress_percent"`
	ProcessingSpeed float64 `json:"processing_speed"`
	ProcessedRows   int64   `json:"processed_rows"`
	CreatedProducts int64   `json:"created_products"`
	UpdatedProducts int64   `json:"updated_products"`
	SkippedProducts int64   `json:"skipped_products"`
	ErrorCount      int64   `json:"error_count"`
	ErrorLog        string  `json:"error_log,omitempty"`

	Cancelled   bool       `json:"cancelled"`
	Processed   bool       `json:"processed"`
	UploadedAt  time.Time  `json:"uploaded_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

type GetImportJob interface {
	Execute(ctx context.Context, jobID string) (GetImportJobOutput, error)
}

type getImportJob struct {
	repo jobReader
	now  func() time.Time
}

func NewGetImportJob(repo jobReader) GetImportJob {
	return &getImportJob{repo: repo, now: time.Now}
}

func (uc *getImportJob) Execute(ctx context.Context, jobID string) (GetImportJobOutput, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return GetImportJobOutput{}, catalog.ErrJobNotFound
	}

	job, err := uc.repo.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, catalog.ErrJobNotFound) {
			return GetImportJobOutput{}, catalog.ErrJobNotFound
		}
		return GetImportJobOutput{}, fmt.Errorf("%w: %v", ErrGetImportJob, err)
	}

	return GetImportJobOutput{
		ID:               job.ID,
		SourcePath:       job.SourcePath,
		OriginalFilename: job.OriginalFilename,
		Status:           job.Status,
		Options:          job.Options,
		SourceChecksum:   job.SourceChecksum,
		CurrentRow:       job.CurrentRow,
		TotalRows:        job.TotalRows,
		ProgressPercent:  job.ProgressPercent(),
		ProcessingSpeed:  math.Round(job.ProcessingSpeed(uc.now())*10) / 10,
		ProcessedRows:    job.ProcessedRows,
		CreatedProducts:  job.CreatedProducts,
		UpdatedProducts:  job.UpdatedProducts,
		SkippedProducts:  job.SkippedProducts,
		ErrorCount:       job.ErrorCount,
		ErrorLog:         job.ErrorLog,
		Cancelled:        job.Cancelled,
		Processed:        job.Processed,
		UploadedAt:       job.UploadedAt,
		StartedAt:        job.StartedAt,
		FinishedAt:       job.FinishedAt,
		CancelledAt:      job.CancelledAt,
	}, nil
}
