package catalog

import (
	"math"
	"time"
)

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
)

// MaxStoredRowErrors caps the messages kept in an import job's error log.
const MaxStoredRowErrors = 10

var jobTransitions = map[JobStatus][]JobStatus{
	JobPending:    {JobProcessing, JobCancelled, JobFailed},
	JobProcessing: {JobCompleted, JobFailed, JobCancelled},
}

func CanTransition(from, to JobStatus) bool {
	for _, next := range jobTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

type ImportJob struct {
	ID               string
	SourcePath       string
	OriginalFilename string
	UploadedAt       time.Time
	Status           JobStatus
	Options          ImportOptions
	SourceChecksum   string

	CurrentRow      int64
	TotalRows       int64
	ProcessedRows   int64
	CreatedProducts int64
	UpdatedProducts int64
	SkippedProducts int64
	ErrorCount      int64
	ErrorLog        string

	Cancelled   bool
	CancelledAt *time.Time
	Processed   bool
	ProcessedAt *time.Time
	StartedAt   *time.Time
	FinishedAt  *time.Time
}

func (j ImportJob) ProgressPercent() int {
	return ProgressPercent(j.CurrentRow, j.TotalRows)
}

func (j ImportJob) ProcessingSpeed(now time.Time) float64 {
	if j.Status != JobProcessing || j.StartedAt == nil {
		return 0
	}
	return ProcessingSpeed(j.ProcessedRows, now.Sub(*j.StartedAt))
}

func ProgressPercent(current, total int64) int {
	if total <= 0 {
		return 0
	}
	pct := math.Round(float64(current) / float64(total) * 100)
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return int(pct)
}

func ProcessingSpeed(processed int64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(processed) / elapsed.Seconds()
}

type RowError struct {
	Row    int64
	Reason string
}

type ImportProgress struct {
	CurrentRow      int64
	ProcessedRows   int64
	CreatedProducts int64
	UpdatedProducts int64
	SkippedProducts int64
	ErrorCount      int64
}

type ImportSummary struct {
	ImportProgress
	TotalRows         int64
	CreatedBrands     int64
	CreatedCategories int64
	RowErrors         []RowError
}

// BatchResult reports what one flushed batch did to the products table.
type BatchResult struct {
	Created int64
	Updated int64
	Skipped int64
	Failed  []RowError
}
