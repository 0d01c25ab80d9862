package models

import (
	"time"

	"gorm.io/datatypes"
)

// ImportJob rows are unique among status = 'processing', which keeps a
// second process from starting an import while one is running.
type ImportJob struct {
	ID               string         `gorm:"type:uuid;primaryKey"`
	SourcePath       string         `gorm:"type:text;not null"`
	OriginalFilename string         `gorm:"size:255;not null;default:''"`
	UploadedAt       time.Time      `gorm:"not null"`
	Status           string         `gorm:"size:20;not null;index:idx_import_jobs_single_processing,unique,where:status = 'processing'"`
	Options          datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"`
	SourceChecksum   string         `gorm:"size:32;not null;default:''"`

	CurrentRow      int64          `gorm:"not null;default:0"`
	TotalRows       int64          `gorm:"not null;default:0"`
	ProcessedRows   int64          `gorm:"not null;default:0"`
	CreatedProducts int64          `gorm:"not null;default:0"`
	UpdatedProducts int64          `gorm:"not null;default:0"`
	SkippedProducts int64          `gorm:"not null;default:0"`
	ErrorCount      int64          `gorm:"not null;default:0"`
	ErrorLog        string         `gorm:"type:text;not null;default:''"`
	RowErrors       datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`

	Cancelled   bool `gorm:"not null;default:false"`
	CancelledAt *time.Time
	Processed   bool `gorm:"not null;default:false"`
	ProcessedAt *time.Time
	StartedAt   *time.Time
	FinishedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (ImportJob) TableName() string {
	return "import_jobs"
}
