package catalogimport

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
)

type cancelStore interface {
	RequestCancel(ctx context.Context, jobID string, at time.Time) (catalog.JobStatus, error)
}

type CancelImportOutput struct {
	JobID  string            `json:"job_id"`
	Status catalog.JobStatus `json:"status"`
}

type CancelImport interface {
	Execute(ctx context.Context, jobID string) (CancelImportOutput, error)
}

type cancelImport struct {
	store cancelStore
	now   func() time.Time
}

// NewCancelImport raises a job's cancellation flag. A pending job is
// cancelled at once; a processing job stops at its next poll.
func NewCancelImport(store cancelStore) CancelImport {
	return &cancelImport{store: store, now: time.Now}
}

func (uc *cancelImport) Execute(ctx context.Context, jobID string) (CancelImportOutput, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return CancelImportOutput{}, catalog.ErrJobNotFound
	}

	status, err := uc.store.RequestCancel(ctx, jobID, uc.now().UTC())
	if err != nil {
		return CancelImportOutput{}, err
	}
	if status == catalog.JobCompleted || status == catalog.JobFailed {
		return CancelImportOutput{JobID: jobID, Status: status}, fmt.Errorf("%w: status %s", ErrJobAlreadyFinished, status)
	}
	return CancelImportOutput{JobID: jobID, Status: status}, nil
}
