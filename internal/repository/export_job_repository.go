package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/inventory-report-api/internal/models"
	appErrors "github.com/noah-isme/inventory-report-api/pkg/errors"
)

// ExportJobRepository keeps export job metadata in process memory. Jobs do not
// survive a restart; their files are reclaimed by the storage cleanup.
type ExportJobRepository struct {
	mu   sync.RWMutex
	jobs map[string]*models.ExportJob
	now  func() time.Time
}

// NewExportJobRepository constructs the repository.
func NewExportJobRepository() *ExportJobRepository {
	return &ExportJobRepository{
		jobs: make(map[string]*models.ExportJob),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new job, assigning id, status and timestamp defaults.
func (r *ExportJobRepository) Create(_ context.Context, job *models.ExportJob) error {
	if job == nil {
		return fmt.Errorf("create export job: nil job")
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ExportStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = r.now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.ID]; exists {
		return fmt.Errorf("create export job: duplicate id %s", job.ID)
	}
	stored := *job
	r.jobs[job.ID] = &stored
	return nil
}

// GetByID returns a copy of the job or ErrNotFound.
func (r *ExportJobRepository) GetByID(_ context.Context, id string) (*models.ExportJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	clone := *job
	return &clone, nil
}

// UpdateExportJobParams defines the mutable fields.
type UpdateExportJobParams struct {
	Status       *models.ExportStatus
	Progress     *int
	FilePath     *string
	ResultURL    *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update applies the provided changes to a job.
func (r *ExportJobRepository) Update(_ context.Context, id string, params UpdateExportJobParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return appErrors.ErrNotFound
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.FilePath != nil {
		job.FilePath = *params.FilePath
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		if *params.ErrorMessage == "" {
			job.ErrorMessage = nil
		} else {
			msg := *params.ErrorMessage
			job.ErrorMessage = &msg
		}
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

// ListFinishedBefore returns finished or failed jobs completed before cutoff, oldest first.
func (r *ExportJobRepository) ListFinishedBefore(_ context.Context, cutoff time.Time) ([]models.ExportJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]models.ExportJob, 0)
	for _, job := range r.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			result = append(result, *job)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].FinishedAt.Before(*result[j].FinishedAt) })
	return result, nil
}

// Delete forgets a job.
func (r *ExportJobRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
	return nil
}
