package models

import "time"

// ExportStatus captures background export lifecycle states.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "QUEUED"
	ExportStatusProcessing ExportStatus = "PROCESSING"
	ExportStatusFinished   ExportStatus = "FINISHED"
	ExportStatusFailed     ExportStatus = "FAILED"
)

// ExportJob tracks an asynchronous report rendition along with the request it renders.
type ExportJob struct {
	ID           string                 `json:"id"`
	ReportType   ReportType             `json:"reportType"`
	Format       string                 `json:"format"`
	Window       DateRange              `json:"-"`
	Parameters   map[string]interface{} `json:"-"`
	Status       ExportStatus           `json:"status"`
	Progress     int                    `json:"progress"`
	FilePath     string                 `json:"-"`
	ResultURL    *string                `json:"resultUrl,omitempty"`
	ErrorMessage *string                `json:"error,omitempty"`
	CreatedBy    string                 `json:"createdBy,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
	FinishedAt   *time.Time             `json:"finishedAt,omitempty"`
}
