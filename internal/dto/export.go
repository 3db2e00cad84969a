package dto

import "github.com/noah-isme/inventory-report-api/internal/models"

// ExportRequest captures the POST /reports/exports payload.
type ExportRequest struct {
	ReportRequest
	Format string `json:"format" validate:"required,oneof=csv pdf xlsx CSV PDF XLSX"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes export progress metadata.
type ExportStatusResponse struct {
	ID         string              `json:"id"`
	ReportType models.ReportType   `json:"reportType"`
	Format     string              `json:"format"`
	Status     models.ExportStatus `json:"status"`
	Progress   int                 `json:"progress"`
	ResultURL  *string             `json:"resultUrl,omitempty"`
	Error      *string             `json:"error,omitempty"`
}
