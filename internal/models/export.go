package models

import "time"

// ExportFormat enumerates supported report formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportStatus captures background export lifecycle states.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "QUEUED"
	ExportStatusProcessing ExportStatus = "PROCESSING"
	ExportStatusFinished   ExportStatus = "FINISHED"
	ExportStatusFailed     ExportStatus = "FAILED"
)

// ExportJob tracks an asynchronous connection report.
type ExportJob struct {
	ID           string           `json:"id"`
	Format       ExportFormat     `json:"format"`
	Status       ExportStatus     `json:"status"`
	Filter       ConnectionFilter `json:"-"`
	ResultURL    *string          `json:"resultUrl,omitempty"`
	ResultPath   string           `json:"-"`
	RowCount     int              `json:"rowCount"`
	ErrorMessage *string          `json:"error,omitempty"`
	CreatedBy    string           `json:"createdBy"`
	CreatedAt    time.Time        `json:"createdAt"`
	FinishedAt   *time.Time       `json:"finishedAt,omitempty"`
}
