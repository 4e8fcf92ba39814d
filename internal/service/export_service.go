package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/alumni-mentorship-api/internal/dto"
	"github.com/noah-isme/alumni-mentorship-api/internal/models"
	"github.com/noah-isme/alumni-mentorship-api/pkg/export"
	"github.com/noah-isme/alumni-mentorship-api/pkg/storage"
)

const exportPageSize = 100

type connectionLister interface {
	List(ctx context.Context, query dto.ConnectionQuery) ([]models.ConnectionView, *models.Pagination, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	RowCount     int
	ExpiresAt    time.Time
}

// ExportService renders connection reports and stores them behind signed URLs.
type ExportService struct {
	connections connectionLister
	storage     fileStorage
	csv         datasetRenderer
	pdf         datasetRenderer
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
	cfg         ExportConfig
	now         func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the
// pkg/export implementations.
func NewExportService(connections connectionLister, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv, pdf datasetRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		connections: connections,
		storage:     files,
		csv:         csv,
		pdf:         pdf,
		signer:      signer,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Generate renders the job's connection report, saves it and signs a download URL.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, err := s.buildDataset(ctx, job.Filter)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset)
	default:
		err = fmt.Errorf("unsupported format %s", job.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download/%s", prefix, token),
		RowCount:     len(dataset.Rows),
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, defaulting to the configured result TTL.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	status := "all"
	if job.Filter.Status != "" {
		status = string(job.Filter.Status)
	}
	return fmt.Sprintf("connections_%s_%s_%s.%s", status, s.now().UTC().Format("20060102_150405"), job.ID, job.Format)
}

var connectionReportHeaders = []string{"ID", "Mentor", "Mentee", "Status", "Start Date", "End Date", "Notes"}

func (s *ExportService) buildDataset(ctx context.Context, filter models.ConnectionFilter) (export.Dataset, error) {
	title := "Mentorship Connections"
	if filter.Status != "" {
		title = fmt.Sprintf("%s (%s)", title, filter.Status)
	}
	dataset := export.Dataset{Title: title, Headers: connectionReportHeaders}

	for page := 1; ; page++ {
		items, pagination, err := s.connections.List(ctx, dto.ConnectionQuery{
			Status:    filter.Status,
			MentorID:  filter.MentorID,
			MenteeID:  filter.MenteeID,
			SortBy:    "start_date",
			SortOrder: "asc",
			Page:      page,
			PageSize:  exportPageSize,
		})
		if err != nil {
			return export.Dataset{}, err
		}
		for _, item := range items {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"ID":         item.ID,
				"Mentor":     displayName(item.MentorName, item.MentorID),
				"Mentee":     displayName(item.MenteeName, item.MenteeID),
				"Status":     string(item.Status),
				"Start Date": item.StartDate.Format(dateLayout),
				"End Date":   item.EndDate.Format(dateLayout),
				"Notes":      item.Notes,
			})
		}
		if len(items) == 0 || page*pagination.PageSize >= pagination.TotalCount {
			break
		}
	}
	s.logger.Debug("connection report built", zap.String("title", title), zap.Int("rows", len(dataset.Rows)))
	return dataset, nil
}

func displayName(name, id string) string {
	if name == "" {
		return id
	}
	return name
}
