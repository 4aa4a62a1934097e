package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vgs-ops/shift-ops-api/pkg/export"
	"github.com/vgs-ops/shift-ops-api/pkg/storage"
)

// ReportFormat is the rendered output format for a conflict report.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type reportBuilder interface {
	Report(ctx context.Context, from, to time.Time) (*ConflictReport, bool, error)
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
	Format       ReportFormat
	ExpiresAt    time.Time
}

// ExportService renders conflict reports to downloadable files with signed
// URLs.
type ExportService struct {
	reports reportBuilder
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// NewExportService constructs an ExportService.
func NewExportService(reports reportBuilder, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
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
		reports: reports,
		storage: files,
		csv:     csv,
		pdf:     pdf,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// Generate builds the open-conflict report for the window and stores the
// rendered file.
func (s *ExportService) Generate(ctx context.Context, from, to time.Time, format ReportFormat) (*ExportResult, error) {
	report, _, err := s.reports.Report(ctx, from, to)
	if err != nil {
		return nil, err
	}

	dataset := buildConflictDataset(report)

	var payload []byte
	switch format {
	case ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ReportFormatPDF:
		payload, err = s.pdf.Render(dataset)
	default:
		err = fmt.Errorf("unsupported format %s", format)
	}
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("conflicts_%s_%s_%s.%s",
		from.Format("20060102"), to.Format("20060102"),
		time.Now().UTC().Format("20060102_150405"), format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	reportID := fmt.Sprintf("conflicts-%s-%s", from.Format("20060102"), to.Format("20060102"))
	token, expiresAt, err := s.signer.Generate(reportID, relPath)
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
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (reportID, relPath string, expiresAt time.Time, err error) {
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

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func buildConflictDataset(report *ConflictReport) export.Dataset {
	// Free-text columns get most of the page; identifiers stay narrow.
	columns := []export.Column{
		{Name: "Detected At", Weight: 2},
		{Name: "Type", Weight: 1.5},
		{Name: "Severity", Weight: 1},
		{Name: "Guard ID", Weight: 1},
		{Name: "Shift ID", Weight: 1},
		{Name: "Second Shift ID", Weight: 1},
		{Name: "Description", Weight: 4},
		{Name: "Suggested Action", Weight: 3},
	}
	rows := make([]map[string]string, 0, len(report.Conflicts))
	for i := range report.Conflicts {
		c := &report.Conflicts[i]
		rows = append(rows, map[string]string{
			"Detected At":      c.DetectedAt.UTC().Format(time.RFC3339),
			"Type":             string(c.Type),
			"Severity":         string(c.Severity),
			"Guard ID":         c.GuardID,
			"Shift ID":         c.ShiftID,
			"Second Shift ID":  derefString(c.SecondShiftID),
			"Description":      c.Description,
			"Suggested Action": derefString(c.SuggestedAction),
		})
	}
	return export.Dataset{
		Title:       fmt.Sprintf("Conflict Report %s - %s", report.From.Format("2006-01-02"), report.To.Format("2006-01-02")),
		GeneratedAt: report.GeneratedAt,
		Columns:     columns,
		Rows:        rows,
	}
}

func derefString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
