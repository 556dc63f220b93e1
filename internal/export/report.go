package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-extract/internal/entity"
	"github.com/joseph-ayodele/invoice-extract/internal/repository"
)

const Sheet = "Invoices"

// Row is one line of a batch report.
type Row struct {
	SourcePath string
	Result     entity.ExtractionResult
	Err        string // set when the document was rejected
}

var headers = []string{
	"File",
	"Platform",
	"Method",
	"Confidence",
	"Product",
	"Order ID",
	"Invoice Number",
	"Order Date",
	"Invoice Date",
	"Price",
	"Vendor",
	"Tax Code",
	"Warnings / Error",
}

// Service produces XLSX bytes from pipeline results.
type Service struct {
	repo   repository.ExtractionRepository
	logger *slog.Logger
}

// NewService accepts a nil repo when only WriteXLSX is used.
func NewService(repo repository.ExtractionRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ExportRecentXLSX renders the latest stored extractions.
func (s *Service) ExportRecentXLSX(ctx context.Context, limit int) ([]byte, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("export: no result store configured")
	}
	recs, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query extractions: %w", err)
	}
	rows := make([]Row, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, Row{SourcePath: r.SourcePath, Result: r.Result})
	}
	return s.WriteXLSX(rows)
}

// WriteXLSX renders rows into a single-sheet workbook.
func (s *Service) WriteXLSX(rows []Row) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", Sheet); err != nil {
		return nil, err
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(Sheet, cell, h)
	}

	for i, r := range rows {
		line := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, line)
			_ = f.SetCellValue(Sheet, cell, v)
		}
		res := r.Result
		write(1, r.SourcePath)
		if r.Err != "" {
			write(13, truncate(r.Err, 240))
			continue
		}
		write(2, string(res.Platform))
		write(3, string(res.ExtractionMethod))
		write(4, res.ConfidenceScore)
		write(5, entity.Deref(res.Fields.ProductName))
		write(6, entity.Deref(res.Fields.OrderID))
		write(7, entity.Deref(res.Fields.InvoiceNumber))
		write(8, entity.Deref(res.Fields.OrderDate))
		write(9, entity.Deref(res.Fields.InvoiceDate))
		if res.Fields.Price != nil {
			write(10, res.Fields.Price.InexactFloat64())
		}
		write(11, entity.Deref(res.Fields.Vendor))
		write(12, entity.Deref(res.Fields.TaxCode))
		write(13, truncate(strings.Join(res.Warnings, "; "), 240))
	}

	_ = f.SetColWidth(Sheet, "A", "A", 48) // file
	_ = f.SetColWidth(Sheet, "B", "D", 14)
	_ = f.SetColWidth(Sheet, "E", "E", 48) // product
	_ = f.SetColWidth(Sheet, "F", "L", 22)
	_ = f.SetColWidth(Sheet, "M", "M", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok", "rows", len(rows), "elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if n <= 0 || len([]rune(s)) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
