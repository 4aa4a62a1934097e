package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders a dataset into a landscape A4 table. Column weights
// from the dataset drive the width split, which keeps wide free-text columns
// readable next to narrow identifier columns.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

const pdfTableWidth = 277.0 // A4 landscape minus the 10mm side margins

// Render creates the PDF document for the dataset.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Columns) == 0 {
		return nil, fmt.Errorf("pdf requires at least one column")
	}

	widths := columnWidths(data.Columns)
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)

	pdf.SetHeaderFunc(func() {
		if data.Title != "" {
			pdf.SetFont("Arial", "B", 13)
			pdf.CellFormat(0, 8, data.Title, "", 1, "C", false, 0, "")
		}
		if !data.GeneratedAt.IsZero() {
			pdf.SetFont("Arial", "", 8)
			pdf.CellFormat(0, 5, "generated "+data.GeneratedAt.UTC().Format(time.RFC3339), "", 1, "C", false, 0, "")
		}
		pdf.Ln(3)
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, col := range data.Columns {
			pdf.CellFormat(widths[i], 7, col.Name, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Arial", "", 8)
	for rowIdx, row := range data.Rows {
		fill := rowIdx%2 == 1
		if fill {
			pdf.SetFillColor(245, 245, 245)
		}
		for i, col := range data.Columns {
			pdf.CellFormat(widths[i], 6, row[col.Name], "1", 0, "", fill, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(cols []Column) []float64 {
	total := 0.0
	for _, col := range cols {
		if col.Weight > 0 {
			total += col.Weight
		} else {
			total++
		}
	}
	widths := make([]float64, len(cols))
	for i, col := range cols {
		w := col.Weight
		if w <= 0 {
			w = 1
		}
		widths[i] = pdfTableWidth * w / total
	}
	return widths
}
