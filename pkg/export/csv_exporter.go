package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"
)

// Column describes one table column. Weight scales the column's share of the
// page width in PDF output; zero falls back to an even split.
type Column struct {
	Name   string
	Weight float64
}

// Dataset is the renderer-independent shape of a report: ordered columns and
// one map per row keyed by column name.
type Dataset struct {
	Title       string
	GeneratedAt time.Time
	Columns     []Column
	Rows        []map[string]string
}

// CSVExporter renders a dataset into plain CSV, headers first. Title and
// generation time are deliberately left out so the output loads cleanly into
// spreadsheet tools.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Columns) == 0 {
		return nil, fmt.Errorf("csv requires at least one column")
	}

	header := make([]string, len(data.Columns))
	for i, col := range data.Columns {
		header[i] = col.Name
	}

	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(data.Columns))
	for _, row := range data.Rows {
		for i, col := range data.Columns {
			record[i] = row[col.Name]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
