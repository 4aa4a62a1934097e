package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:       "Conflict Report 2025-07-01 - 2025-07-31",
		GeneratedAt: time.Date(2025, 7, 10, 8, 0, 0, 0, time.UTC),
		Columns: []Column{
			{Name: "Type", Weight: 1},
			{Name: "Severity", Weight: 1},
			{Name: "Description", Weight: 4},
		},
		Rows: []map[string]string{
			{"Type": "DOUBLE_BOOKING", "Severity": "CRITICAL", "Description": "guard is booked on overlapping shifts"},
			{"Type": "SKILL_MISMATCH", "Severity": "MEDIUM", "Description": "level 1 below requirement 2"},
		},
	}
}

func TestCSVExporterKeepsColumnOrder(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t,
		"Type,Severity,Description\n"+
			"DOUBLE_BOOKING,CRITICAL,guard is booked on overlapping shifts\n"+
			"SKILL_MISMATCH,MEDIUM,level 1 below requirement 2\n",
		string(out))
}

func TestCSVExporterRequiresColumns(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRendersDocument(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, len(out) > 0)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestColumnWidthsFollowWeights(t *testing.T) {
	widths := columnWidths([]Column{{Name: "a", Weight: 3}, {Name: "b", Weight: 1}})
	require.Len(t, widths, 2)
	assert.InDelta(t, widths[0], 3*widths[1], 0.001)
	assert.InDelta(t, pdfTableWidth, widths[0]+widths[1], 0.001)
}
