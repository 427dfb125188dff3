package exporter

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"crudetrack/pkg/contracts/domain"
)

// VesselSeparator joins the per-vessel values of a multi-leg movement
const VesselSeparator = " → "

// ReportHeaders are the labelled columns of a grade sheet. Data rows carry
// one more, unlabelled, column holding the STS event type.
var ReportHeaders = []string{
	"From",
	"To",
	"Ship",
	"Ship Class",
	"Charterer",
	"Volume",
	"Estimated Volume",
	"Destination",
}

const (
	// DataColumns is the number of cells written per data row
	DataColumns = 9
	// unlabelledColumnWidth is the starting width of the STS column
	unlabelledColumnWidth = 15
	// widthPadding is added to a rendered cell's length when sizing columns
	widthPadding = 2
)

// RenderRow renders a movement into the cells of a report row. Cells are
// strings except Estimated Volume, which is an int64 when the first
// vessel's class has an estimate.
func RenderRow(m domain.Movement) []any {
	return []any{
		m.LoadDate.String(),
		m.UnloadDate.String(),
		strings.Join(m.VesselNames(), VesselSeparator),
		strings.Join(m.VesselClasses(), VesselSeparator),
		strings.Join(m.VesselCharterers(), VesselSeparator),
		m.Quantity.String(),
		estimatedVolumeCell(m),
		m.Destination.String(),
		m.STSEventType.String(),
	}
}

// RenderRecord renders a movement as text cells
func RenderRecord(m domain.Movement) []string {
	cells := RenderRow(m)
	record := make([]string, len(cells))
	for i, cell := range cells {
		record[i] = cellText(cell)
	}
	return record
}

func estimatedVolumeCell(m domain.Movement) any {
	class, ok := m.FirstVesselClass().Get()
	if !ok {
		return ""
	}
	if barrels, ok := domain.EstimatedVolume(class); ok {
		return barrels
	}
	return ""
}

func cellText(cell any) string {
	switch v := cell.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

// columnWidths tracks the auto-fit widths of one sheet
type columnWidths []float64

func newColumnWidths() columnWidths {
	widths := make(columnWidths, 0, DataColumns)
	for _, header := range ReportHeaders {
		widths = append(widths, float64(utf8.RuneCountInString(header)))
	}
	return append(widths, unlabelledColumnWidth)
}

// observe widens each column to fit the rendered cell plus padding
func (w columnWidths) observe(cells []any) {
	for i, cell := range cells {
		if i >= len(w) {
			break
		}
		width := float64(utf8.RuneCountInString(cellText(cell)) + widthPadding)
		if width > w[i] {
			w[i] = width
		}
	}
}
