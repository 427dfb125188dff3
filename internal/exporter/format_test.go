package exporter

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crudetrack/pkg/contracts/domain"
)

func vessel(name, class, charterer string) domain.Vessel {
	var v domain.Vessel
	if name != "" {
		v.Name = domain.Some(name)
	}
	if class != "" {
		v.Class = domain.Some(class)
	}
	if charterer != "" {
		v.Charterer = domain.Some(charterer)
	}
	return v
}

func TestRenderRow(t *testing.T) {
	m := domain.Movement{
		LoadDate:     domain.Some("04.03.2022"),
		UnloadDate:   domain.Some("20.03.2022"),
		Quantity:     domain.Some(decimal.NewFromInt(650000)),
		Destination:  domain.Some("Rotterdam [NL]"),
		Grade:        domain.Some("Forties"),
		STSEventType: domain.Some("sts_event"),
		Vessels: []domain.Vessel{
			vessel("Ship A", "suezmax", "Shell"),
			vessel("", "aframax", ""),
			vessel("Ship C", "", "BP"),
		},
	}

	cells := RenderRow(m)
	require.Len(t, cells, DataColumns)
	assert.Equal(t, []any{
		"04.03.2022",
		"20.03.2022",
		"Ship A → Ship C",
		"suezmax → aframax",
		"Shell → BP",
		"650000",
		int64(1000000),
		"Rotterdam [NL]",
		"sts_event",
	}, cells)
}

func TestRenderRow_AbsentValuesRenderEmpty(t *testing.T) {
	cells := RenderRow(domain.Movement{})
	require.Len(t, cells, DataColumns)
	for i, cell := range cells {
		assert.Equal(t, "", cell, "column %d", i)
	}
}

func TestRenderRow_EstimatedVolume(t *testing.T) {
	tests := []struct {
		name     string
		vessels  []domain.Vessel
		expected any
	}{
		{name: "suezmax", vessels: []domain.Vessel{vessel("A", "suezmax", "")}, expected: int64(1000000)},
		{name: "vlcc_plus", vessels: []domain.Vessel{vessel("A", "vlcc_plus", "")}, expected: int64(2000000)},
		{name: "unknown class", vessels: []domain.Vessel{vessel("A", "frigate", "")}, expected: ""},
		{name: "class only on second vessel", vessels: []domain.Vessel{vessel("A", "", ""), vessel("B", "aframax", "")}, expected: ""},
		{name: "no vessels", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cells := RenderRow(domain.Movement{Vessels: tt.vessels})
			assert.Equal(t, tt.expected, cells[6])
		})
	}
}

func TestRenderRecord(t *testing.T) {
	record := RenderRecord(domain.Movement{
		Vessels:  []domain.Vessel{vessel("Ship A", "aframax", "")},
		Quantity: domain.Some(decimal.RequireFromString("512345.5")),
	})
	assert.Equal(t, "Ship A", record[2])
	assert.Equal(t, "512345.5", record[5])
	assert.Equal(t, "600000", record[6])
}

func TestColumnWidths(t *testing.T) {
	widths := newColumnWidths()
	require.Len(t, widths, DataColumns)
	assert.Equal(t, 4.0, widths[0])
	assert.Equal(t, 16.0, widths[6])
	assert.Equal(t, 15.0, widths[8])

	widths.observe([]any{"04.03.2022", "", "Überseeschiff", "", "", "", int64(1000000), "", ""})
	assert.Equal(t, 12.0, widths[0])
	assert.Equal(t, 2.0, widths[1], "an empty cell never exceeds the header width")
	assert.Equal(t, 15.0, widths[2], "width counts runes, not bytes")
	assert.Equal(t, 16.0, widths[6])
	assert.Equal(t, 15.0, widths[8])
}
