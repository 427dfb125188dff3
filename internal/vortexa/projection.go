package vortexa

import (
	"strconv"
	"strings"

	"crudetrack/pkg/contracts/domain"
)

// Columns used by the tracking report
const (
	ColumnLoadEnd      = "events.cargo_port_load_event.0.end_timestamp"
	ColumnUnloadStart  = "events.cargo_port_unload_event.0.start_timestamp"
	ColumnQuantity     = "quantity"
	ColumnDestination  = "events.cargo_port_unload_event.0.location.port.label"
	ColumnProductGroup = "product.group.label"
	ColumnProductGrade = "product.grade.label"
	ColumnSTSEventType = "events.cargo_sts_event.0.event_type"
)

// VesselColumn returns the column path of a vessel attribute at position i
func VesselColumn(i int, attr string) string {
	return "vessels." + strconv.Itoa(i) + "." + attr
}

// Vessel attribute suffixes, relative to vessels.N
const (
	VesselName      = "name"
	VesselClass     = "vessel_class"
	VesselCharterer = "corporate_entities.charterer.label"
)

// DefaultColumns is the projection requested for the tracking report
var DefaultColumns = []string{
	ColumnLoadEnd,
	ColumnUnloadStart,
	VesselColumn(0, VesselName),
	VesselColumn(0, VesselClass),
	VesselColumn(0, VesselCharterer),
	VesselColumn(1, VesselName),
	VesselColumn(1, VesselClass),
	VesselColumn(1, VesselCharterer),
	VesselColumn(2, VesselName),
	VesselColumn(2, VesselClass),
	VesselColumn(2, VesselCharterer),
	ColumnQuantity,
	ColumnDestination,
	ColumnProductGroup,
	ColumnProductGrade,
	ColumnSTSEventType,
}

// discriminators are the fields that name an element inside a list,
// e.g. events are keyed by event_type and product entries by layer.
var discriminators = []string{"event_type", "layer"}

// Project builds a table holding the given columns for every record.
// Every requested column is present in every row; values that cannot be
// resolved are nil.
func Project(records []map[string]any, columns []string) *domain.Table {
	table := &domain.Table{
		Columns: append([]string(nil), columns...),
		Rows:    make([]domain.Row, 0, len(records)),
	}
	for _, record := range records {
		row := make(domain.Row, len(columns))
		for _, column := range columns {
			row[column] = Resolve(record, column)
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// Resolve walks a dotted path through a decoded JSON document and returns
// the scalar at its end, or nil when any segment is missing.
//
// Numeric segments index into lists. A non-numeric segment applied to a
// list selects the elements whose event_type or layer equals the segment;
// if the following segment is numeric it indexes into that selection,
// otherwise the first match is used.
func Resolve(doc any, path string) any {
	segments := strings.Split(path, ".")
	current := doc
	for i := 0; i < len(segments); i++ {
		seg := segments[i]
		switch node := current.(type) {
		case map[string]any:
			current = node[seg]
		case []any:
			if idx, err := strconv.Atoi(seg); err == nil {
				if idx < 0 || idx >= len(node) {
					return nil
				}
				current = node[idx]
				continue
			}
			matches := selectByDiscriminator(node, seg)
			if len(matches) == 0 {
				return nil
			}
			if i+1 < len(segments) {
				if idx, err := strconv.Atoi(segments[i+1]); err == nil {
					if idx < 0 || idx >= len(matches) {
						return nil
					}
					current = matches[idx]
					i++
					continue
				}
			}
			current = matches[0]
		default:
			return nil
		}
		if current == nil {
			return nil
		}
	}

	switch current.(type) {
	case map[string]any, []any:
		return nil
	}
	return current
}

func selectByDiscriminator(items []any, key string) []any {
	var out []any
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for _, field := range discriminators {
			if matchesDiscriminator(obj[field], key) {
				out = append(out, obj)
				break
			}
		}
	}
	return out
}

func matchesDiscriminator(value any, key string) bool {
	switch v := value.(type) {
	case string:
		return v == key
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == key {
				return true
			}
		}
	}
	return false
}
