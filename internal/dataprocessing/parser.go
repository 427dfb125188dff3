package dataprocessing

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "crudetrack/internal/errors"
	"crudetrack/internal/vortexa"
	"crudetrack/pkg/contracts/domain"
)

// requiredColumns must be present in every row of a movements table
var requiredColumns = []string{
	vortexa.ColumnLoadEnd,
	vortexa.ColumnUnloadStart,
	vortexa.ColumnQuantity,
	vortexa.ColumnDestination,
	vortexa.ColumnProductGroup,
	vortexa.ColumnProductGrade,
	vortexa.ColumnSTSEventType,
}

var vesselColumnRe = regexp.MustCompile(`^vessels\.(\d+)\.`)

// DecodeTable converts a projected movements table into typed movements.
// Vessel positions are discovered from the vessels.N.* columns of the
// projection, so any number of legs is supported.
func DecodeTable(table *domain.Table) ([]domain.Movement, error) {
	if table == nil {
		return nil, nil
	}

	vesselCount := countVessels(table.Columns)
	movements := make([]domain.Movement, 0, table.Len())

	for i, row := range table.Rows {
		m, err := decodeRow(i, row, table, vesselCount)
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, nil
}

func decodeRow(i int, row domain.Row, table *domain.Table, vesselCount int) (domain.Movement, error) {
	for _, column := range requiredColumns {
		if _, ok := row[column]; !ok {
			return domain.Movement{}, apperrors.NewDataShapeError(i, column)
		}
	}

	quantity, err := decimalValue(row[vortexa.ColumnQuantity])
	if err != nil {
		return domain.Movement{}, apperrors.NewDataValueError(i, vortexa.ColumnQuantity, row[vortexa.ColumnQuantity], err)
	}

	m := domain.Movement{
		LoadEnd:      stringValue(row[vortexa.ColumnLoadEnd]),
		UnloadStart:  stringValue(row[vortexa.ColumnUnloadStart]),
		Quantity:     quantity,
		Destination:  stringValue(row[vortexa.ColumnDestination]),
		ProductGroup: stringValue(row[vortexa.ColumnProductGroup]),
		Grade:        stringValue(row[vortexa.ColumnProductGrade]),
		STSEventType: stringValue(row[vortexa.ColumnSTSEventType]),
	}

	vessels := make([]domain.Vessel, vesselCount)
	for v := 0; v < vesselCount; v++ {
		for _, attr := range []string{vortexa.VesselName, vortexa.VesselClass, vortexa.VesselCharterer} {
			column := vortexa.VesselColumn(v, attr)
			if !table.HasColumn(column) {
				continue
			}
			raw, ok := row[column]
			if !ok {
				return domain.Movement{}, apperrors.NewDataShapeError(i, column)
			}
			value := stringValue(raw)
			switch attr {
			case vortexa.VesselName:
				vessels[v].Name = value
			case vortexa.VesselClass:
				vessels[v].Class = value
			case vortexa.VesselCharterer:
				vessels[v].Charterer = value
			}
		}
	}
	m.Vessels = trimTrailingVessels(vessels)
	return m, nil
}

func countVessels(columns []string) int {
	count := 0
	for _, column := range columns {
		match := vesselColumnRe.FindStringSubmatch(column)
		if match == nil {
			continue
		}
		idx, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		if idx+1 > count {
			count = idx + 1
		}
	}
	return count
}

// trimTrailingVessels drops positions after the last vessel that carries
// any data. Inner empty positions are kept so indices stay meaningful.
func trimTrailingVessels(vessels []domain.Vessel) []domain.Vessel {
	end := len(vessels)
	for end > 0 {
		v := vessels[end-1]
		if v.Name.Present() || v.Class.Present() || v.Charterer.Present() {
			break
		}
		end--
	}
	return vessels[:end]
}

func stringValue(raw any) domain.Optional[string] {
	switch v := raw.(type) {
	case nil:
		return domain.None[string]()
	case string:
		return domain.Some(v)
	case json.Number:
		return domain.Some(v.String())
	case float64:
		return domain.Some(strconv.FormatFloat(v, 'f', -1, 64))
	case bool:
		return domain.Some(strconv.FormatBool(v))
	default:
		return domain.Some(fmt.Sprint(v))
	}
}

func decimalValue(raw any) (domain.Optional[decimal.Decimal], error) {
	switch v := raw.(type) {
	case nil:
		return domain.None[decimal.Decimal](), nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return domain.None[decimal.Decimal](), err
		}
		return domain.Some(d), nil
	case float64:
		return domain.Some(decimal.NewFromFloat(v)), nil
	case int64:
		return domain.Some(decimal.NewFromInt(v)), nil
	case int:
		return domain.Some(decimal.NewFromInt(int64(v))), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return domain.None[decimal.Decimal](), nil
		}
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return domain.None[decimal.Decimal](), err
		}
		return domain.Some(d), nil
	default:
		return domain.None[decimal.Decimal](), fmt.Errorf("unsupported type %T", raw)
	}
}

// timestampLayouts are the accepted forms of a movement timestamp
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04-0700",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04-07:00",
	"2006-01-02 15:04",
	time.DateOnly,
}

// ReportDateLayout is the DD.MM.YYYY rendering of a timestamp's date
const ReportDateLayout = "02.01.2006"

// ParseTimestamp parses a raw movement timestamp
func ParseTimestamp(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
}

// FormatDate keeps the date component of a timestamp and renders it as
// DD.MM.YYYY, e.g. "2022-03-04 10:15:00" becomes "04.03.2022". It accepts
// exactly the forms ParseTimestamp accepts; the date is taken in the
// timestamp's own offset.
func FormatDate(raw string) (string, error) {
	at, err := ParseTimestamp(raw)
	if err != nil {
		return "", err
	}
	return at.Format(ReportDateLayout), nil
}

// SortByLoadEnd orders movements by load-end time, ascending. The sort is
// stable; movements without a load-end time go last.
func SortByLoadEnd(movements []domain.Movement) {
	sort.SliceStable(movements, func(i, j int) bool {
		a, aok := movements[i].LoadEndAt.Get()
		b, bok := movements[j].LoadEndAt.Get()
		switch {
		case aok && bok:
			return a.Before(b)
		case aok:
			return true
		default:
			return false
		}
	})
}
