package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "crudetrack/internal/errors"
	"crudetrack/internal/shared/testutil"
	"crudetrack/internal/vortexa"
	"crudetrack/pkg/contracts/domain"
)

func TestTransformer_Transform(t *testing.T) {
	table := tableOf(
		movementRow(map[string]any{
			vortexa.ColumnLoadEnd:      "2022-03-04T10:15:00+0000",
			vortexa.ColumnUnloadStart:  "2022-03-20 08:00:00",
			vortexa.ColumnProductGroup: "Crude/Condensates",
			vortexa.ColumnProductGrade: "Forties",
		}),
		movementRow(map[string]any{
			vortexa.ColumnLoadEnd:      "2022-02-01T00:00:00+0000",
			vortexa.ColumnProductGroup: "Crude/Condensates",
			vortexa.ColumnProductGrade: "Unknown Grade",
		}),
		movementRow(map[string]any{
			vortexa.ColumnLoadEnd:      "2022-01-15T00:00:00+0000",
			vortexa.ColumnProductGroup: "Clean Petroleum Products",
			vortexa.ColumnProductGrade: "Forties",
		}),
		movementRow(map[string]any{
			vortexa.ColumnLoadEnd:      "2022-01-10T00:00:00+0000",
			vortexa.ColumnProductGroup: "Crude/Condensates",
			vortexa.ColumnProductGrade: "Brent Blend",
		}),
	)

	logger, handler := testutil.NewTestLogger(t)
	result, err := NewTransformer("", domain.DefaultGrades, logger).Transform(context.Background(), table)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Fetched)
	assert.Equal(t, 3, result.Crude)
	require.Len(t, result.Movements, 2)

	first, second := result.Movements[0], result.Movements[1]
	assert.Equal(t, "Brent Blend", first.Grade.OrElse(""))
	assert.Equal(t, "10.01.2022", first.LoadDate.OrElse(""))
	assert.False(t, first.UnloadDate.Present())

	assert.Equal(t, "Forties", second.Grade.OrElse(""))
	assert.Equal(t, "04.03.2022", second.LoadDate.OrElse(""))
	assert.Equal(t, "20.03.2022", second.UnloadDate.OrElse(""))

	testutil.AssertLogContains(t, handler, slog.LevelInfo, "Movements transformed")
	testutil.AssertLogAttr(t, handler, "reported", int64(2))
}

func TestTransformer_MalformedTimestampIsFatal(t *testing.T) {
	table := tableOf(movementRow(map[string]any{
		vortexa.ColumnLoadEnd:      "yesterday",
		vortexa.ColumnProductGroup: "Clean Petroleum Products",
	}))

	_, err := NewTransformer("", domain.DefaultGrades, nil).Transform(context.Background(), table)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeTimestamp))
}

func TestTransformer_MalformedUnloadTimestamp(t *testing.T) {
	table := tableOf(movementRow(map[string]any{
		vortexa.ColumnLoadEnd:     "2022-01-01",
		vortexa.ColumnUnloadStart: "2022-02-30",
	}))

	_, err := NewTransformer("", domain.DefaultGrades, nil).Transform(context.Background(), table)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeTimestamp))
}

// Every surviving movement satisfies the category and grade filters, and
// the output is ordered by load-end time.
func TestTransformer_FilterAndOrderInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	groups := []any{"Crude/Condensates", "crude/condensates", "Dirty Petroleum Products", nil}
	grades := []any{"Forties", "Skarv", "Kraken", "Unknown Grade", "forties", nil}

	var rows []domain.Row
	for i := 0; i < 300; i++ {
		day := rng.Intn(120)
		rows = append(rows, movementRow(map[string]any{
			vortexa.ColumnLoadEnd:      time.Date(2022, 1, 1, rng.Intn(24), 0, 0, 0, time.UTC).AddDate(0, 0, day).Format(time.RFC3339),
			vortexa.ColumnProductGroup: groups[rng.Intn(len(groups))],
			vortexa.ColumnProductGrade: grades[rng.Intn(len(grades))],
			vortexa.ColumnDestination:  fmt.Sprintf("port-%d", i),
		}))
	}

	allowed := domain.NewGradeSet(domain.DefaultGrades)
	result, err := NewTransformer("", domain.DefaultGrades, nil).Transform(context.Background(), tableOf(rows...))
	require.NoError(t, err)
	require.NotEmpty(t, result.Movements)

	for i, m := range result.Movements {
		assert.Equal(t, domain.ProductGroupCrude, m.ProductGroup.OrElse(""))
		assert.True(t, allowed.Contains(m.Grade.OrElse("")))
		if i > 0 {
			prev, _ := result.Movements[i-1].LoadEndAt.Get()
			cur, _ := m.LoadEndAt.Get()
			assert.False(t, cur.Before(prev), "movements must be non-decreasing by load end")
		}
	}
}
