package operations_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"crudetrack/internal/dataprocessing"
	apperrors "crudetrack/internal/errors"
	"crudetrack/internal/exporter"
	"crudetrack/internal/operations"
	"crudetrack/internal/store"
	"crudetrack/internal/store/sqlite"
	"crudetrack/internal/vortexa"
	"crudetrack/pkg/contracts/domain"
)

var (
	windowFrom = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	windowTo   = time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC)
)

// fakeSource returns a canned table
type fakeSource struct {
	table *domain.Table
	err   error
	calls int
}

func (s *fakeSource) Search(ctx context.Context, q vortexa.Query) (*domain.Table, error) {
	s.calls++
	return s.table, s.err
}

// movementRow builds a fully projected row with the given overrides
func movementRow(grade, loadEnd, vessel string) domain.Row {
	row := make(domain.Row, len(vortexa.DefaultColumns))
	for _, column := range vortexa.DefaultColumns {
		row[column] = nil
	}
	row[vortexa.ColumnProductGroup] = domain.ProductGroupCrude
	row[vortexa.ColumnProductGrade] = grade
	row[vortexa.ColumnLoadEnd] = loadEnd
	row[vortexa.ColumnQuantity] = json.Number("650000")
	row[vortexa.VesselColumn(0, vortexa.VesselName)] = vessel
	row[vortexa.VesselColumn(0, vortexa.VesselClass)] = "suezmax"
	return row
}

func sampleTable() *domain.Table {
	return &domain.Table{
		Columns: vortexa.DefaultColumns,
		Rows: []domain.Row{
			movementRow("Forties", "2022-03-04T10:15:00+0000", "Ship B"),
			movementRow("Unknown Grade", "2022-02-01T00:00:00+0000", "Ship X"),
			movementRow("Forties", "2022-03-01T08:00:00+0000", "Ship A"),
		},
	}
}

func newTransformer() *dataprocessing.Transformer {
	return dataprocessing.NewTransformer(domain.ProductGroupCrude, domain.DefaultGrades, discardLogger())
}

func stateWithTable(table *domain.Table) *operations.OperationState {
	state := operations.NewOperationState("run-1")
	state.SetContext(operations.ContextKeyTable, table)
	return state
}

func stateWithResult(t *testing.T, table *domain.Table) *operations.OperationState {
	t.Helper()
	state := stateWithTable(table)
	require.NoError(t, operations.NewTransformStage(newTransformer(), nil).Execute(context.Background(), state))
	return state
}

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFetchStage(t *testing.T) {
	source := &fakeSource{table: sampleTable()}
	stage := operations.NewFetchStage(source, vortexa.Query{TimeMin: windowFrom, TimeMax: windowTo}, discardLogger())
	state := operations.NewOperationState("run-1")

	require.NoError(t, stage.Validate(state))
	require.NoError(t, stage.Execute(context.Background(), state))

	table, ok := state.Table()
	require.True(t, ok)
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, 1, source.calls)
}

func TestFetchStage_Validate(t *testing.T) {
	state := operations.NewOperationState("run-1")

	noSource := operations.NewFetchStage(nil, vortexa.Query{TimeMin: windowFrom, TimeMax: windowTo}, nil)
	assert.True(t, apperrors.IsType(noSource.Validate(state), apperrors.ErrorTypeValidation))

	emptyWindow := operations.NewFetchStage(&fakeSource{}, vortexa.Query{TimeMin: windowTo, TimeMax: windowTo}, nil)
	assert.True(t, apperrors.IsType(emptyWindow.Validate(state), apperrors.ErrorTypeValidation))
}

func TestFetchStage_QueryError(t *testing.T) {
	source := &fakeSource{err: apperrors.NewQueryError("vortexa: status 500", nil)}
	stage := operations.NewFetchStage(source, vortexa.Query{TimeMin: windowFrom, TimeMax: windowTo}, nil)

	err := stage.Execute(context.Background(), operations.NewOperationState("run-1"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeQuery))
}

func TestSnapshotStage_SavesAndReplays(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	state := stateWithTable(sampleTable())
	require.NoError(t, operations.NewSnapshotStage(st, windowFrom, windowTo, nil).Execute(ctx, state))
	savedID := state.SnapshotID()
	require.NotEmpty(t, savedID)

	replayState := operations.NewOperationState("run-2")
	replay := operations.NewReplayStage(st, operations.LatestSnapshot, nil)
	require.NoError(t, replay.Validate(replayState))
	require.NoError(t, replay.Execute(ctx, replayState))

	assert.True(t, replayState.Replayed())
	assert.Equal(t, savedID, replayState.SnapshotID())
	table, ok := replayState.Table()
	require.True(t, ok)
	assert.Equal(t, 3, table.Len())

	byID := operations.NewOperationState("run-3")
	require.NoError(t, operations.NewReplayStage(st, savedID, nil).Execute(ctx, byID))
	assert.Equal(t, savedID, byID.SnapshotID())

	err := operations.NewSnapshotStage(st, windowFrom, windowTo, nil).Execute(ctx, replayState)
	reason, skipped := operations.IsSkip(err)
	assert.True(t, skipped, "a replayed table is not stored again")
	assert.Contains(t, reason, "replayed")
}

func TestSnapshotStage_NoStoreSkips(t *testing.T) {
	err := operations.NewSnapshotStage(nil, windowFrom, windowTo, nil).Execute(context.Background(), stateWithTable(sampleTable()))
	_, skipped := operations.IsSkip(err)
	assert.True(t, skipped)
}

func TestSnapshotStage_RequiresTable(t *testing.T) {
	err := operations.NewSnapshotStage(&store.NopStore{}, windowFrom, windowTo, nil).Validate(operations.NewOperationState("run-1"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestReplayStage_Errors(t *testing.T) {
	state := operations.NewOperationState("run-1")

	assert.Error(t, operations.NewReplayStage(nil, "", nil).Validate(state))

	err := operations.NewReplayStage(newStore(t), "", nil).Execute(context.Background(), state)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), "an empty database has nothing to replay")

	err = operations.NewReplayStage(newStore(t), "missing-id", nil).Execute(context.Background(), state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing-id")
}

func TestTransformStage(t *testing.T) {
	state := stateWithResult(t, sampleTable())

	result, ok := state.Result()
	require.True(t, ok)
	assert.Equal(t, 3, result.Fetched)
	assert.Equal(t, 3, result.Crude)
	require.Len(t, result.Movements, 2)
	assert.Equal(t, "Ship A", result.Movements[0].VesselNames()[0], "sorted by load end")
}

func TestTransformStage_TimestampError(t *testing.T) {
	table := sampleTable()
	table.Rows[1][vortexa.ColumnLoadEnd] = "not a timestamp"

	err := operations.NewTransformStage(newTransformer(), nil).Execute(context.Background(), stateWithTable(table))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeTimestamp))
}

func TestReportStage_WritesWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "tracking.xlsx")
	state := stateWithResult(t, sampleTable())

	stage := operations.NewReportStage(path, nil, nil, discardLogger())
	require.NoError(t, stage.Validate(state))
	require.NoError(t, stage.Execute(context.Background(), state))

	reportPath, _ := state.GetContext(operations.ContextKeyReportPath)
	assert.Equal(t, path, reportPath)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Forties"}, f.GetSheetList())
}

func TestReportStage_OpenFailure(t *testing.T) {
	stage := operations.NewReportStage("tracking.xlsx", func(string) (exporter.SheetWriter, error) {
		return nil, errors.New("read-only filesystem")
	}, nil, discardLogger())

	err := stage.Execute(context.Background(), stateWithResult(t, sampleTable()))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeReport))
}

func TestReportStage_Validate(t *testing.T) {
	assert.Error(t, operations.NewReportStage("", nil, nil, nil).Validate(stateWithResult(t, sampleTable())))
	assert.Error(t, operations.NewReportStage("tracking.xlsx", nil, nil, nil).Validate(operations.NewOperationState("run-1")))
}

func TestExportCSVStage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movements.csv")
	state := stateWithResult(t, sampleTable())

	require.NoError(t, operations.NewExportCSVStage(path, discardLogger()).Execute(context.Background(), state))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(string(content), "\ufeff")), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "STS Event Type")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(lines[1]), "Forties"))

	_, skipped := operations.IsSkip(operations.NewExportCSVStage("", nil).Execute(context.Background(), state))
	assert.True(t, skipped)
}

func TestSummaryStage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	state := stateWithResult(t, sampleTable())

	require.NoError(t, operations.NewSummaryStage(path, discardLogger()).Execute(context.Background(), state))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var payload struct {
		Count  int `json:"count"`
		Grades []struct {
			Grade     string `json:"grade"`
			Movements int    `json:"movements"`
		} `json:"grades"`
	}
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, 1, payload.Count)
	require.Len(t, payload.Grades, 1)
	assert.Equal(t, "Forties", payload.Grades[0].Grade)
	assert.Equal(t, 2, payload.Grades[0].Movements)

	_, skipped := operations.IsSkip(operations.NewSummaryStage("", nil).Execute(context.Background(), state))
	assert.True(t, skipped)
}

const searchResponse = `{"total": 3, "next_request": null, "data": [
  {"quantity": 650000,
   "vessels": [{"name": "Ship B", "vessel_class": "suezmax",
                "corporate_entities": [{"layer": ["charterer"], "label": "Equinor"}]}],
   "product": [{"layer": ["group"], "label": "Crude/Condensates"}, {"layer": ["grade"], "label": "Forties"}],
   "events": [{"event_type": "cargo_port_load_event", "end_timestamp": "2022-03-04T10:15:00+0000"},
              {"event_type": "cargo_port_unload_event", "start_timestamp": "2022-03-20T08:00:00+0000",
               "location": {"port": {"label": "Rotterdam [NL]"}}}]},
  {"quantity": 300000,
   "vessels": [{"name": "Ship X", "vessel_class": "aframax", "corporate_entities": []}],
   "product": [{"layer": ["group"], "label": "Crude/Condensates"}, {"layer": ["grade"], "label": "Unknown Grade"}],
   "events": [{"event_type": "cargo_port_load_event", "end_timestamp": "2022-02-01T00:00:00+0000"}]},
  {"quantity": 700000,
   "vessels": [{"name": "Ship A", "vessel_class": "vlcc_plus", "corporate_entities": []},
               {"name": null, "vessel_class": null, "corporate_entities": []},
               {"name": "Ship C", "vessel_class": "suezmax", "corporate_entities": []}],
   "product": [{"layer": ["group"], "label": "Crude/Condensates"}, {"layer": ["grade"], "label": "Forties"}],
   "events": [{"event_type": "cargo_port_load_event", "end_timestamp": "2022-03-01T08:00:00+0000"},
              {"event_type": "cargo_sts_event", "start_timestamp": "2022-03-10T00:00:00+0000"}]}
]}`

// TestPipeline_EndToEnd runs fetch, snapshot, transform and report against
// a fake movements service and reads the workbook back.
func TestPipeline_EndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret-token", r.URL.Query().Get("apikey"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, searchResponse)
	}))
	defer server.Close()

	client, err := vortexa.NewClient(vortexa.Config{
		BaseURL:         server.URL,
		APIKey:          "secret-token",
		RateLimitPerSec: 1000,
		RateLimitBurst:  1000,
	}, discardLogger())
	require.NoError(t, err)

	dir := t.TempDir()
	output := filepath.Join(dir, "tracking.xlsx")
	st := newStore(t)

	pipeline := operations.NewPipeline(nil, discardLogger(),
		operations.NewFetchStage(client, vortexa.Query{TimeMin: windowFrom, TimeMax: windowTo}, discardLogger()),
		operations.NewSnapshotStage(st, windowFrom, windowTo, discardLogger()),
		operations.NewTransformStage(newTransformer(), nil),
		operations.NewReportStage(output, nil, nil, discardLogger()),
		operations.NewExportCSVStage("", discardLogger()),
	)

	state := operations.NewOperationState("run-1")
	require.NoError(t, pipeline.Run(context.Background(), state))
	assert.Equal(t, operations.StepStatusSkipped, state.GetStage(operations.StageIDExportCSV).GetStatus())

	f, err := excelize.OpenFile(output)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Forties"}, f.GetSheetList())

	rows, err := f.GetRows("Forties")
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus two Forties movements")
	assert.Equal(t, exporter.ReportHeaders, rows[0])

	first := rows[1]
	assert.Equal(t, "01.03.2022", first[0])
	assert.Equal(t, "Ship A → Ship C", first[2])
	assert.Equal(t, "vlcc_plus → suezmax", first[3])
	assert.Equal(t, "700000", first[5])
	assert.Equal(t, "2000000", first[6])
	require.Len(t, first, exporter.DataColumns)
	assert.Equal(t, "cargo_sts_event", first[8])

	second := rows[2]
	assert.Equal(t, "04.03.2022", second[0])
	assert.Equal(t, "20.03.2022", second[1])
	assert.Equal(t, "Equinor", second[4])
	assert.Equal(t, "Rotterdam [NL]", second[7])

	snapshot, err := st.LatestSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, state.SnapshotID(), snapshot.ID)
	assert.Equal(t, 3, snapshot.Table.Len(), "the raw table is stored before filtering")
}
