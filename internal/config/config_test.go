package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "crudetrack/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// noEnvFile points Load at a dotenv file that does not exist
func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(LoadOptions{EnvFile: noEnvFile(t)})
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.Vortexa.BaseURL)
	assert.Equal(t, "api_key.txt", cfg.Vortexa.KeyFile)
	assert.Equal(t, "any_activity", cfg.Vortexa.Activity)
	assert.Equal(t, "b", cfg.Vortexa.Unit)
	assert.Equal(t, "tracking.xlsx", cfg.Report.OutputPath)
	assert.Equal(t, "Crude/Condensates", cfg.Report.Category)
	assert.Len(t, cfg.Report.Grades, 25)
	assert.Empty(t, cfg.Store.Path)
	assert.Equal(t, "none", cfg.Telemetry.TraceExporter)

	from, to, err := cfg.Window()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC), to)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	configFile := writeFile(t, dir, "tracker.yaml", `
vortexa:
  from: "2022-02-01"
  page_size: 100
  timeout: 30s
report:
  output_path: out/report.xlsx
  grades: [Forties, Kraken]
logging:
  level: debug
`)

	t.Setenv("TRACKER_VORTEXA_PAGE_SIZE", "250")
	t.Setenv("TRACKER_REPORT_CSV_PATH", "out/movements.csv")

	cfg, err := Load(LoadOptions{ConfigFile: configFile, EnvFile: noEnvFile(t)})
	require.NoError(t, err)

	assert.Equal(t, "2022-02-01", cfg.Vortexa.From, "file overrides defaults")
	assert.Equal(t, "2022-05-01", cfg.Vortexa.To, "keys absent from the file keep defaults")
	assert.Equal(t, 250, cfg.Vortexa.PageSize, "env overrides file")
	assert.Equal(t, 30*time.Second, cfg.Vortexa.Timeout)
	assert.Equal(t, "out/report.xlsx", cfg.Report.OutputPath)
	assert.Equal(t, "out/movements.csv", cfg.Report.CSVPath)
	assert.Equal(t, []string{"Forties", "Kraken"}, cfg.Report.Grades)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvGradesList(t *testing.T) {
	t.Setenv("TRACKER_REPORT_GRADES", "Forties,West Texas Intermediate (WTI)")

	cfg, err := Load(LoadOptions{EnvFile: noEnvFile(t)})
	require.NoError(t, err)
	assert.Equal(t, []string{"Forties", "West Texas Intermediate (WTI)"}, cfg.Report.Grades)
}

func TestLoad_DotEnvFile(t *testing.T) {
	const key = "TRACKER_STORE_PATH"
	t.Setenv(key, "")
	os.Unsetenv(key)

	envFile := writeFile(t, t.TempDir(), ".env", key+"=snapshots.db\n")
	cfg, err := Load(LoadOptions{EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, "snapshots.db", cfg.Store.Path)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml"), EnvFile: noEnvFile(t)})
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	configFile := writeFile(t, t.TempDir(), "tracker.yaml", "vortexa: [unclosed")
	_, err := Load(LoadOptions{ConfigFile: configFile, EnvFile: noEnvFile(t)})
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "bad date", mutate: func(c *Config) { c.Vortexa.From = "01.01.2022" }, wantErr: "Vortexa.From"},
		{name: "empty window", mutate: func(c *Config) { c.Vortexa.To = c.Vortexa.From }, wantErr: "window is empty"},
		{name: "inverted window", mutate: func(c *Config) { c.Vortexa.From, c.Vortexa.To = "2022-05-01", "2022-01-01" }, wantErr: "window is empty"},
		{name: "bad base url", mutate: func(c *Config) { c.Vortexa.BaseURL = "not a url" }, wantErr: "Vortexa.BaseURL"},
		{name: "zero page size", mutate: func(c *Config) { c.Vortexa.PageSize = 0 }, wantErr: "Vortexa.PageSize"},
		{name: "no grades", mutate: func(c *Config) { c.Report.Grades = nil }, wantErr: "Report.Grades"},
		{name: "blank grade", mutate: func(c *Config) { c.Report.Grades = []string{"Forties", ""} }, wantErr: "Report.Grades[1]"},
		{name: "unknown log level", mutate: func(c *Config) { c.Logging.Level = "verbose" }, wantErr: "Logging.Level"},
		{name: "file logging needs a path", mutate: func(c *Config) { c.Logging.Output = "file"; c.Logging.FilePath = "" }, wantErr: "Logging.FilePath"},
		{name: "unknown exporter", mutate: func(c *Config) { c.Telemetry.TraceExporter = "otlp" }, wantErr: "Telemetry.TraceExporter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadAPIKey(t *testing.T) {
	dir := t.TempDir()

	t.Run("trims whitespace", func(t *testing.T) {
		key, err := LoadAPIKey(writeFile(t, dir, "key.txt", "  secret-token \n"))
		require.NoError(t, err)
		assert.Equal(t, "secret-token", key)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadAPIKey(filepath.Join(dir, "absent.txt"))
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeCredential))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("blank file", func(t *testing.T) {
		_, err := LoadAPIKey(writeFile(t, dir, "blank.txt", " \n\t"))
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrEmptyCredential)
	})
}

func TestResolvePaths(t *testing.T) {
	cfg := Default()
	cfg.Report.CSVPath = "out/movements.csv"
	cfg.Store.Path = "/var/lib/tracker/snapshots.db"

	paths, err := cfg.ResolvePaths("/work")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/work", "api_key.txt"), paths.KeyFile)
	assert.Equal(t, filepath.Join("/work", "tracking.xlsx"), paths.Output)
	assert.Equal(t, filepath.Join("/work", "out", "movements.csv"), paths.CSV)
	assert.Equal(t, "/var/lib/tracker/snapshots.db", paths.Database)
	assert.Empty(t, paths.Summary)
	assert.Empty(t, paths.LogFile, "console logging has no file")
}

func TestPaths_EnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.Report.OutputPath = "reports/2022/tracking.xlsx"

	paths, err := cfg.ResolvePaths(base)
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())
	assert.True(t, FileExists(filepath.Join(base, "reports", "2022")))
}
