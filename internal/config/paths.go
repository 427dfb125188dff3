package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths holds the resolved file locations of a run
type Paths struct {
	BaseDir     string
	KeyFile     string
	Output      string
	CSV         string
	Summary     string
	Database    string
	LogFile     string
	MetricsFile string
}

// ResolvePaths resolves every configured relative path against baseDir.
// Optional paths that are not configured stay empty.
func (c *Config) ResolvePaths(baseDir string) (*Paths, error) {
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		baseDir = wd
	}

	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	paths := &Paths{
		BaseDir:     baseDir,
		KeyFile:     resolve(c.Vortexa.KeyFile),
		Output:      resolve(c.Report.OutputPath),
		CSV:         resolve(c.Report.CSVPath),
		Summary:     resolve(c.Report.SummaryPath),
		Database:    resolve(c.Store.Path),
		MetricsFile: resolve(c.Telemetry.MetricsTextfile),
	}
	if c.Logging.Output != "console" {
		paths.LogFile = resolve(c.Logging.FilePath)
	}
	return paths, nil
}

// EnsureDirectories creates the parent directories of every output path
func (p *Paths) EnsureDirectories() error {
	for _, file := range []string{p.Output, p.CSV, p.Summary, p.Database, p.LogFile, p.MetricsFile} {
		if file == "" {
			continue
		}
		dir := filepath.Dir(file)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists reports whether path exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
