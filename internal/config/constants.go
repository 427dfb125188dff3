package config

import "crudetrack/pkg/contracts/domain"

// Application constants
const (
	AppName    = "crudetrack"
	AppVersion = "1.0.0"

	DefaultBaseURL    = "https://api.vortexa.com/v6"
	DefaultKeyFile    = "api_key.txt"
	DefaultOutputPath = "tracking.xlsx"
	DefaultCategory   = domain.ProductGroupCrude

	// The reporting window of the tracker, [from, to)
	DefaultFrom = "2022-01-01"
	DefaultTo   = "2022-05-01"
)

// DefaultGrades returns a copy of the reported grade allow-list
func DefaultGrades() []string {
	return append([]string(nil), domain.DefaultGrades...)
}
