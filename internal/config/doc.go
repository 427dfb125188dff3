// Package config loads and validates the tracker configuration.
//
// # Configuration Sources
//
// Load applies, in increasing order of precedence:
//
//  1. Default values
//  2. A YAML file (tracker.yaml or configs/tracker.yaml unless given)
//  3. Environment variables, after loading a .env file when present
//
// CLI flags are applied on top by the caller.
//
// # Environment Variables
//
// Variables follow the pattern TRACKER_<SECTION>_<FIELD>:
//
//	TRACKER_VORTEXA_KEY_FILE=/run/secrets/vortexa
//	TRACKER_VORTEXA_FROM=2022-01-01
//	TRACKER_REPORT_OUTPUT_PATH=out/tracking.xlsx
//	TRACKER_REPORT_GRADES=Forties,Brent Blend
//	TRACKER_LOGGING_LEVEL=debug
//
// # Credentials
//
// The API token is never read from the environment. LoadAPIKey reads it
// from the configured key file and the caller passes it to the client.
package config
