package config

import (
	"os"
	"strings"

	apperrors "crudetrack/internal/errors"
)

// LoadAPIKey reads the API token from path. Surrounding whitespace is
// trimmed; a missing, unreadable or blank file is a credential error.
func LoadAPIKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", apperrors.NewCredentialError(path, err)
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", apperrors.NewCredentialError(path, apperrors.ErrEmptyCredential)
	}
	return key, nil
}
