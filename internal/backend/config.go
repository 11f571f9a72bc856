// Package backend selects the table the worker mirrors entries into.
package backend

import (
	"fmt"

	"keuangan/internal/config"
)

// BackendType names a mirror target.
type BackendType string

const (
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

func (t BackendType) String() string { return string(t) }

// IsValid reports whether t is a known backend type.
func (t BackendType) IsValid() bool {
	switch t {
	case SheetsBackend, MemoryBackend:
		return true
	}
	return false
}

// Config describes the mirror target.
type Config struct {
	Type BackendType

	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// FromAppConfig picks Google Sheets when a spreadsheet id is configured
// and the in-memory table otherwise.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	cfg := Config{Type: MemoryBackend}
	if appConfig.GoogleSpreadsheetID != "" {
		cfg = Config{
			Type:            SheetsBackend,
			SpreadsheetID:   appConfig.GoogleSpreadsheetID,
			SheetName:       appConfig.GoogleSheetName,
			CredentialsJSON: appConfig.GoogleServiceAccountJSON,
			CredentialsFile: appConfig.GoogleServiceAccountFile,
		}
	}
	return cfg, cfg.Validate()
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	if c.Type == SheetsBackend {
		if c.SpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
		if c.SheetName == "" {
			return fmt.Errorf("Google Sheet name is required for sheets backend")
		}
	}
	return nil
}
