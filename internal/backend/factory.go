package backend

import (
	"context"
	"fmt"

	"keuangan/internal/log"
	"keuangan/internal/sheets"
	gsheet "keuangan/internal/sheets/google"
	"keuangan/internal/sheets/memory"
)

// Factory creates mirror targets based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (sheets.TableWriter, error)
}

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentSheets)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (sheets.TableWriter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SheetsBackend:
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   config.SpreadsheetID,
			SheetName:       config.SheetName,
			CredentialsJSON: config.CredentialsJSON,
			CredentialsFile: config.CredentialsFile,
		}, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.Info("Google Sheets mirror enabled", "spreadsheet_id", config.SpreadsheetID, "sheet", config.SheetName)
		return client, nil
	default:
		f.logger.Warn("No spreadsheet configured, mirroring into memory only")
		return memory.New(), nil
	}
}
