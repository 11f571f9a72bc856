package backend

import (
	"context"
	"testing"

	"keuangan/internal/config"
	"keuangan/internal/log"
	"keuangan/internal/sheets/memory"
)

func TestFromAppConfig(t *testing.T) {
	tests := []struct {
		name    string
		app     *config.Config
		want    BackendType
		wantErr bool
	}{
		{"nil", nil, "", true},
		{"no spreadsheet", &config.Config{GoogleSheetName: "Keuangan"}, MemoryBackend, false},
		{"spreadsheet", &config.Config{GoogleSpreadsheetID: "abc", GoogleSheetName: "Keuangan"}, SheetsBackend, false},
		{"spreadsheet without sheet", &config.Config{GoogleSpreadsheetID: "abc"}, SheetsBackend, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromAppConfig(tt.app)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.app != nil && cfg.Type != tt.want {
				t.Fatalf("type = %s, want %s", cfg.Type, tt.want)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	f := NewFactory(log.Discard())

	w, err := f.CreateBackend(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := w.(*memory.Store); !ok {
		t.Fatalf("got %T, want *memory.Store", w)
	}

	if _, err := f.CreateBackend(context.Background(), Config{Type: "ftp"}); err == nil {
		t.Fatal("expected error for unknown type")
	}
}
