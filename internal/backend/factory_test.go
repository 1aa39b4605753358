package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"expenses/internal/config"
	"expenses/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", AMQPQueue: "q"})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "x.db" || cfg.AMQPQueue != "q" {
		t.Errorf("cfg = %+v", cfg)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"memory", Config{Type: MemoryBackend}, ""},
		{"sqlite without path", Config{Type: SQLiteBackend}, "SQLite database path"},
		{"postgres without url", Config{Type: PostgresBackend}, "database URL"},
		{"unknown", Config{Type: "csv"}, "invalid backend type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestCreateSeedsDefaults(t *testing.T) {
	for _, cfg := range []Config{
		{Type: MemoryBackend, DataDirectory: t.TempDir()},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "expenses.db")},
	} {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			res, err := NewFactory(nil).Create(context.Background(), cfg)
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			defer res.Cleanup()

			cats, err := res.Service.Categories(context.Background())
			if err != nil {
				t.Fatalf("Categories: %v", err)
			}
			if len(cats) != len(storage.DefaultCategories) {
				t.Errorf("categories = %v", cats)
			}
		})
	}
}
