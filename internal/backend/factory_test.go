package backend

import (
	"context"
	"path/filepath"
	"testing"

	"budgetbook/internal/config"
	"budgetbook/internal/core"
	"budgetbook/internal/sheets"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Store: MemoryStore, Sink: MemorySink}, false},
		{"sqlite without path", Config{Store: SQLiteStore, Sink: MemorySink}, true},
		{"unknown store", Config{Store: "postgres", Sink: MemorySink}, true},
		{"unknown sink", Config{Store: MemoryStore, Sink: "s3"}, true},
		{"sheets without id", Config{Store: MemoryStore, Sink: SheetsSink}, true},
		{"sheets with service account", Config{Store: MemoryStore, Sink: SheetsSink,
			GoogleSpreadsheetID: "abc", GoogleServiceAccountFile: "sa.json"}, false},
		{"sheets oauth without token", Config{Store: MemoryStore, Sink: SheetsSink,
			GoogleSpreadsheetID: "abc", GoogleOAuthClientFile: "client.json"}, true},
		{"sheets oauth", Config{Store: MemoryStore, Sink: SheetsSink,
			GoogleSpreadsheetID: "abc", GoogleOAuthClientFile: "client.json", GoogleOAuthTokenJSON: "{}"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	app, err := config.LoadFrom(map[string]string{"SESSION_BACKEND": "memory"})
	if err != nil {
		t.Fatal(err)
	}
	c, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if c.Store != MemoryStore || c.Sink != MemorySink {
		t.Fatalf("config = %+v", c)
	}

	app.GoogleSpreadsheetID = "sheet-1"
	app.GoogleServiceAccountJSON = "{}"
	if c, err = FromAppConfig(app); err != nil || c.Sink != SheetsSink {
		t.Fatalf("sheets sink not selected: %+v, %v", c, err)
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("nil config accepted")
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	for _, cfg := range []Config{
		{Store: MemoryStore},
		{Store: SQLiteStore, SQLiteDBPath: filepath.Join(t.TempDir(), "budgetbook.db")},
	} {
		t.Run(cfg.Store.String(), func(t *testing.T) {
			store, err := f.OpenStore(ctx, cfg)
			if err != nil {
				t.Fatalf("OpenStore: %v", err)
			}
			defer store.Close()
			if err := store.Ping(ctx); err != nil {
				t.Fatalf("Ping: %v", err)
			}
			job := core.ExportJob{ID: "j1", Title: "Expenses", Rows: 2, Status: core.ExportQueued}
			if err := store.RecordExport(ctx, job); err != nil {
				t.Fatalf("RecordExport: %v", err)
			}
			got, err := store.RecentExports(ctx, 5)
			if err != nil || len(got) != 1 || got[0].ID != "j1" {
				t.Fatalf("RecentExports = %+v, %v", got, err)
			}
		})
	}

	if _, err := f.OpenStore(ctx, Config{Store: "postgres"}); err == nil {
		t.Fatal("unknown store opened")
	}
}

func TestOpenMemorySink(t *testing.T) {
	sink, err := NewFactory(nil).OpenSink(context.Background(), Config{Sink: MemorySink})
	if err != nil {
		t.Fatalf("OpenSink: %v", err)
	}
	ref, err := sink.WriteTable(context.Background(), sheets.Table{Name: "t", Header: []string{"Name"}, Rows: [][]string{{"Hotel"}}})
	if err != nil || ref == "" {
		t.Fatalf("WriteTable = %q, %v", ref, err)
	}
}
