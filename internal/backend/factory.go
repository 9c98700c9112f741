package backend

import (
	"context"
	"fmt"

	"budgetbook/internal/log"
	"budgetbook/internal/sheets"
	gsheet "budgetbook/internal/sheets/google"
	"budgetbook/internal/sheets/memory"
	"budgetbook/internal/storage"
)

type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentStorage)}
}

var _ Factory = (*DefaultFactory)(nil)

// OpenStore opens config.Store. The SQLite schema is migrated first.
func (f *DefaultFactory) OpenStore(ctx context.Context, config Config) (Store, error) {
	switch config.Store {
	case MemoryStore:
		f.logger.InfoContext(ctx, "Initialized memory store")
		return storage.NewMemoryStore(), nil
	case SQLiteStore:
		version, err := storage.RunMigrations(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("migrate %s: %w", config.SQLiteDBPath, err)
		}
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite store", "db_path", config.SQLiteDBPath, "schema_version", version)
		return repo, nil
	}
	return nil, fmt.Errorf("unsupported store type: %s", config.Store)
}

// OpenSink opens config.Sink.
func (f *DefaultFactory) OpenSink(ctx context.Context, config Config) (sheets.TableWriter, error) {
	switch config.Sink {
	case MemorySink:
		f.logger.InfoContext(ctx, "Exports are kept in memory")
		return memory.New(), nil
	case SheetsSink:
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      config.GoogleSpreadsheetID,
			ServiceAccountJSON: config.GoogleServiceAccountJSON,
			ServiceAccountFile: config.GoogleServiceAccountFile,
			OAuthClientJSON:    config.GoogleOAuthClientJSON,
			OAuthClientFile:    config.GoogleOAuthClientFile,
			OAuthTokenJSON:     config.GoogleOAuthTokenJSON,
			OAuthTokenFile:     config.GoogleOAuthTokenFile,
		}, f.logger)
		if err != nil {
			return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Google Sheets sink", "spreadsheet_id", config.GoogleSpreadsheetID)
		return client, nil
	}
	return nil, fmt.Errorf("unsupported sink type: %s", config.Sink)
}
