// Package backend picks the persistence and export sink implementations
// named in the configuration.
package backend

import (
	"context"

	"budgetbook/internal/core"
	"budgetbook/internal/session"
	"budgetbook/internal/sheets"
)

// Store holds the session, the theme preference and the export history.
type Store interface {
	session.Store
	RecordExport(ctx context.Context, job core.ExportJob) error
	RecentExports(ctx context.Context, limit int) ([]core.ExportJob, error)
	Ping(ctx context.Context) error
	Close() error
}

// Factory opens the configured store and export sink.
type Factory interface {
	OpenStore(ctx context.Context, config Config) (Store, error)
	OpenSink(ctx context.Context, config Config) (sheets.TableWriter, error)
}

// StoreType names a Store implementation.
type StoreType string

const (
	SQLiteStore StoreType = "sqlite"
	MemoryStore StoreType = "memory"
)

func (t StoreType) String() string { return string(t) }

func (t StoreType) IsValid() bool {
	switch t {
	case SQLiteStore, MemoryStore:
		return true
	}
	return false
}

// SinkType names where exported tables are written.
type SinkType string

const (
	SheetsSink SinkType = "sheets"
	MemorySink SinkType = "memory"
)

func (t SinkType) String() string { return string(t) }

func (t SinkType) IsValid() bool {
	switch t {
	case SheetsSink, MemorySink:
		return true
	}
	return false
}
