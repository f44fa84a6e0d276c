package backend

import (
	"context"

	"finance/internal/services"
	"finance/internal/sheets"
	gsheet "finance/internal/sheets/google"
	"finance/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult bundles the store with the optional outbound adapters.
// Events and Exporter are nil when their configuration is absent.
type BackendResult struct {
	Store    storage.Store
	Events   services.EventPublisher
	Exporter sheets.MonthlyTotalsExporter
	Cleanup  CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQL stores
	SQLiteDBPath string
	DatabaseURL  string

	// Events, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string

	// Sheets export, disabled when Sheets.SpreadsheetID is empty
	Sheets gsheet.Options
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
