package backend

import (
	"context"

	"feeledger/internal/core"
	"feeledger/internal/services"
	"feeledger/internal/store"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult carries the wired fee service and what the caller needs to
// serve and shut it down.
type BackendResult struct {
	Store store.Backend
	Fees  *services.FeeService
	// Ready reports whether storage can serve requests.
	Ready func(context.Context) error
	// Publishing is true when appended records are announced over AMQP.
	Publishing bool
	Cleanup    CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Memory backend seed directory
	DataDirectory string

	// DefaultSchedule seeds a fresh store.
	DefaultSchedule core.FeeSchedule
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
