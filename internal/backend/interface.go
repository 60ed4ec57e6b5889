package backend

import (
	"context"

	"pfm/internal/ports"
)

// Backend is everything the services need from a record store.
type Backend interface {
	ports.TransactionFetcher
	ports.TransactionWriter
	ports.TransactionEditor
	ports.TransactionLister
	ports.GroupStore
	ports.OwnerLister
	ports.ArchiveStore

	Ping(ctx context.Context) error
	Close() error
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (Backend, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string

	MongoURI      string
	MongoDatabase string

	// Optional demo records for the memory backend.
	MemorySeedFile  string
	MemorySeedOwner string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MongoBackend  BackendType = "mongo"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MongoBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
