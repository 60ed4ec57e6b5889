package backend

import (
	"context"
	"fmt"

	applog "pfm/internal/log"
	"pfm/internal/mongostore"
	"pfm/internal/storage"
	"pfm/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return repo, nil

	case MongoBackend:
		store, err := mongostore.New(ctx, config.MongoURI, config.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MongoDB store: %w", err)
		}
		f.logger.Info("Initialized MongoDB backend", "database", config.MongoDatabase)
		return store, nil

	case MemoryBackend:
		var store *memory.Store
		if config.MemorySeedFile != "" {
			store = memory.NewFromFile(config.MemorySeedFile, config.MemorySeedOwner)
		} else {
			store = memory.New()
		}
		f.logger.Info("Initialized memory backend", "seed_file", config.MemorySeedFile)
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
