package backend

import (
	"context"
	"fmt"

	"expensebuddy/internal/amqp"
	applog "expensebuddy/internal/log"
	"expensebuddy/internal/services"
	"expensebuddy/internal/storage"
	"expensebuddy/internal/storage/firestore"
	"expensebuddy/internal/storage/memory"
	"expensebuddy/internal/storage/postgres"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) *DefaultFactory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		return f.createMemoryBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case PostgresBackend:
		return f.createPostgresBackend(ctx, config)
	case FirestoreBackend:
		return f.createFirestoreBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store, err := memory.NewFromFiles(config.SeedDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory seed: %w", err)
	}
	f.logger.Info("Initialized memory backend", "seed_directory", config.SeedDirectory)
	return &BackendResult{Store: store}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	store, err := storage.NewSQLiteStore(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{Store: store, Ready: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := postgres.Open(ctx, config.DatabaseURL, config.Namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL store: %w", err)
	}
	f.logger.Info("Initialized PostgreSQL backend", "namespace", config.Namespace)
	return &BackendResult{
		Store: store,
		Ready: store,
		Cleanup: func() error {
			store.Close()
			return nil
		},
	}, nil
}

func (f *DefaultFactory) createFirestoreBackend(ctx context.Context, config Config) (*BackendResult, error) {
	client, err := firestore.NewClient(ctx, config.FirestoreProjectID, config.FirestoreCredentials)
	if err != nil {
		return nil, err
	}
	store := firestore.New(client, config.Namespace)
	f.logger.Info("Initialized Firestore backend",
		"project_id", config.FirestoreProjectID,
		"namespace", config.Namespace)
	return &BackendResult{Store: store, Cleanup: store.Close}, nil
}

// NewPublisher connects the optional AMQP event publisher. An empty URL or a
// failed connection yields nil, and the ledger runs without sync.
func (f *DefaultFactory) NewPublisher(url, exchange, queue string) services.EventPublisher {
	if url == "" {
		return nil
	}
	client, err := amqp.NewClient(url, exchange, queue, f.logger)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without sync",
			applog.NewFields().WithError(err, applog.ErrorTypeNetwork).ToSlice()...)
		return nil
	}
	f.logger.Info("Initialized AMQP client", "exchange", exchange, "queue", queue)
	return client
}
