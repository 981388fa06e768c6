package backend

import (
	"errors"
	"fmt"

	"expensebuddy/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:                 backendType,
		Namespace:            appConfig.LedgerNamespace,
		SeedDirectory:        appConfig.MemorySeedDir,
		SQLiteDBPath:         appConfig.SQLiteDBPath,
		DatabaseURL:          appConfig.DatabaseURL,
		FirestoreProjectID:   appConfig.FirestoreProjectID,
		FirestoreCredentials: appConfig.FirestoreCredentials,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required for postgres backend")
		}
	case FirestoreBackend:
		if c.FirestoreProjectID == "" {
			return errors.New("Firestore project ID is required for firestore backend")
		}
	case MemoryBackend:
		// A missing seed directory falls back to the default categories.
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, PostgresBackend, FirestoreBackend}
}
