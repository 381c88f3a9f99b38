// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, database, document store, storage) that
// domain systems require.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/JaimeStill/countersign/internal/audit"
	"github.com/JaimeStill/countersign/internal/config"
	"github.com/JaimeStill/countersign/pkg/database"
	"github.com/JaimeStill/countersign/pkg/lifecycle"
	"github.com/JaimeStill/countersign/pkg/mongodb"
	"github.com/JaimeStill/countersign/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// It provides a single point of initialization for lifecycle coordination,
// logging, database access, and file storage. Mongo is nil unless the audit
// ledger is configured to use it.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Mongo     mongodb.System
	Storage   storage.System
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	var mongo mongodb.System
	if cfg.Audit.Backend == audit.BackendMongo {
		if mongo, err = mongodb.New(&cfg.Mongo, logger); err != nil {
			return nil, fmt.Errorf("mongodb init failed: %w", err)
		}
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Mongo:     mongo,
		Storage:   store,
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator
// and tracks the connection-backed ones for readiness reporting.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	i.Lifecycle.Track("database", i.Database)

	if i.Mongo != nil {
		if err := i.Mongo.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("mongodb start failed: %w", err)
		}
		i.Lifecycle.Track("mongodb", i.Mongo)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	return nil
}
