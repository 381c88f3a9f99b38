package infrastructure_test

import (
	"testing"

	"github.com/JaimeStill/countersign/internal/audit"
	"github.com/JaimeStill/countersign/internal/config"
	"github.com/JaimeStill/countersign/internal/infrastructure"
	"github.com/JaimeStill/countersign/pkg/database"
	"github.com/JaimeStill/countersign/pkg/mongodb"
	"github.com/JaimeStill/countersign/pkg/storage"
)

func validConfig() *config.Config {
	return &config.Config{
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "countersign",
			User:            "countersign",
			Password:        "countersign",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
		},
		Mongo: mongodb.Config{
			URI:         "mongodb://localhost:27017",
			Database:    "countersign",
			ConnTimeout: "5s",
		},
		Storage: storage.Config{
			Type:      storage.TypeMemory,
			Container: "countersign",
		},
		Audit:   audit.Config{Backend: audit.BackendPostgres},
		Version: "0.1.0",
	}
}

func TestNew(t *testing.T) {
	infra, err := infrastructure.New(validConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if infra.Lifecycle == nil {
		t.Error("Lifecycle is nil")
	}
	if infra.Logger == nil {
		t.Error("Logger is nil")
	}
	if infra.Database == nil {
		t.Error("Database is nil")
	}
	if infra.Storage == nil {
		t.Error("Storage is nil")
	}
	if infra.Mongo != nil {
		t.Error("Mongo created for postgres audit backend")
	}
}

func TestNewMongoAudit(t *testing.T) {
	cfg := validConfig()
	cfg.Audit.Backend = audit.BackendMongo

	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if infra.Mongo == nil {
		t.Fatal("Mongo is nil for mongo audit backend")
	}
	if name := infra.Mongo.Database().Name(); name != "countersign" {
		t.Errorf("database: got %s, want countersign", name)
	}
}

func TestNewDatabaseConnection(t *testing.T) {
	infra, err := infrastructure.New(validConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	conn := infra.Database.Connection()
	if conn == nil {
		t.Fatal("Database.Connection() returned nil")
	}
	conn.Close()
}

func TestNewInvalidStorageConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Storage = storage.Config{
		Type:             storage.TypeAzure,
		Container:        "countersign",
		ConnectionString: "not-a-connection-string",
	}

	if _, err := infrastructure.New(cfg); err == nil {
		t.Fatal("expected error for invalid storage connection string")
	}
}
