// Package mongodb provides MongoDB client management with lifecycle coordination.
package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/JaimeStill/countersign/pkg/lifecycle"
)

// System manages a MongoDB client and its lifecycle.
type System interface {
	// Database returns the configured database handle.
	Database() *mongo.Database
	// Ready reports whether the startup ping succeeded.
	Ready() bool
	// Start registers startup ping and shutdown disconnect hooks.
	Start(lc *lifecycle.Coordinator) error
}

type client struct {
	client      *mongo.Client
	db          *mongo.Database
	logger      *slog.Logger
	connTimeout time.Duration
	ready       atomic.Bool
}

// New creates a MongoDB client for cfg. The driver connects lazily; Start
// verifies connectivity.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnTimeoutDuration())

	c, err := mongo.Connect(context.Background(), opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	return &client{
		client:      c,
		db:          c.Database(cfg.Database),
		logger:      logger.With("system", "mongodb"),
		connTimeout: cfg.ConnTimeoutDuration(),
	}, nil
}

func (c *client) Database() *mongo.Database {
	return c.db
}

func (c *client) Ready() bool {
	return c.ready.Load()
}

func (c *client) Start(lc *lifecycle.Coordinator) error {
	c.logger.Info("starting mongodb client", "database", c.db.Name())

	lc.OnStartup(func() {
		ctx, cancel := context.WithTimeout(lc.Context(), c.connTimeout)
		defer cancel()

		if err := c.client.Ping(ctx, readpref.Primary()); err != nil {
			c.logger.Error("mongodb ping failed", "error", err)
			return
		}

		c.ready.Store(true)
		c.logger.Info("mongodb connection established")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		c.ready.Store(false)
		c.logger.Info("disconnecting mongodb")

		ctx, cancel := context.WithTimeout(context.Background(), c.connTimeout)
		defer cancel()

		if err := c.client.Disconnect(ctx); err != nil {
			c.logger.Error("mongodb disconnect failed", "error", err)
			return
		}

		c.logger.Info("mongodb disconnected")
	})

	return nil
}
