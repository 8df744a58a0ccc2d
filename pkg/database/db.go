package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pawfam/backend/internal/reliability/retry"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names
const (
	UsersCollection    = "users"
	OrdersCollection   = "productorders"
	DaycareCollection  = "daycarebookings"
	AdoptionCollection = "adoptionapplications"
)

// Config holds database configuration
type Config struct {
	URI             string
	Database        string
	MaxPoolSize     uint64
	MinPoolSize     uint64
	ConnectTimeout  time.Duration
	MaxConnIdleTime time.Duration
}

// ConnectionPool manages the MongoDB client
type ConnectionPool struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

// NewConnectionPool connects to MongoDB, retrying transient startup failures
func NewConnectionPool(ctx context.Context, config *Config, logger *slog.Logger) (*ConnectionPool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := options.Client().ApplyURI(config.URI)
	if config.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(config.MaxPoolSize)
	} else {
		opts.SetMaxPoolSize(25) // default
	}
	if config.MinPoolSize > 0 {
		opts.SetMinPoolSize(config.MinPoolSize)
	}
	if config.ConnectTimeout > 0 {
		opts.SetConnectTimeout(config.ConnectTimeout)
		opts.SetServerSelectionTimeout(config.ConnectTimeout)
	} else {
		opts.SetConnectTimeout(5 * time.Second)
		opts.SetServerSelectionTimeout(5 * time.Second)
	}
	if config.MaxConnIdleTime > 0 {
		opts.SetMaxConnIdleTime(config.MaxConnIdleTime)
	} else {
		opts.SetMaxConnIdleTime(5 * time.Minute) // default
	}

	client, err := retry.Do(ctx, retry.DefaultConfig(), logger, "mongo connect", func(ctx context.Context) (*mongo.Client, error) {
		// Connect only fails on bad options; reachability is checked by Ping
		c, err := mongo.Connect(ctx, opts)
		if err != nil {
			return nil, retry.Permanent(err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := c.Ping(pingCtx, nil); err != nil {
			_ = c.Disconnect(context.Background())
			return nil, err
		}
		return c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	logger.Info("database connected successfully",
		slog.String("database", config.Database),
	)

	return &ConnectionPool{
		client: client,
		db:     client.Database(config.Database),
		logger: logger,
	}, nil
}

// Collection returns a collection of the application database
func (cp *ConnectionPool) Collection(name string) *mongo.Collection {
	return cp.db.Collection(name)
}

// EnsureIndexes creates the unique and lookup indexes the repositories rely on
func (cp *ConnectionPool) EnsureIndexes(ctx context.Context) error {
	plan := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_email")},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("uniq_username")},
		},
		OrdersCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		DaycareCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		AdoptionCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}

	for coll, models := range plan {
		if _, err := cp.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
	}
	cp.logger.Debug("database indexes ensured")
	return nil
}

// Close disconnects the client
func (cp *ConnectionPool) Close(ctx context.Context) error {
	if cp.client != nil {
		return cp.client.Disconnect(ctx)
	}
	return nil
}

// Health checks the database health
func (cp *ConnectionPool) Health(ctx context.Context) error {
	ctxTest, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return cp.client.Ping(ctxTest, nil)
}

// DefaultConfig returns the pool settings; callers override URI and Database
func DefaultConfig() *Config {
	return &Config{
		URI:             "mongodb://localhost:27017",
		Database:        "pawfam",
		MaxPoolSize:     25,
		ConnectTimeout:  5 * time.Second,
		MaxConnIdleTime: 5 * time.Minute,
	}
}
