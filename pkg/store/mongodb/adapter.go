// Package mongodb connects to MongoDB and runs the queries, counts,
// aggregations and bulk writes of the document stores.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/nimburion/docmanager/pkg/observability/logger"
)

// Defaults applied by NewAdapter.
const (
	DefaultConnectTimeout   = 5 * time.Second
	DefaultOperationTimeout = 5 * time.Second
	healthCheckTimeout      = 2 * time.Second
	disconnectTimeout       = 5 * time.Second
)

// ErrClosed is returned by operations on a closed adapter.
var ErrClosed = errors.New("mongodb adapter is closed")

// Config configures NewAdapter.
type Config struct {
	URL              string
	Database         string
	ConnectTimeout   time.Duration
	OperationTimeout time.Duration
	MaxPoolSize      uint64
}

func (c *Config) applyDefaults() error {
	var errs []error
	if c.URL == "" {
		errs = append(errs, errors.New("mongodb URL is required"))
	}
	if c.Database == "" {
		errs = append(errs, errors.New("mongodb database is required"))
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = DefaultOperationTimeout
	}
	return errors.Join(errs...)
}

// Adapter owns the client of one database. Every operation without a
// caller deadline gets the configured operation timeout.
type Adapter struct {
	client   *mongo.Client
	db       *mongo.Database
	logger   logger.Logger
	timeout  time.Duration
	isClosed atomic.Bool
}

// NewAdapter connects and pings the primary. It creates no collections
// or indexes.
func NewAdapter(cfg Config, log logger.Logger) (*Adapter, error) {
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	opts := options.Client().ApplyURI(cfg.URL)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	log.Info("mongodb connection established", "database", cfg.Database, "max_pool_size", cfg.MaxPoolSize)
	return &Adapter{
		client:  client,
		db:      client.Database(cfg.Database),
		logger:  log,
		timeout: cfg.OperationTimeout,
	}, nil
}

// Collection returns a handle on the named collection.
func (a *Adapter) Collection(name string) *mongo.Collection {
	return a.db.Collection(name)
}

// HealthCheck pings the primary.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	if a.isClosed.Load() {
		return ErrClosed
	}
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	if err := a.client.Ping(ctx, readpref.Primary()); err != nil {
		a.logger.Error("mongodb health check failed", "error", err)
		return fmt.Errorf("mongodb health check: %w", err)
	}
	return nil
}

// Close disconnects the client. Later calls are no-ops.
func (a *Adapter) Close() error {
	if !a.isClosed.CompareAndSwap(false, true) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	if err := a.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongodb: %w", err)
	}
	a.logger.Info("mongodb connection closed")
	return nil
}

// Find decodes every match into results, a pointer to a slice.
func (a *Adapter) Find(ctx context.Context, collection string, filter interface{}, opts *options.FindOptions, results interface{}) error {
	ctx, cancel, err := a.operation(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	cursor, err := a.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	return cursor.All(ctx, results)
}

// CountDocuments counts matches. A nil filter counts everything.
func (a *Adapter) CountDocuments(ctx context.Context, collection string, filter interface{}) (int64, error) {
	ctx, cancel, err := a.operation(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()
	if filter == nil {
		filter = bson.D{}
	}
	return a.Collection(collection).CountDocuments(ctx, filter)
}

// Aggregate runs pipeline and decodes the whole result into results.
func (a *Adapter) Aggregate(ctx context.Context, collection string, pipeline interface{}, results interface{}) error {
	ctx, cancel, err := a.operation(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	cursor, err := a.Collection(collection).Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	return cursor.All(ctx, results)
}

// BulkWrite applies models in order and stops at the first failure.
func (a *Adapter) BulkWrite(ctx context.Context, collection string, models []mongo.WriteModel) (*mongo.BulkWriteResult, error) {
	ctx, cancel, err := a.operation(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	return a.Collection(collection).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
}

// operation rejects calls on a closed adapter and bounds ctx by the
// operation timeout unless the caller set a deadline.
func (a *Adapter) operation(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if a.isClosed.Load() {
		return nil, nil, ErrClosed
	}
	if _, ok := ctx.Deadline(); ok || a.timeout <= 0 {
		return ctx, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	return ctx, cancel, nil
}
