// Package memory provides an in-process document store that evaluates the
// MongoDB filter and aggregation subset used by the document manager.
// It backs tests and the "memory" store type; data does not survive a restart.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nimburion/docmanager/pkg/observability/logger"
	"github.com/nimburion/docmanager/pkg/repository/document"
)

// Database holds named collections of BSON documents in insertion order.
type Database struct {
	mu          sync.RWMutex
	collections map[string][]bson.M
	calls       atomic.Int64
	logger      logger.Logger
	closed      bool
}

// NewDatabase creates an empty database. log may be nil.
func NewDatabase(log logger.Logger) *Database {
	if log == nil {
		log = logger.Nop()
	}
	return &Database{
		collections: make(map[string][]bson.M),
		logger:      log,
	}
}

// Calls returns how many store operations have been executed.
func (db *Database) Calls() int64 {
	return db.calls.Load()
}

var errClosed = errors.New("memory store is closed")

// HealthCheck implements the store adapter contract.
func (db *Database) HealthCheck(ctx context.Context) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return errClosed
	}
	return ctx.Err()
}

// Close drops all collections.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	dropped := len(db.collections)
	db.collections = make(map[string][]bson.M)
	db.closed = true
	db.logger.Info("memory document store closed", "collections", dropped)
	return nil
}

// Insert adds raw documents, assigning an _id when missing. It is meant for
// fixtures and seeding.
func (db *Database) Insert(collection string, docs ...interface{}) error {
	normalized := make([]bson.M, 0, len(docs))
	for _, d := range docs {
		m, err := toDocument(d)
		if err != nil {
			return err
		}
		if _, ok := m["_id"]; !ok {
			m["_id"] = primitive.NewObjectID()
		}
		normalized = append(normalized, m)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	db.collections[collection] = append(db.collections[collection], normalized...)
	return nil
}

// snapshot returns the documents of a collection. The slice is a copy; the
// documents are shared and must not be mutated.
func (db *Database) snapshot(collection string) ([]bson.M, error) {
	db.calls.Add(1)
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return nil, errClosed
	}
	src := db.collections[collection]
	out := make([]bson.M, len(src))
	copy(out, src)
	return out, nil
}

func (db *Database) filter(collection string, filter document.Filter) ([]bson.M, error) {
	f, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	docs, err := db.snapshot(collection)
	if err != nil {
		return nil, err
	}
	out := make([]bson.M, 0, len(docs))
	for _, d := range docs {
		ok, err := Matches(d, f)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// write applies a batch of upserts and deletes in order.
func (db *Database) write(collection string, ops []writeOp) error {
	db.calls.Add(1)
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return errClosed
	}
	docs := db.collections[collection]
	for i, op := range ops {
		if op.err != nil {
			db.collections[collection] = docs
			return fmt.Errorf("write %d: %w", i, op.err)
		}
		idx := indexOfID(docs, op.id)
		switch {
		case op.remove && idx >= 0:
			docs = append(docs[:idx], docs[idx+1:]...)
		case op.remove:
		case idx >= 0:
			docs[idx] = op.doc
		default:
			docs = append(docs, op.doc)
		}
	}
	db.collections[collection] = docs
	return nil
}

type writeOp struct {
	id     primitive.ObjectID
	doc    bson.M
	remove bool
	err    error
}

func indexOfID(docs []bson.M, id primitive.ObjectID) int {
	for i, d := range docs {
		if existing, ok := d["_id"].(primitive.ObjectID); ok && existing == id {
			return i
		}
	}
	return -1
}

func toDocument(v interface{}) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var out bson.M
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return out, nil
}

func normalizeFilter(filter interface{}) (bson.M, error) {
	if filter == nil {
		return bson.M{}, nil
	}
	if f, ok := filter.(document.Filter); ok && len(f) == 0 {
		return bson.M{}, nil
	}
	m, err := toDocument(filter)
	if err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}
	return m, nil
}
