package document

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store for documents of type T on MongoDB.
// T is normally a pointer type such as *Organization.
type MongoStore[T Identifiable] struct {
	exec MongoExecutor
}

// NewMongoStore creates a store backed by exec.
func NewMongoStore[T Identifiable](exec MongoExecutor) (*MongoStore[T], error) {
	if exec == nil {
		return nil, fmt.Errorf("mongodb executor is required")
	}
	return &MongoStore[T]{exec: exec}, nil
}

// Find returns every document matching opts.
func (s *MongoStore[T]) Find(ctx context.Context, collection string, opts QueryOptions) ([]T, error) {
	findOpts := options.Find()
	if len(opts.Sort) > 0 {
		findOpts.SetSort(toBSONSort(opts.Sort))
	}
	if opts.Pagination.Skip > 0 {
		findOpts.SetSkip(opts.Pagination.Skip)
	}
	if opts.Pagination.Limit > 0 {
		findOpts.SetLimit(opts.Pagination.Limit)
	}

	results := make([]T, 0)
	if err := s.exec.Find(ctx, collection, toBSONFilter(opts.Filter), findOpts, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Count returns the number of documents matching filter.
func (s *MongoStore[T]) Count(ctx context.Context, collection string, filter Filter) (int64, error) {
	return s.exec.CountDocuments(ctx, collection, toBSONFilter(filter))
}

// Aggregate runs pipeline and materializes the full result.
func (s *MongoStore[T]) Aggregate(ctx context.Context, collection string, pipeline Pipeline) ([]Result, error) {
	var raw []bson.M
	if err := s.exec.Aggregate(ctx, collection, toBSONPipeline(pipeline), &raw); err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(raw))
	for _, r := range raw {
		out = append(out, Result(r))
	}
	return out, nil
}

// FindBy returns documents matching criteria.
func (s *MongoStore[T]) FindBy(ctx context.Context, collection string, criteria Filter, sort []Sort) ([]T, error) {
	return s.Find(ctx, collection, QueryOptions{Filter: criteria, Sort: sort})
}

// FindOneBy returns the first document matching criteria.
func (s *MongoStore[T]) FindOneBy(ctx context.Context, collection string, criteria Filter, sort []Sort) (T, bool, error) {
	var zero T
	found, err := s.Find(ctx, collection, QueryOptions{Filter: criteria, Sort: sort, Pagination: Pagination{Limit: 1}})
	if err != nil {
		return zero, false, err
	}
	if len(found) == 0 {
		return zero, false, nil
	}
	return found[0], true, nil
}

// NewSession opens a unit of work on collection.
func (s *MongoStore[T]) NewSession(collection string) Session[T] {
	return &MongoSession[T]{exec: s.exec, collection: collection}
}

// MongoSession stages writes and flushes them as one ordered bulk write.
type MongoSession[T Identifiable] struct {
	exec       MongoExecutor
	collection string
	models     []mongo.WriteModel
}

// Persist stages an upsert. Documents without an identifier get a new one.
func (s *MongoSession[T]) Persist(doc T) {
	id := doc.DocumentID()
	if id.IsZero() {
		id = primitive.NewObjectID()
		doc.AssignID(id)
		s.models = append(s.models, mongo.NewInsertOneModel().SetDocument(doc))
		return
	}
	s.models = append(s.models, mongo.NewReplaceOneModel().
		SetFilter(bson.M{"_id": id}).
		SetReplacement(doc).
		SetUpsert(true))
}

// Remove stages a delete by identifier. Documents never persisted are ignored.
func (s *MongoSession[T]) Remove(doc T) {
	id := doc.DocumentID()
	if id.IsZero() {
		return
	}
	s.models = append(s.models, mongo.NewDeleteOneModel().SetFilter(bson.M{"_id": id}))
}

// Flush sends the staged writes. Staged writes are cleared even on failure;
// documents written before the failing model stay committed.
func (s *MongoSession[T]) Flush(ctx context.Context) error {
	if len(s.models) == 0 {
		return nil
	}
	models := s.models
	s.models = nil
	if _, err := s.exec.BulkWrite(ctx, s.collection, models); err != nil {
		return fmt.Errorf("bulk write %s: %w", s.collection, err)
	}
	return nil
}

// Pending returns the number of staged writes.
func (s *MongoSession[T]) Pending() int {
	return len(s.models)
}
