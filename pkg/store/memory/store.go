package memory

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nimburion/docmanager/pkg/repository/document"
)

// Store is a typed view over a Database implementing document.Store.
type Store[T document.Identifiable] struct {
	db *Database
}

// NewStore creates a typed store over db.
func NewStore[T document.Identifiable](db *Database) *Store[T] {
	return &Store[T]{db: db}
}

// Find returns documents matching opts, sorted and paginated.
func (s *Store[T]) Find(ctx context.Context, collection string, opts document.QueryOptions) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs, err := s.db.filter(collection, opts.Filter)
	if err != nil {
		return nil, err
	}
	if len(opts.Sort) > 0 {
		keys, err := parseSortSpec(opts.Sort)
		if err != nil {
			return nil, err
		}
		sortDocs(docs, keys)
	}
	docs = paginate(docs, opts.Pagination)
	return decodeAll[T](docs)
}

// Count returns the number of documents matching filter.
func (s *Store[T]) Count(ctx context.Context, collection string, filter document.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	docs, err := s.db.filter(collection, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

// Aggregate evaluates pipeline over the collection.
func (s *Store[T]) Aggregate(ctx context.Context, collection string, pipeline document.Pipeline) ([]document.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs, err := s.db.snapshot(collection)
	if err != nil {
		return nil, err
	}
	rows, err := runPipeline(docs, pipeline)
	if err != nil {
		return nil, err
	}
	out := make([]document.Result, 0, len(rows))
	for _, r := range rows {
		out = append(out, document.Result(r))
	}
	return out, nil
}

// FindBy returns documents matching criteria.
func (s *Store[T]) FindBy(ctx context.Context, collection string, criteria document.Filter, sort []document.Sort) ([]T, error) {
	return s.Find(ctx, collection, document.QueryOptions{Filter: criteria, Sort: sort})
}

// FindOneBy returns the first document matching criteria.
func (s *Store[T]) FindOneBy(ctx context.Context, collection string, criteria document.Filter, sort []document.Sort) (T, bool, error) {
	var zero T
	found, err := s.Find(ctx, collection, document.QueryOptions{
		Filter:     criteria,
		Sort:       sort,
		Pagination: document.Pagination{Limit: 1},
	})
	if err != nil || len(found) == 0 {
		return zero, false, err
	}
	return found[0], true, nil
}

// NewSession opens a unit of work on collection.
func (s *Store[T]) NewSession(collection string) document.Session[T] {
	return &Session[T]{db: s.db, collection: collection}
}

// Session stages writes until Flush.
type Session[T document.Identifiable] struct {
	db         *Database
	collection string
	ops        []writeOp
}

// Persist stages an upsert, assigning an identifier when missing.
func (s *Session[T]) Persist(doc T) {
	id := doc.DocumentID()
	if id.IsZero() {
		id = primitive.NewObjectID()
		doc.AssignID(id)
	}
	m, err := toDocument(doc)
	if err == nil {
		m["_id"] = id
	}
	s.ops = append(s.ops, writeOp{id: id, doc: m, err: err})
}

// Remove stages a delete by identifier.
func (s *Session[T]) Remove(doc T) {
	s.ops = append(s.ops, writeOp{id: doc.DocumentID(), remove: true})
}

// Flush applies staged writes in order. Writes before a failing one stay applied.
func (s *Session[T]) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(s.ops) == 0 {
		return nil
	}
	ops := s.ops
	s.ops = nil
	if err := s.db.write(s.collection, ops); err != nil {
		return fmt.Errorf("flush %s: %w", s.collection, err)
	}
	return nil
}

func paginate(docs []bson.M, p document.Pagination) []bson.M {
	if p.Skip > 0 {
		if p.Skip >= int64(len(docs)) {
			return docs[:0]
		}
		docs = docs[p.Skip:]
	}
	if p.Limit > 0 && p.Limit < int64(len(docs)) {
		docs = docs[:p.Limit]
	}
	return docs
}

func decodeAll[T any](docs []bson.M) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		raw, err := bson.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("encode stored document: %w", err)
		}
		var v T
		if err := bson.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode stored document: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}
