// Package manager implements a generic document manager: per-collection
// request parameter resolution, filter and free-text query composition,
// paginated listing, counting, grouped aggregation, point lookups, batched
// persistence and event notification over injected store collaborators.
package manager

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nimburion/docmanager/pkg/eventbus"
	"github.com/nimburion/docmanager/pkg/observability/tracing"
	"github.com/nimburion/docmanager/pkg/repository/document"
)

// Collaborators are the store-facing dependencies of a Manager. Only Store is
// required; the others default to implementations built on top of it.
type Collaborators[T document.Identifiable] struct {
	Store      document.Store[T]
	Paginator  document.Paginator[T]
	Sessions   document.SessionFactory[T]
	Dispatcher eventbus.Dispatcher
}

// Manager answers queries for one document type. It holds no per-request
// state and is safe for concurrent use when its collaborators are.
type Manager[T document.Identifiable] struct {
	cfg        Config
	store      document.Store[T]
	paginator  document.Paginator[T]
	sessions   document.SessionFactory[T]
	dispatcher eventbus.Dispatcher
	settings   settings
}

// New creates a Manager for cfg. cfg must come from Builder.Build.
func New[T document.Identifiable](cfg Config, c Collaborators[T], opts ...Option) (*Manager[T], error) {
	if cfg.document == "" || cfg.mapping == nil {
		return nil, configErrorf("manager config was not built")
	}
	if c.Store == nil {
		return nil, configErrorf("document %s: store is required", cfg.document)
	}

	m := &Manager[T]{
		cfg:        cfg,
		store:      c.Store,
		paginator:  c.Paginator,
		sessions:   c.Sessions,
		dispatcher: c.Dispatcher,
		settings:   defaultSettings(),
	}
	if m.paginator == nil {
		m.paginator = document.NewReaderPaginator[T](c.Store)
	}
	if m.sessions == nil {
		m.sessions = c.Store.NewSession
	}
	if m.dispatcher == nil {
		m.dispatcher = eventbus.Discard
	}
	for _, opt := range opts {
		opt(&m.settings)
	}
	return m, nil
}

// Config returns the manager configuration.
func (m *Manager[T]) Config() Config { return m.cfg }

// ListOptions are the explicit arguments of Documents. A field left at its
// zero value is resolved from the request, then from the configured default.
type ListOptions struct {
	Filters      Filters
	Prime        []string
	Query        any
	ItemsPerPage any
	Page         any
	SortBy       any
	SortDir      any
}

// Documents returns one page of documents matching the filters and the
// free-text term.
func (m *Manager[T]) Documents(ctx context.Context, src RequestSource, opts ListOptions) (*document.Page[T], error) {
	r := m.cfg.Resolver()
	term := r.ResolveString(ParamQuery, opts.Query, src)
	page := r.ResolveInt(ParamPage, opts.Page, src)
	perPage := r.ResolveInt(ParamItemsPerPage, opts.ItemsPerPage, src)
	sortBy := r.ResolveString(ParamSortBy, opts.SortBy, src)
	sortDir := r.Resolve(ParamSortDir, opts.SortDir, src)

	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = m.cfg.ItemsPerPage()
	}

	q, err := m.buildQuery(opts.Filters, term)
	if err != nil {
		return nil, err
	}
	q.Prime(opts.Prime...)
	if sortBy != "" {
		q.Sort(NormalizeFieldName(sortBy), document.ParseSortOrder(sortDir))
	}
	qo, err := q.Options()
	if err != nil {
		return nil, err
	}

	var result *document.Page[T]
	err = m.observe(ctx, "documents", tracing.SpanOperationDBQuery, func(ctx context.Context) (int, error) {
		p, err := m.paginator.Paginate(ctx, m.cfg.Collection(), qo, page, perPage)
		if err != nil {
			return 0, m.storeError("paginate", err)
		}
		result = p
		return len(p.Items), nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CountOptions are the explicit arguments of Count. Query set to true
// resolves the term from the request; any other truthy value is the term.
type CountOptions struct {
	Filters Filters
	Query   any
}

// Count returns the number of documents matching the filters and, when
// Query is set, the free-text term.
func (m *Manager[T]) Count(ctx context.Context, src RequestSource, opts CountOptions) (int64, error) {
	term := ""
	if truthy(opts.Query) {
		explicit := opts.Query
		if b, ok := opts.Query.(bool); ok && b {
			explicit = nil
		}
		term = m.cfg.Resolver().ResolveString(ParamQuery, explicit, src)
	}

	q, err := m.buildQuery(opts.Filters, term)
	if err != nil {
		return 0, err
	}
	filter, err := q.Filter()
	if err != nil {
		return 0, err
	}

	var total int64
	err = m.observe(ctx, "count", tracing.SpanOperationDBCount, func(ctx context.Context) (int, error) {
		n, err := m.store.Count(ctx, m.cfg.Collection(), filter)
		if err != nil {
			return 0, m.storeError("count", err)
		}
		total = n
		return -1, nil
	})
	return total, err
}

// GroupOptions are the optional arguments of CountByGroup.
type GroupOptions struct {
	Match document.Filter
	Query any
	Sort  []document.Sort
	Limit int
}

// CountByGroup counts documents per distinct value of field.
func (m *Manager[T]) CountByGroup(ctx context.Context, src RequestSource, field string, opts GroupOptions) ([]document.Result, error) {
	if err := ValidateFieldName(field); err != nil {
		return nil, err
	}
	spec := AggregationSpec{
		Group: CountGroup(field),
		Match: opts.Match,
		Sort:  opts.Sort,
		Limit: opts.Limit,
	}
	return m.AggregateGroup(ctx, src, spec, opts.Query)
}

// AggregateGroup runs a grouped aggregation. The resolved free-text term is
// merged into a copy of spec.Match; its $or replaces any $or already there.
func (m *Manager[T]) AggregateGroup(ctx context.Context, src RequestSource, spec AggregationSpec, query any) ([]document.Result, error) {
	term := m.cfg.Resolver().ResolveString(ParamQuery, query, src)
	text, err := m.cfg.NewTextPredicate(term).MatchDocument()
	if err != nil {
		return nil, err
	}
	spec.Match = mergeMatch(spec.Match, text)

	pipeline, err := spec.Pipeline()
	if err != nil {
		return nil, err
	}

	var results []document.Result
	err = m.observe(ctx, "aggregate", tracing.SpanOperationDBAggregate, func(ctx context.Context) (int, error) {
		rows, err := m.store.Aggregate(ctx, m.cfg.Collection(), pipeline)
		if err != nil {
			return 0, m.storeError("aggregate", err)
		}
		results = rows
		return len(rows), nil
	})
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []document.Result{}
	}
	return results, nil
}

// Find returns the document with the hex identifier id that also satisfies
// filters. An id that is not a valid ObjectID is reported as not found.
func (m *Manager[T]) Find(ctx context.Context, id string, filters ...FilterClause) (T, error) {
	var zero T
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return zero, fmt.Errorf("%s %q: %w", m.cfg.Document(), id, ErrNotFound)
	}

	q := NewQuery().Where(filters...)
	q.Field("_id").Equals(oid)
	qo, err := q.Options()
	if err != nil {
		return zero, err
	}
	qo.Pagination = document.Pagination{Limit: 2}

	var found []T
	err = m.observe(ctx, "find", tracing.SpanOperationDBQuery, func(ctx context.Context) (int, error) {
		docs, err := m.store.Find(ctx, m.cfg.Collection(), qo)
		if err != nil {
			return 0, m.storeError("find", err)
		}
		found = docs
		return len(docs), nil
	})
	if err != nil {
		return zero, err
	}

	switch len(found) {
	case 0:
		return zero, fmt.Errorf("%s %s: %w", m.cfg.Document(), id, ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return zero, fmt.Errorf("%s %s: %w", m.cfg.Document(), id, ErrAmbiguousResult)
	}
}

// FindBy returns every document matching criteria.
func (m *Manager[T]) FindBy(ctx context.Context, criteria document.Filter, sort ...document.Sort) ([]T, error) {
	var found []T
	err := m.observe(ctx, "find_by", tracing.SpanOperationDBQuery, func(ctx context.Context) (int, error) {
		docs, err := m.store.FindBy(ctx, m.cfg.Collection(), criteria, sort)
		if err != nil {
			return 0, m.storeError("find_by", err)
		}
		found = docs
		return len(docs), nil
	})
	return found, err
}

// FindOneBy returns the first document matching criteria. found is false
// when nothing matches.
func (m *Manager[T]) FindOneBy(ctx context.Context, criteria document.Filter, sort ...document.Sort) (doc T, found bool, err error) {
	err = m.observe(ctx, "find_one_by", tracing.SpanOperationDBQuery, func(ctx context.Context) (int, error) {
		d, ok, err := m.store.FindOneBy(ctx, m.cfg.Collection(), criteria, sort)
		if err != nil {
			return 0, m.storeError("find_one_by", err)
		}
		doc, found = d, ok
		if ok {
			return 1, nil
		}
		return 0, nil
	})
	return doc, found, err
}

// Save persists docs in one session and flushes once. Documents without an
// identifier receive one. A failed flush may leave some writes applied.
func (m *Manager[T]) Save(ctx context.Context, docs ...T) error {
	if len(docs) == 0 {
		return nil
	}
	return m.observe(ctx, "save", tracing.SpanOperationDBWrite, func(ctx context.Context) (int, error) {
		session := m.sessions(m.cfg.Collection())
		for _, d := range docs {
			session.Persist(d)
		}
		if err := session.Flush(ctx); err != nil {
			return 0, m.storeError("save", err)
		}
		return len(docs), nil
	})
}

// Remove deletes docs in one session. It reports false without touching the
// store when docs is empty.
func (m *Manager[T]) Remove(ctx context.Context, docs ...T) (bool, error) {
	if len(docs) == 0 {
		return false, nil
	}
	err := m.observe(ctx, "remove", tracing.SpanOperationDBWrite, func(ctx context.Context) (int, error) {
		session := m.sessions(m.cfg.Collection())
		for _, d := range docs {
			session.Remove(d)
		}
		if err := session.Flush(ctx); err != nil {
			return 0, m.storeError("remove", err)
		}
		return len(docs), nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Identifiers returns the identifiers of docs in order.
func (m *Manager[T]) Identifiers(docs ...T) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.DocumentID())
	}
	return ids
}

// EventName qualifies name with the configured event key.
func (m *Manager[T]) EventName(name string) string {
	key := m.cfg.Key()
	switch {
	case key == "":
		return name
	case name == "":
		return key
	}
	return key + "." + name
}

// Dispatch notifies the dispatcher synchronously and returns the event. An
// empty key falls back to the configured event key.
func (m *Manager[T]) Dispatch(ctx context.Context, key string, args eventbus.Arguments) (*eventbus.Event, error) {
	if strings.TrimSpace(key) == "" {
		key = m.cfg.Key()
	}
	event := eventbus.NewEvent(key, args)
	if err := m.dispatcher.Dispatch(ctx, event); err != nil {
		m.settings.logger.WithContext(ctx).Error("event dispatch failed",
			"document", m.cfg.Document(),
			"event_key", event.Key,
			"error", err,
		)
		return event, fmt.Errorf("dispatch %s: %w", event.Key, err)
	}
	return event, nil
}

func (m *Manager[T]) buildQuery(filters Filters, term string) (*Query, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	q := NewQuery().Where(filters...)
	if err := m.cfg.NewTextPredicate(term).ApplyTo(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (m *Manager[T]) storeError(op string, err error) error {
	return &StoreError{Op: op, Document: m.cfg.Document(), Err: err}
}
