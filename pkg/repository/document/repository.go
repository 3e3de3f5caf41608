package document

import "context"

// Filter represents native field-based filtering criteria for document stores.
type Filter map[string]interface{}

// Clone returns a shallow copy of the filter.
func (f Filter) Clone() Filter {
	out := make(Filter, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Sort specifies field and direction for sorting results.
type Sort struct {
	Field string
	Order SortOrder
}

// SortOrder defines the direction of sorting.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortOrder accepts asc/desc (any case) and the numeric 1/-1 forms.
// Anything else sorts ascending.
func ParseSortOrder(v interface{}) SortOrder {
	switch t := v.(type) {
	case SortOrder:
		if t == SortDesc {
			return SortDesc
		}
	case string:
		switch t {
		case "desc", "DESC", "Desc", "-1":
			return SortDesc
		}
	case int:
		if t < 0 {
			return SortDesc
		}
	case int32:
		if t < 0 {
			return SortDesc
		}
	case int64:
		if t < 0 {
			return SortDesc
		}
	}
	return SortAsc
}

// Direction returns the store-native direction (1 or -1).
func (o SortOrder) Direction() int {
	if o == SortDesc {
		return -1
	}
	return 1
}

// Pagination specifies skip/limit pagination for document stores.
// A zero Limit means no limit.
type Pagination struct {
	Skip  int64
	Limit int64
}

// QueryOptions encapsulates filtering, sorting, and pagination options for document queries.
type QueryOptions struct {
	Filter     Filter
	Sort       []Sort
	Pagination Pagination
	// Prime lists reference fields the caller wants resolved eagerly.
	// Stores that cannot join simply ignore it.
	Prime []string
}

// Page is the envelope returned by a paginated listing.
type Page[T any] struct {
	Items        []T   `json:"items" bson:"items"`
	Page         int   `json:"page" bson:"page"`
	ItemsPerPage int   `json:"items_per_page" bson:"items_per_page"`
	TotalCount   int64 `json:"total_count" bson:"total_count"`
}

// Stage is a single aggregation pipeline stage, e.g. {"$match": {...}}.
type Stage map[string]interface{}

// Pipeline is an ordered sequence of aggregation stages.
type Pipeline []Stage

// Result is a single document produced by an aggregation.
type Result map[string]interface{}

// Reader provides read operations for document entities.
type Reader[T any] interface {
	Find(ctx context.Context, collection string, opts QueryOptions) ([]T, error)
	Count(ctx context.Context, collection string, filter Filter) (int64, error)
}

// Aggregator executes aggregation pipelines server-side.
type Aggregator interface {
	Aggregate(ctx context.Context, collection string, pipeline Pipeline) ([]Result, error)
}

// Repository is the field-map lookup abstraction.
type Repository[T any] interface {
	FindBy(ctx context.Context, collection string, criteria Filter, sort []Sort) ([]T, error)
	// FindOneBy reports found=false when nothing matches; that is not an error.
	FindOneBy(ctx context.Context, collection string, criteria Filter, sort []Sort) (T, bool, error)
}

// Paginator executes a query with skip/limit semantics and returns a page envelope.
type Paginator[T any] interface {
	Paginate(ctx context.Context, collection string, opts QueryOptions, page, itemsPerPage int) (*Page[T], error)
}

// Session batches writes until Flush. A Session is a unit of work and is not
// safe for concurrent use.
type Session[T Identifiable] interface {
	Persist(doc T)
	Remove(doc T)
	// Flush commits staged writes. It is not atomic: on error some writes may
	// already be committed.
	Flush(ctx context.Context) error
}

// SessionFactory opens a fresh Session for a collection.
type SessionFactory[T Identifiable] func(collection string) Session[T]

// Store bundles the collaborators a document manager needs from one backend.
type Store[T Identifiable] interface {
	Reader[T]
	Aggregator
	Repository[T]
	NewSession(collection string) Session[T]
}
