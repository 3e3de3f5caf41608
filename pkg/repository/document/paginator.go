package document

import (
	"context"
	"fmt"
)

// ReaderPaginator implements Paginator on top of any Reader using skip/limit
// and a separate count.
type ReaderPaginator[T any] struct {
	reader Reader[T]
}

// NewReaderPaginator creates a paginator over reader.
func NewReaderPaginator[T any](reader Reader[T]) *ReaderPaginator[T] {
	return &ReaderPaginator[T]{reader: reader}
}

// Paginate runs opts for the requested page. Page numbers below 1 are treated
// as 1; a non-positive itemsPerPage is an error.
func (p *ReaderPaginator[T]) Paginate(ctx context.Context, collection string, opts QueryOptions, page, itemsPerPage int) (*Page[T], error) {
	if itemsPerPage <= 0 {
		return nil, fmt.Errorf("items per page must be positive, got %d", itemsPerPage)
	}
	if page < 1 {
		page = 1
	}

	total, err := p.reader.Count(ctx, collection, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", collection, err)
	}

	items := make([]T, 0)
	perPage := int64(itemsPerPage)
	pages := total / perPage
	if total%perPage != 0 {
		pages++
	}
	// compare page counts before multiplying so a huge page cannot overflow skip
	if int64(page-1) < pages {
		opts.Pagination = Pagination{Skip: int64(page-1) * perPage, Limit: perPage}
		found, err := p.reader.Find(ctx, collection, opts)
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", collection, err)
		}
		items = append(items, found...)
	}

	return &Page[T]{
		Items:        items,
		Page:         page,
		ItemsPerPage: itemsPerPage,
		TotalCount:   total,
	}, nil
}
