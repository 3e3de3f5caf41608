package document

import (
	"context"
	"errors"
	"math"
	"testing"
)

type sliceReader struct {
	items     []int
	countErr  error
	findCalls int
	lastOpts  QueryOptions
}

func (r *sliceReader) Find(_ context.Context, _ string, opts QueryOptions) ([]int, error) {
	r.findCalls++
	r.lastOpts = opts
	start := int(opts.Pagination.Skip)
	if start > len(r.items) {
		start = len(r.items)
	}
	end := len(r.items)
	if opts.Pagination.Limit > 0 && start+int(opts.Pagination.Limit) < end {
		end = start + int(opts.Pagination.Limit)
	}
	return r.items[start:end], nil
}

func (r *sliceReader) Count(context.Context, string, Filter) (int64, error) {
	if r.countErr != nil {
		return 0, r.countErr
	}
	return int64(len(r.items)), nil
}

func TestReaderPaginator(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	tests := []struct {
		name      string
		page      int
		perPage   int
		wantItems []int
		wantPage  int
		wantFind  bool
	}{
		{name: "first page", page: 1, perPage: 3, wantItems: []int{1, 2, 3}, wantPage: 1, wantFind: true},
		{name: "last partial page", page: 3, perPage: 3, wantItems: []int{7}, wantPage: 3, wantFind: true},
		{name: "past the end", page: 4, perPage: 3, wantItems: []int{}, wantPage: 4},
		{name: "page below one", page: 0, perPage: 5, wantItems: []int{1, 2, 3, 4, 5}, wantPage: 1, wantFind: true},
		{name: "huge page", page: math.MaxInt, perPage: 2, wantItems: []int{}, wantPage: math.MaxInt},
		{name: "huge page and size", page: math.MaxInt, perPage: math.MaxInt, wantItems: []int{}, wantPage: math.MaxInt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &sliceReader{items: items}
			page, err := NewReaderPaginator[int](reader).Paginate(context.Background(), "c", QueryOptions{}, tt.page, tt.perPage)
			if err != nil {
				t.Fatalf("paginate: %v", err)
			}
			if page.TotalCount != 7 || page.Page != tt.wantPage || page.ItemsPerPage != tt.perPage {
				t.Errorf("unexpected envelope %+v", page)
			}
			if len(page.Items) != len(tt.wantItems) {
				t.Fatalf("expected %v, got %v", tt.wantItems, page.Items)
			}
			for i := range tt.wantItems {
				if page.Items[i] != tt.wantItems[i] {
					t.Fatalf("expected %v, got %v", tt.wantItems, page.Items)
				}
			}
			if (reader.findCalls > 0) != tt.wantFind {
				t.Errorf("find called %d times", reader.findCalls)
			}
		})
	}
}

func TestReaderPaginator_Errors(t *testing.T) {
	p := NewReaderPaginator[int](&sliceReader{})
	if _, err := p.Paginate(context.Background(), "c", QueryOptions{}, 1, 0); err == nil {
		t.Error("expected error for zero items per page")
	}

	cause := errors.New("count failed")
	p = NewReaderPaginator[int](&sliceReader{countErr: cause})
	if _, err := p.Paginate(context.Background(), "c", QueryOptions{}, 1, 10); !errors.Is(err, cause) {
		t.Errorf("expected count error, got %v", err)
	}
}
