package pagination

import (
	"context"
	"iter"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/workos-client/pkg/logging"
)

// Order is the sort order of list results.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
	OrderNorm Order = "normal"
)

const (
	// DefaultPageSize is the limit used while auto paginating.
	DefaultPageSize = 100

	// DefaultPageDelay is the pause between page fetches.
	DefaultPageDelay = 350 * time.Millisecond
)

// ListMetadata holds the cursors of a page.
type ListMetadata struct {
	Before string `json:"before,omitempty"`
	After  string `json:"after,omitempty"`
}

// List is the wire shape of every list response.
type List[T any] struct {
	Object       string       `json:"object,omitempty"`
	Data         []T          `json:"data"`
	ListMetadata ListMetadata `json:"list_metadata"`
}

// Params are the cursor parameters shared by list endpoints.
type Params struct {
	Limit  int
	Before string
	After  string
	Order  Order
}

// Values encodes p as query parameters.
func (p Params) Values() url.Values {
	q := url.Values{}
	p.Encode(q)
	return q
}

// Encode adds p to q.
func (p Params) Encode(q url.Values) {
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Before != "" {
		q.Set("before", p.Before)
	}
	if p.After != "" {
		q.Set("after", p.After)
	}
	if p.Order != "" {
		q.Set("order", string(p.Order))
	}
}

// FetchFunc fetches one page for the given cursor parameters.
type FetchFunc[T any] func(ctx context.Context, params Params) (*List[T], error)

// Page is the first page of a list call. Its cursors and data are those of
// the response; Pages and All walk the whole collection.
type Page[T any] struct {
	List[T]

	// PageSize is the limit used while auto paginating.
	PageSize int

	// PageDelay is the pause between page fetches.
	PageDelay time.Duration

	fetch  FetchFunc[T]
	params Params
}

// Fetch performs the first request and wraps it into a Page.
func Fetch[T any](ctx context.Context, params Params, fetch FetchFunc[T]) (*Page[T], error) {
	first, err := fetch(ctx, params)
	if err != nil {
		return nil, err
	}
	return NewPage(*first, params, fetch), nil
}

// NewPage wraps an already fetched list.
func NewPage[T any](list List[T], params Params, fetch FetchFunc[T]) *Page[T] {
	return &Page[T]{
		List:      list,
		PageSize:  DefaultPageSize,
		PageDelay: DefaultPageDelay,
		fetch:     fetch,
		params:    params,
	}
}

// Pages returns a lazy sequence of pages. Every range over it issues fresh
// requests starting at the original cursor.
func (p *Page[T]) Pages(ctx context.Context) iter.Seq2[*List[T], error] {
	return func(yield func(*List[T], error) bool) {
		backwards := p.params.Before != ""
		params := p.params
		if p.PageSize > 0 {
			params.Limit = p.PageSize
		}

		for fetched := 0; ; fetched++ {
			if fetched > 0 && p.PageDelay > 0 {
				timer := time.NewTimer(p.PageDelay)
				select {
				case <-ctx.Done():
					timer.Stop()
					yield(nil, ctx.Err())
					return
				case <-timer.C:
				}
			}

			list, err := p.fetch(ctx, params)
			if err != nil {
				yield(nil, err)
				return
			}

			if !yield(list, nil) {
				return
			}

			var cursor string
			if backwards {
				cursor = list.ListMetadata.Before
			} else {
				cursor = list.ListMetadata.After
			}
			if cursor == "" || len(list.Data) == 0 {
				logger := logging.NewLogger(logging.ComponentPagination)
				logger.Debug().
					Int("pages", fetched+1).
					Msg("Pagination complete")
				return
			}

			if backwards {
				params.Before = cursor
				params.After = ""
			} else {
				params.After = cursor
				params.Before = ""
			}
		}
	}
}

// All returns a lazy sequence over every item of every page.
func (p *Page[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for list, err := range p.Pages(ctx) {
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			for _, item := range list.Data {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

// AutoPaginate collects every item of every page.
func (p *Page[T]) AutoPaginate(ctx context.Context) ([]T, error) {
	var results []T
	for list, err := range p.Pages(ctx) {
		if err != nil {
			return results, err
		}
		results = append(results, list.Data...)
	}
	return results, nil
}
