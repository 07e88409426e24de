package catalog

import (
	"context"
	"iter"
)

// Continuation is the "more data" signal of a page, when the endpoint
// provides one.
type Continuation uint8

const (
	// ContinuationUnknown means the endpoint exposes no flag; only an
	// empty page ends the listing.
	ContinuationUnknown Continuation = iota
	ContinuationMore
	ContinuationDone
)

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items []T
	Next  Continuation
}

// PageFunc fetches the page starting at offset.
type PageFunc[T any] func(ctx context.Context, offset, limit int) (Page[T], error)

// Walk returns every item of a paginated listing, in order.
//
// The offset advances by the number of items actually returned, so short
// pages in the middle of a listing are not skipped over. The walk ends on
// an empty page or when a page says ContinuationDone, whichever comes first.
// A fetch error is yielded once and ends the walk.
//
// Each call to the returned sequence starts again from offset zero.
func Walk[T any](ctx context.Context, fetch PageFunc[T], limit int) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		offset := 0
		for {
			if err := ctx.Err(); err != nil {
				var zero T
				yield(zero, err)
				return
			}

			page, err := fetch(ctx, offset, limit)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if len(page.Items) == 0 {
				return
			}
			for _, item := range page.Items {
				if !yield(item, nil) {
					return
				}
			}
			if page.Next == ContinuationDone {
				return
			}
			offset += len(page.Items)
		}
	}
}

// Collect drains a walk into a slice, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var items []T
	for item, err := range seq {
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}
