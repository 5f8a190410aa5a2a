package aggregator

import (
	"context"
	"errors"
	"fmt"
)

// pageFunc fetches one page of items. A nil or empty next token means the
// listing is exhausted.
type pageFunc[T any] func(ctx context.Context, nextToken *string) ([]T, *string, error)

// maxPages bounds a single listing so a misbehaving API that keeps returning
// tokens cannot loop forever. Hitting the bound with a token still present is
// surfaced as truncation, never swallowed.
const maxPages = 1000

// ErrTruncated means pagination stopped while a continuation token was still
// present, so the collected data is incomplete.
var ErrTruncated = errors.New("listing truncated with continuation token present")

// collectPages drains a paginated listing to exhaustion. Cancellation is
// checked between pages so one huge listing cannot make the run uncancellable.
func collectPages[T any](ctx context.Context, fetch pageFunc[T]) ([]T, error) {
	var items []T
	var token *string

	for page := 0; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if page >= maxPages {
			return nil, fmt.Errorf("%w after %d pages", ErrTruncated, maxPages)
		}

		pageItems, next, err := fetch(ctx, token)
		if err != nil {
			return nil, err
		}
		items = append(items, pageItems...)

		if next == nil || *next == "" {
			return items, nil
		}
		token = next
	}
}

// pagerWithRetry wraps a pageFunc so each page fetch gets the retry budget.
func pagerWithRetry[T any](r *retrier, fetch pageFunc[T]) pageFunc[T] {
	return func(ctx context.Context, nextToken *string) ([]T, *string, error) {
		var (
			items []T
			next  *string
		)
		err := r.do(ctx, func(ctx context.Context) error {
			var err error
			items, next, err = fetch(ctx, nextToken)
			return err
		})
		if err != nil {
			return nil, nil, err
		}
		return items, next, nil
	}
}
