// Package fetch drains paginated remote listings page by page.
package fetch

import (
	"context"
	"fmt"

	"github.com/yairfalse/kartta/retry"
	"github.com/yairfalse/kartta/types"
)

// PageFunc fetches one page of a listing. An empty token requests the
// first page; an empty nextToken means the sequence is complete.
type PageFunc[T any] func(ctx context.Context, pageToken string) (items []T, nextToken string, err error)

// Fetcher walks a paginated listing in order, retrying page fetches and
// gating every remote attempt through an admission hook.
type Fetcher[T any] struct {
	op          string
	fetch       PageFunc[T]
	policy      *retry.Policy
	acquire     func(context.Context) error
	onRateLimit func()
}

// New creates a bare Fetcher with no retry policy or admission gate.
func New[T any](op string, fn PageFunc[T]) *Fetcher[T] {
	return &Fetcher[T]{op: op, fetch: fn}
}

// WithRetry sets the retry policy applied to each page fetch.
func (f *Fetcher[T]) WithRetry(p *retry.Policy) *Fetcher[T] {
	f.policy = p
	return f
}

// WithGate sets an admission hook that runs before every fetch attempt,
// including retries of the same page.
func (f *Fetcher[T]) WithGate(acquire func(context.Context) error) *Fetcher[T] {
	f.acquire = acquire
	return f
}

// WithRateLimitNotify sets the hook fired on each quota rejection.
func (f *Fetcher[T]) WithRateLimitNotify(fn func()) *Fetcher[T] {
	f.onRateLimit = fn
	return f
}

// Each visits every item across all pages in listing order. It returns
// the number of fully fetched pages and the first error. Items already
// handed to visit stay visited when a later page fails, so callers must
// not treat a partial walk as complete.
func (f *Fetcher[T]) Each(ctx context.Context, visit func(T) error) (int, error) {
	pages := 0
	token := ""

	for {
		var items []T
		var next string

		attempt := func() error {
			if f.acquire != nil {
				if err := f.acquire(ctx); err != nil {
					return types.NewError(types.ErrTransient, f.op, err)
				}
			}
			var err error
			items, next, err = f.fetch(ctx, token)
			return err
		}

		var err error
		if f.policy != nil {
			err = f.policy.ExecuteNotify(ctx, f.op, attempt, f.onRateLimit)
		} else {
			err = attempt()
		}
		if err != nil {
			return pages, err
		}

		pages++
		for _, item := range items {
			if err := visit(item); err != nil {
				return pages, err
			}
		}

		if next == "" {
			return pages, nil
		}
		if next == token {
			return pages, types.NewError(types.ErrFatal, f.op,
				fmt.Errorf("page token did not advance: %q", next))
		}
		token = next
	}
}

// All collects every item across all pages.
func (f *Fetcher[T]) All(ctx context.Context) ([]T, int, error) {
	var out []T
	pages, err := f.Each(ctx, func(item T) error {
		out = append(out, item)
		return nil
	})
	return out, pages, err
}
