package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// MaxPageSize is the largest page the YouTube Data API serves.
const MaxPageSize = 50

// Pager yields consecutive pages of a listing.
type Pager[T any] interface {
	// Next fetches the current page and advances to the following one.
	// more is false once the listing has no continuation cursor.
	Next(ctx context.Context) (items []T, more bool, err error)
}

// PagerFunc adapts a function to the Pager interface.
type PagerFunc[T any] func(ctx context.Context) ([]T, bool, error)

// Next calls f(ctx).
func (f PagerFunc[T]) Next(ctx context.Context) ([]T, bool, error) {
	return f(ctx)
}

// PageSize returns the per-request page size for a result cap: the cap
// itself, bounded by MaxPageSize.
func PageSize(limit int) int {
	if limit > MaxPageSize {
		return MaxPageSize
	}
	if limit < 0 {
		return 0
	}
	return limit
}

// Collect pulls pages from p until limit items are gathered or no pages
// remain. On a page error or context cancellation it stops and returns the
// items gathered so far together with the error.
func Collect[T any](ctx context.Context, p Pager[T], limit int) ([]T, error) {
	start := time.Now()
	items := make([]T, 0, PageSize(limit))
	if limit <= 0 {
		return items, nil
	}

	pages := 0
	more := true
	for len(items) < limit && more {
		if err := ctx.Err(); err != nil {
			log.Warn().
				Err(err).
				Int("pages", pages).
				Int("items", len(items)).
				Msg("Pagination cancelled - returning partial results")
			return items, fmt.Errorf("pagination cancelled (partial data: %d items after %d pages): %w", len(items), pages, err)
		}

		var page []T
		var err error
		page, more, err = p.Next(ctx)
		if err != nil {
			log.Warn().
				Err(err).
				Int("page", pages+1).
				Int("items", len(items)).
				Msg("Page fetch failed - returning partial results")
			return items, fmt.Errorf("page %d (partial data: %d items): %w", pages+1, len(items), err)
		}
		pages++

		for _, item := range page {
			items = append(items, item)
			if len(items) == limit {
				break
			}
		}

		log.Debug().
			Int("page", pages).
			Int("items", len(items)).
			Int("limit", limit).
			Bool("more", more).
			Msg("Fetch progress")
	}

	log.Info().
		Int("pages", pages).
		Int("items", len(items)).
		Int("limit", limit).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return items, nil
}
