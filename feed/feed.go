// Package feed implements infinite-scroll pagination over the figure listing.
//
// Page 1 is supplied by the caller, so the cursor starts at 2. A sentinel
// visibility event calls Visible, which fetches the next page unless a fetch is
// already running or the backend reported no more pages. HasMore is always taken
// from the latest response: an empty page that still reports more pages leaves
// the list and cursor unchanged, and only the next visibility event fetches again.
package feed

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/s0up4200/figureshelf/catalog"
)

// FirstCursor is the page fetched by the first LoadMore
const FirstCursor = 2

var (
	// ErrLoading indicates a fetch is already in flight
	ErrLoading = errors.New("page fetch already in flight")
	// ErrExhausted indicates the backend reported no further pages
	ErrExhausted = errors.New("no more pages")
)

// PageLoader fetches one page of figure cards
type PageLoader interface {
	Paginated(ctx context.Context, q catalog.PageQuery) catalog.Result[catalog.FigurePage]
}

// Batch is the outcome of one fetch
type Batch struct {
	Page     int
	Appended []catalog.FigureCard
	HasMore  bool
	// Message is set when the fetch failed
	Message string
}

// Failed reports whether the backend call failed
func (b Batch) Failed() bool {
	return b.Message != ""
}

// Feed accumulates figure cards page by page
type Feed struct {
	loader PageLoader
	limit  int
	logger zerolog.Logger

	mu      sync.Mutex
	page    int
	items   []catalog.FigureCard
	hasMore bool
	loading bool
}

// New creates a feed seeded with the already rendered first page
func New(loader PageLoader, first catalog.FigurePage, limit int, logger zerolog.Logger) *Feed {
	if limit < 1 {
		limit = catalog.DefaultPageLimit
	}
	items := make([]catalog.FigureCard, len(first.Figures))
	copy(items, first.Figures)

	return &Feed{
		loader:  loader,
		limit:   limit,
		logger:  logger,
		page:    FirstCursor,
		items:   items,
		hasMore: first.Pagination.HasMore,
	}
}

// Visible handles the sentinel entering the viewport
func (f *Feed) Visible(ctx context.Context) (Batch, error) {
	return f.LoadMore(ctx)
}

// LoadMore fetches the page under the cursor.
// It returns ErrLoading or ErrExhausted without contacting the backend when the guard applies.
func (f *Feed) LoadMore(ctx context.Context) (Batch, error) {
	f.mu.Lock()
	if f.loading {
		f.mu.Unlock()
		return Batch{}, ErrLoading
	}
	if !f.hasMore {
		f.mu.Unlock()
		return Batch{}, ErrExhausted
	}
	f.loading = true
	page := f.page
	f.mu.Unlock()

	result := f.loader.Paginated(ctx, catalog.PageQuery{Page: page, Limit: f.limit})

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = false

	if !result.OK() {
		f.logger.Warn().Int("page", page).Str("message", result.Message).Msg("Failed to load next page")
		return Batch{Page: page, HasMore: f.hasMore, Message: result.Message}, nil
	}

	figures := result.Data.Figures
	if len(figures) > 0 {
		f.page++
		f.items = append(f.items, figures...)
	}
	f.hasMore = result.Data.Pagination.HasMore

	f.logger.Debug().
		Int("page", page).
		Int("appended", len(figures)).
		Bool("has_more", f.hasMore).
		Msg("Loaded next page")

	return Batch{Page: page, Appended: figures, HasMore: f.hasMore}, nil
}

// Items returns a copy of the accumulated cards
func (f *Feed) Items() []catalog.FigureCard {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]catalog.FigureCard, len(f.items))
	copy(out, f.items)
	return out
}

// Filtered returns the accumulated cards, hiding sealed ones unless showSealed is set
func (f *Feed) Filtered(showSealed bool) []catalog.FigureCard {
	items := f.Items()
	if showSealed {
		return items
	}
	return catalog.Unsealed(items)
}

// Cursor returns the page the next fetch will request
func (f *Feed) Cursor() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.page
}

// HasMore reports whether the last response announced further pages
func (f *Feed) HasMore() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasMore
}

// Loading reports whether a fetch is in flight
func (f *Feed) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}
