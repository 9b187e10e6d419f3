// Package feed merges paginated results from several news sources into one
// incrementally loaded article list with shared loading, error and paging state.
package feed

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/samvad-hq/samvad-newsfeed/internal/domain"
	"github.com/samvad-hq/samvad-newsfeed/internal/logger"
	"github.com/samvad-hq/samvad-newsfeed/pkg/sources"
)

// ErrUnknownSource is reported when an active source has no registered adapter.
var ErrUnknownSource = errors.New("unknown news source")

// DefaultPageSize is the per-source page size when Options.PageSize is unset.
const DefaultPageSize = 10

// Options tunes a Feed. The zero value is usable.
type Options struct {
	PageSize        int
	SortByPublished bool
	Enricher        ArticleEnricher
	Metrics         MergeObserver
	// OnChange receives a copy of the state after every transition.
	OnChange func(State)
	Logger   logger.Logger
}

// State is a point-in-time copy of the feed.
type State struct {
	Articles []domain.Article
	Loading  bool
	Err      error
	HasMore  bool
	Page     int
	Sources  []domain.SourceID
	Filters  domain.Filters
}

// ErrorMessage renders Err for display, or "" when there is none.
func (s State) ErrorMessage() string {
	switch {
	case s.Err == nil:
		return ""
	case errors.Is(s.Err, ErrUnknownSource):
		return "One or more selected sources are not available: " + s.Err.Error()
	case errors.Is(s.Err, context.Canceled), errors.Is(s.Err, context.DeadlineExceeded):
		return "Loading was interrupted. Please try again."
	default:
		return "Something went wrong while loading articles: " + s.Err.Error()
	}
}

// Empty reports a settled, error-free feed with nothing to show.
func (s State) Empty() bool {
	return !s.Loading && s.Err == nil && len(s.Articles) == 0
}

func (s State) clone() State {
	s.Articles = slices.Clone(s.Articles)
	s.Sources = slices.Clone(s.Sources)
	return s
}

// Feed coordinates the enabled source adapters behind one page cursor.
// It is safe for concurrent use.
type Feed struct {
	registry sources.AdapterRegistry
	opts     Options
	log      logger.Logger

	mu     sync.Mutex
	state  State
	epoch  uint64
	cancel context.CancelFunc
}

// New builds a feed for the given sources and filters. Nothing is fetched until
// FetchMore or Refresh is called.
func New(reg sources.AdapterRegistry, active []domain.SourceID, filters domain.Filters, opts Options) (*Feed, error) {
	if reg == nil {
		return nil, fmt.Errorf("feed requires an adapter registry")
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	return &Feed{
		registry: reg,
		opts:     opts,
		log:      logger.Ensure(opts.Logger),
		state: State{
			Articles: []domain.Article{},
			HasMore:  true,
			Page:     1,
			Sources:  slices.Clone(active),
			Filters:  filters,
		},
	}, nil
}

// State returns a copy of the current state.
func (f *Feed) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.clone()
}

// FetchMore loads the page at the cursor and appends it. It blocks until every
// adapter has settled and returns false without doing anything when a fetch is
// already in flight or no source has more results.
func (f *Feed) FetchMore(ctx context.Context) bool {
	f.mu.Lock()
	if f.state.Loading || !f.state.HasMore {
		f.mu.Unlock()
		return false
	}
	run := f.begin(ctx, false)
	f.mu.Unlock()

	f.execute(run)
	return true
}

// Refresh discards the loaded articles and fetches the first page again.
func (f *Feed) Refresh(ctx context.Context) {
	f.mu.Lock()
	run := f.begin(ctx, true)
	f.mu.Unlock()

	f.execute(run)
}

// SetSources changes the active sources and reloads from page one. Unchanged sets are a no-op.
func (f *Feed) SetSources(ctx context.Context, active []domain.SourceID) bool {
	f.mu.Lock()
	if slices.Equal(f.state.Sources, active) {
		f.mu.Unlock()
		return false
	}
	f.state.Sources = slices.Clone(active)
	run := f.begin(ctx, true)
	f.mu.Unlock()

	f.execute(run)
	return true
}

// SetFilters changes the filters and reloads from page one. Unchanged filters are a no-op.
func (f *Feed) SetFilters(ctx context.Context, filters domain.Filters) bool {
	f.mu.Lock()
	if f.state.Filters == filters {
		f.mu.Unlock()
		return false
	}
	f.state.Filters = filters
	run := f.begin(ctx, true)
	f.mu.Unlock()

	f.execute(run)
	return true
}

// fetchRun captures everything one fetch needs so it can proceed without the lock.
type fetchRun struct {
	ctx     context.Context
	cancel  context.CancelFunc
	epoch   uint64
	reset   bool
	query   domain.Query
	active  []domain.SourceID
	initial State
}

// begin marks the feed as loading. Resets bump the epoch so older fetches are
// discarded when they settle. Caller holds f.mu.
func (f *Feed) begin(ctx context.Context, reset bool) fetchRun {
	if reset {
		f.epoch++
		if f.cancel != nil {
			f.cancel()
		}
		f.state.Articles = []domain.Article{}
		f.state.HasMore = true
		f.state.Page = 1
	}
	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel

	f.state.Loading = true
	f.state.Err = nil

	return fetchRun{
		ctx:     runCtx,
		cancel:  cancel,
		epoch:   f.epoch,
		reset:   reset,
		query:   domain.NewQuery(f.state.Page, f.opts.PageSize, f.state.Filters),
		active:  slices.Clone(f.state.Sources),
		initial: f.state.clone(),
	}
}

func (f *Feed) execute(run fetchRun) {
	defer run.cancel()
	f.notify(run.initial)

	articles, hasMore, err := f.gather(run.ctx, run.active, run.query)
	if err == nil && f.opts.Enricher != nil && len(articles) > 0 {
		articles = f.opts.Enricher.Enrich(run.ctx, articles)
	}

	f.mu.Lock()
	if run.epoch != f.epoch {
		f.mu.Unlock()
		f.observeMerge(false)
		f.log.DebugObj("discarded stale page", "feed", map[string]any{
			"page":        run.query.Page,
			"fetch_epoch": run.epoch,
			"articles":    len(articles),
			"reset":       run.reset,
		})
		return
	}

	f.cancel = nil
	if err != nil {
		f.state.Err = err
	} else {
		f.merge(run, articles, hasMore)
	}
	f.state.Loading = false
	snapshot := f.state.clone()
	f.mu.Unlock()

	if err != nil {
		f.log.ErrorObj("feed fetch failed", "feed", map[string]any{
			"page":  run.query.Page,
			"error": err.Error(),
		})
	} else {
		f.observeMerge(true)
	}
	f.notify(snapshot)
}

// merge applies a settled page. Caller holds f.mu.
func (f *Feed) merge(run fetchRun, articles []domain.Article, hasMore bool) {
	if run.reset {
		f.state.Articles = articles
	} else {
		f.state.Articles = append(f.state.Articles, articles...)
	}
	if f.opts.SortByPublished {
		sortByPublished(f.state.Articles)
	}
	f.state.HasMore = hasMore
	if hasMore {
		f.state.Page = run.query.Page + 1
	}
}

// gather calls every active adapter with the same query and waits for all of
// them. A failing or panicking adapter contributes nothing.
func (f *Feed) gather(ctx context.Context, active []domain.SourceID, q domain.Query) ([]domain.Article, bool, error) {
	adapters := make([]sources.Adapter, 0, len(active))
	for _, id := range active {
		a, err := f.registry.AdapterFor(id)
		if err != nil {
			return nil, false, fmt.Errorf("%w %q: %v", ErrUnknownSource, id, err)
		}
		adapters = append(adapters, a)
	}

	// Adapters never return errors and fetchOne recovers panics, so the
	// group is only used to wait for every source to settle.
	results := make([]domain.FetchResult, len(adapters))
	var g errgroup.Group
	for i, a := range adapters {
		g.Go(func() error {
			results[i] = f.fetchOne(ctx, a, q)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	articles := []domain.Article{}
	hasMore := false
	for _, res := range results {
		articles = append(articles, res.Articles...)
		hasMore = hasMore || res.HasMore
	}
	return articles, hasMore, nil
}

func (f *Feed) fetchOne(ctx context.Context, a sources.Adapter, q domain.Query) (res domain.FetchResult) {
	defer func() {
		if r := recover(); r != nil {
			f.log.ErrorObj("source adapter panicked", "feed", map[string]any{
				"source": string(a.ID()),
				"panic":  fmt.Sprint(r),
			})
			res = domain.EmptyResult()
		}
	}()
	return a.Fetch(ctx, q)
}

func (f *Feed) notify(s State) {
	if f.opts.OnChange != nil {
		f.opts.OnChange(s)
	}
}

func (f *Feed) observeMerge(applied bool) {
	if f.opts.Metrics != nil {
		f.opts.Metrics.ObserveMerge(applied)
	}
}

// sortByPublished orders newest first; articles without a parseable date go last.
func sortByPublished(articles []domain.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		ti, oki := articles[i].PublishedTime()
		tj, okj := articles[j].PublishedTime()
		switch {
		case oki && okj:
			return ti.After(tj)
		case oki != okj:
			return oki
		default:
			return false
		}
	})
}
