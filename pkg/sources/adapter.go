package sources

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-newsfeed/internal/domain"
	"github.com/samvad-hq/samvad-newsfeed/internal/logger"
	"github.com/samvad-hq/samvad-newsfeed/pkg/httpclient"
)

// DefaultPageSize applies when a query carries no page size.
const DefaultPageSize = 10

// Fetch outcomes reported to the observer.
const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeDecode      = "decode_error"
	OutcomeBreaker     = "breaker_open"
	OutcomeRateLimited = "rate_limited"
)

// vendor holds the request and payload rules for one news API.
type vendor interface {
	buildURL(base string, q domain.Query) string
	decode(body []byte, q domain.Query) (page, error)
}

// page is one decoded vendor response. skipped counts items rejected for missing required fields.
type page struct {
	articles []domain.Article
	hasMore  bool
	skipped  int
}

// Option customizes an adapter.
type Option func(*adapter)

// WithLogger sets the adapter logger.
func WithLogger(log logger.Logger) Option {
	return func(a *adapter) { a.log = logger.Ensure(log) }
}

// WithGuard replaces the adapter guard. A nil guard disables breaker and limiter.
func WithGuard(g *Guard) Option {
	return func(a *adapter) {
		a.guard = g
		a.guardSet = true
	}
}

// WithObserver reports each fetch to obs.
func WithObserver(obs FetchObserver) Option {
	return func(a *adapter) { a.observer = obs }
}

type adapter struct {
	src      Source
	vendor   vendor
	client   HTTPClient
	headers  map[string]string
	guard    *Guard
	guardSet bool
	log      logger.Logger
	observer FetchObserver
}

func newAdapter(src Source, v vendor, client HTTPClient, opts ...Option) *adapter {
	a := &adapter{
		src:     src,
		vendor:  v,
		client:  client,
		headers: Headers(src),
		log:     logger.NopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	if !a.guardSet {
		cfg := DefaultGuardConfig(src.ID)
		cfg.RequestsPerSecond = src.RequestsPerSecond
		a.guard = NewGuard(cfg, a.log)
	}
	if a.client == nil {
		a.client = DefaultHTTPClient()
	}
	return a
}

func (a *adapter) ID() domain.SourceID { return a.src.SourceID() }

func (a *adapter) Name() string { return a.src.Name }

// Fetch requests one page. Any failure is logged and yields an empty result.
func (a *adapter) Fetch(ctx context.Context, q domain.Query) domain.FetchResult {
	start := time.Now()
	q = normalizeQuery(q)
	if q.Date != "" {
		if _, ok := formatDate(q.Date, dateISO); !ok {
			a.log.WarnObj("ignoring unparseable date filter", "source", map[string]string{
				"id":   a.src.ID,
				"date": q.Date,
			})
			q.Date = ""
		}
	}
	reqURL := a.vendor.buildURL(a.src.BaseURL, q)

	body, err := a.guard.Do(ctx, func() ([]byte, error) {
		return getJSON(ctx, a.client, reqURL, a.src.ID, a.headers)
	})
	if err != nil {
		outcome := OutcomeError
		switch {
		case errors.Is(err, ErrBreakerOpen):
			outcome = OutcomeBreaker
		case errors.Is(err, ErrRateLimited):
			outcome = OutcomeRateLimited
		}
		a.observe(outcome, start, 0)
		a.log.WarnObj("source fetch failed", "source", map[string]any{
			"id":    a.src.ID,
			"page":  q.Page,
			"error": err.Error(),
		})
		return domain.EmptyResult()
	}

	decoded, err := a.vendor.decode(body, q)
	if err != nil {
		a.observe(OutcomeDecode, start, 0)
		a.log.ErrorObj("source response rejected", "source", map[string]any{
			"id":    a.src.ID,
			"page":  q.Page,
			"error": err.Error(),
			"body":  httpclient.Snippet(body),
		})
		return domain.EmptyResult()
	}

	articles := decoded.articles
	if articles == nil {
		articles = []domain.Article{}
	}
	for i := range articles {
		articles[i].Source = a.src.Name
	}
	if decoded.skipped > 0 {
		a.log.WarnObj("dropped malformed articles", "source", map[string]any{
			"id":      a.src.ID,
			"page":    q.Page,
			"skipped": decoded.skipped,
		})
	}
	a.observe(OutcomeOK, start, len(articles))
	a.log.DebugObj("source fetch ok", "source", map[string]any{
		"id":       a.src.ID,
		"page":     q.Page,
		"articles": len(articles),
		"has_more": decoded.hasMore,
	})

	return domain.FetchResult{
		Articles: articles,
		HasMore:  decoded.hasMore,
		NextPage: q.Page + 1,
	}
}

func (a *adapter) observe(outcome string, start time.Time, n int) {
	if a.observer == nil {
		return
	}
	a.observer.ObserveFetch(a.src.ID, outcome, time.Since(start), n)
}

func normalizeQuery(q domain.Query) domain.Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	q.Category = strings.TrimSpace(q.Category)
	q.SearchTerm = strings.TrimSpace(q.SearchTerm)
	q.Date = strings.TrimSpace(q.Date)
	return q
}
