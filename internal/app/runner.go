package app

import (
	"context"
	"fmt"
	"time"

	"github.com/samvad-hq/samvad-newsfeed/internal/domain"
	"github.com/samvad-hq/samvad-newsfeed/pkg/publishers"
)

// Selection is the source set and filters a run uses.
type Selection struct {
	Sources []domain.SourceID
	Filters domain.Filters
}

// DefaultSelection reads the persisted sources and category. Saved sources
// with no adapter, such as entries disabled in the catalog, are left out so
// they do not fail the run.
func (a *App) DefaultSelection() Selection {
	snap := a.prefs.Snapshot()
	active := make([]domain.SourceID, 0, len(snap.Sources))
	var dropped []domain.SourceID
	for _, id := range snap.Sources {
		if _, err := a.registry.AdapterFor(id); err != nil {
			dropped = append(dropped, id)
			continue
		}
		active = append(active, id)
	}
	if len(dropped) > 0 {
		a.log.WarnObj("saved sources unavailable, skipping", "sources_meta", map[string]any{
			"dropped": dropped,
			"active":  active,
		})
	}
	return Selection{
		Sources: active,
		Filters: domain.Filters{Category: snap.Category},
	}
}

// Summary describes a completed run.
type Summary struct {
	Pages          int
	Articles       int
	HasMore        bool
	Published      int
	PublishErrors  int
	ElapsedMillis  int64
	ActiveSources  []domain.SourceID
	AppliedFilters domain.Filters
}

// Empty reports a run that found nothing.
func (s Summary) Empty() bool { return s.Articles == 0 }

// Run loads the first page and then up to pages-1 more while any source has
// more results. Every article is handed to emit once, in feed order. When
// publishing is enabled each page is forwarded to the publishers.
func (a *App) Run(ctx context.Context, sel Selection, pages int, emit func(domain.Article) error) (Summary, error) {
	if pages <= 0 {
		pages = 1
	}
	start := time.Now()
	summary := Summary{ActiveSources: sel.Sources, AppliedFilters: sel.Filters}

	f, err := a.NewFeed(sel.Sources, sel.Filters, nil)
	if err != nil {
		return summary, err
	}

	a.log.InfoObj("feed run started", "run_meta", map[string]any{
		"sources":  sel.Sources,
		"filters":  sel.Filters,
		"pages":    pages,
		"publish":  a.Publishing(),
		"pageSize": a.cfg.PageSize,
	})

	emitted := make(map[string]int)
	f.Refresh(ctx)
	for page := 1; ; page++ {
		st := f.State()
		if st.Err != nil {
			return summary, fmt.Errorf("load page %d: %w", page, st.Err)
		}

		fresh := unseen(st.Articles, emitted)
		for _, art := range fresh {
			if err := emit(art); err != nil {
				return summary, fmt.Errorf("emit article %s: %w", art.ID, err)
			}
		}
		summary.Pages = page
		summary.Articles += len(fresh)
		summary.HasMore = st.HasMore

		a.publish(ctx, publishers.NewPageEvent(page, st.Sources, st.Filters, st.HasMore, fresh), &summary)

		if page >= pages || !st.HasMore || ctx.Err() != nil {
			break
		}
		f.FetchMore(ctx)
	}

	summary.ElapsedMillis = time.Since(start).Milliseconds()
	a.log.InfoObj("feed run completed", "run_meta", map[string]any{
		"pages":      summary.Pages,
		"articles":   summary.Articles,
		"has_more":   summary.HasMore,
		"published":  summary.Published,
		"elapsed_ms": summary.ElapsedMillis,
	})
	return summary, nil
}

func (a *App) publish(ctx context.Context, evt publishers.Event, summary *Summary) {
	if !a.Publishing() || len(evt.Articles) == 0 {
		return
	}
	n, err := a.fanout.Publish(ctx, evt)
	summary.Published += n
	if err != nil {
		summary.PublishErrors++
		a.log.ErrorObj("page publish failed", "publish_error", map[string]any{
			"page":      evt.Page,
			"succeeded": n,
			"error":     err.Error(),
		})
	}
}

// unseen returns the articles not yet emitted. A sorted feed reorders earlier
// pages, so counts per id are compared rather than slicing off the tail.
func unseen(articles []domain.Article, emitted map[string]int) []domain.Article {
	seen := make(map[string]int, len(articles))
	out := make([]domain.Article, 0, len(articles))
	for _, art := range articles {
		seen[art.ID]++
		if seen[art.ID] > emitted[art.ID] {
			emitted[art.ID]++
			out = append(out, art)
		}
	}
	return out
}
