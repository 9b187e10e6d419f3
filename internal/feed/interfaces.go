package feed

import (
	"context"

	"github.com/samvad-hq/samvad-newsfeed/internal/domain"
)

// ArticleEnricher fills in metadata (e.g., OG images) on a merged page before it is stored.
type ArticleEnricher interface {
	Enrich(ctx context.Context, articles []domain.Article) []domain.Article
}

// MergeObserver is told whether each settled page was applied or discarded as stale.
type MergeObserver interface {
	ObserveMerge(applied bool)
}
