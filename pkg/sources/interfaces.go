package sources

import (
	"context"
	"time"

	"github.com/samvad-hq/samvad-newsfeed/internal/domain"
	"github.com/samvad-hq/samvad-newsfeed/pkg/httpclient"
)

// Adapter translates one vendor's paginated listing into domain articles.
// Fetch never fails: vendor errors are logged and degrade to an empty result.
type Adapter interface {
	ID() domain.SourceID
	Name() string
	Fetch(ctx context.Context, q domain.Query) domain.FetchResult
}

// AdapterRegistry resolves the adapter for a source id.
type AdapterRegistry interface {
	AdapterFor(id domain.SourceID) (Adapter, error)
}

// FetchObserver receives one observation per adapter call.
type FetchObserver interface {
	ObserveFetch(source, outcome string, elapsed time.Duration, articles int)
}

// HTTPClient aliases the shared httpclient.Client interface for clarity within sources.
type HTTPClient = httpclient.Client
