package sources

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/samvad-hq/samvad-newsfeed/internal/domain"
	"github.com/samvad-hq/samvad-newsfeed/pkg/httpclient"
)

// ErrNoAdapter is returned when no adapter is registered for a source.
var ErrNoAdapter = errors.New("no adapter registered")

// APIKeys carries vendor credentials from configuration.
type APIKeys struct {
	NewsAPI  string
	Guardian string
	NYT      string
}

func (k APIKeys) forType(typ string) string {
	switch typ {
	case TypeNewsAPI:
		return k.NewsAPI
	case TypeGuardian:
		return k.Guardian
	case TypeNYT:
		return k.NYT
	}
	return ""
}

// Registry implements AdapterRegistry.
type Registry struct {
	mu   sync.RWMutex
	byID map[string]Adapter
}

// NewAdapterRegistry builds a registry for the provided adapters keyed by source id.
func NewAdapterRegistry(adapters ...Adapter) *Registry {
	reg := &Registry{byID: make(map[string]Adapter)}
	for _, a := range adapters {
		reg.Register(a)
	}
	return reg
}

// Register adds a under its source id, replacing any previous adapter for that id.
func (r *Registry) Register(a Adapter) {
	if a == nil {
		return
	}
	key := normalizeKey(string(a.ID()))
	if key == "" {
		return
	}
	r.mu.Lock()
	r.byID[key] = a
	r.mu.Unlock()
}

// AdapterFor selects the adapter registered for id.
func (r *Registry) AdapterFor(id domain.SourceID) (Adapter, error) {
	if r == nil {
		return nil, fmt.Errorf("adapter registry is nil")
	}
	key := normalizeKey(string(id))
	if key == "" {
		return nil, fmt.Errorf("source id is empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if a, ok := r.byID[key]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w for source %q", ErrNoAdapter, id)
}

// IDs lists the registered source ids.
func (r *Registry) IDs() []domain.SourceID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.SourceID, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, a.ID())
	}
	return out
}

func normalizeKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// DefaultHTTPClient returns the resty client adapters use when none is injected.
func DefaultHTTPClient() HTTPClient { return httpclient.NewRestyClient(httpclient.DefaultTimeout) }

// NewAdapter builds the adapter for one catalog entry.
func NewAdapter(src Source, keys APIKeys, client HTTPClient, opts ...Option) (Adapter, error) {
	key := keys.forType(src.Type)
	switch src.Type {
	case TypeNewsAPI:
		return NewNewsAPIAdapter(src, key, client, opts...), nil
	case TypeGuardian:
		return NewGuardianAdapter(src, key, client, opts...), nil
	case TypeNYT:
		return NewNYTAdapter(src, key, client, opts...), nil
	}
	return nil, fmt.Errorf("unsupported source type %q", src.Type)
}

// DefaultRegistry wires an adapter for every enabled catalog entry.
func DefaultRegistry(cat *Catalog, keys APIKeys, client HTTPClient, opts ...Option) (*Registry, error) {
	if cat == nil {
		cat = DefaultCatalog()
	}
	if client == nil {
		client = DefaultHTTPClient()
	}

	reg := NewAdapterRegistry()
	for _, src := range cat.Enabled() {
		a, err := NewAdapter(src, keys, client, opts...)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", src.ID, err)
		}
		reg.Register(a)
	}
	return reg, nil
}

