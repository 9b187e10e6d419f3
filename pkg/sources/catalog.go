package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/samvad-newsfeed/internal/domain"
)

// Package sources contains the vendor catalog (YAML/JSON) and the news API adapters.

// Supported source types.
const (
	TypeNewsAPI  = "newsapi"
	TypeGuardian = "guardian"
	TypeNYT      = "nyt"
)

// Source describes one vendor endpoint as declared in the catalog file.
type Source struct {
	ID                string         `json:"id" yaml:"id"`
	Name              string         `json:"name" yaml:"name"`
	Type              string         `json:"type" yaml:"type"`
	BaseURL           string         `json:"base_url" yaml:"base_url"`
	Enabled           *bool          `json:"enabled" yaml:"enabled"`
	RequestsPerSecond float64        `json:"requests_per_second" yaml:"requests_per_second"`
	Config            map[string]any `json:"config" yaml:"config"`
}

// EnabledValue returns enabled flag defaulting to true.
func (s Source) EnabledValue() bool {
	if s.Enabled == nil {
		return true
	}
	return *s.Enabled
}

// SourceID returns the typed id.
func (s Source) SourceID() domain.SourceID { return domain.SourceID(s.ID) }

type catalogFile struct {
	Sources []Source `json:"sources" yaml:"sources"`
}

// Catalog is the loaded set of vendor definitions.
type Catalog struct {
	mu      sync.RWMutex
	sources []Source
	idx     map[string]Source
}

// DefaultCatalog returns the built-in definitions for the three public vendors.
func DefaultCatalog() *Catalog {
	cat, err := newCatalog([]Source{
		{ID: TypeNewsAPI, Name: "News Api", Type: TypeNewsAPI, BaseURL: "https://newsapi.org/v2"},
		{ID: TypeGuardian, Name: "The Guardian", Type: TypeGuardian, BaseURL: "https://content.guardianapis.com"},
		{ID: TypeNYT, Name: "New York Times", Type: TypeNYT, BaseURL: "https://api.nytimes.com/svc"},
	})
	if err != nil {
		panic(fmt.Sprintf("default catalog invalid: %v", err))
	}
	return cat
}

// LoadCatalog reads the catalog from path. A missing file yields the default catalog.
func LoadCatalog(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultCatalog(), nil
	}

	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultCatalog(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open sources file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	parsed, err := parseCatalog(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(parsed.Sources) == 0 {
		return nil, errors.New("sources file contains no sources entries")
	}
	return newCatalog(parsed.Sources)
}

func newCatalog(entries []Source) (*Catalog, error) {
	cat := &Catalog{
		sources: make([]Source, len(entries)),
		idx:     make(map[string]Source, len(entries)),
	}
	for i := range entries {
		src := sanitizeSource(entries[i])
		if err := validateSource(src); err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
		if _, exists := cat.idx[src.ID]; exists {
			return nil, fmt.Errorf("duplicate source id %q", src.ID)
		}
		cat.sources[i] = src
		cat.idx[src.ID] = src
	}
	return cat, nil
}

func parseCatalog(data []byte, ext string) (catalogFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		if cat, err := unmarshalCatalog(d.name, data, d.fn); err == nil {
			return cat, nil
		}
	}

	return catalogFile{}, errors.New("sources file format not recognized (expected YAML or JSON)")
}

type unmarshalFn func([]byte, any) error

func unmarshalCatalog(name string, data []byte, fn unmarshalFn) (catalogFile, error) {
	var cat catalogFile
	if err := fn(data, &cat); err != nil {
		return catalogFile{}, fmt.Errorf("decode %s sources: %w", name, err)
	}
	return cat, nil
}

func sanitizeSource(s Source) Source {
	s.ID = strings.ToLower(strings.TrimSpace(s.ID))
	s.Name = strings.TrimSpace(s.Name)
	s.Type = strings.ToLower(strings.TrimSpace(s.Type))
	s.BaseURL = strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")

	if s.Type == "" {
		s.Type = s.ID
	}
	if s.Config == nil {
		s.Config = map[string]any{}
	}
	if s.RequestsPerSecond < 0 {
		s.RequestsPerSecond = 0
	}
	return s
}

func validateSource(s Source) error {
	if s.ID == "" {
		return errors.New("id is required")
	}
	if s.Name == "" {
		return fmt.Errorf("name is required for source %q", s.ID)
	}
	switch s.Type {
	case TypeNewsAPI, TypeGuardian, TypeNYT:
	default:
		return fmt.Errorf("unsupported type %q for source %q", s.Type, s.ID)
	}
	if s.BaseURL == "" {
		return fmt.Errorf("base_url is required for source %q", s.ID)
	}
	return nil
}

// All returns every catalog entry.
func (c *Catalog) All() []Source {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Source, len(c.sources))
	copy(out, c.sources)
	return out
}

// Enabled returns entries that are enabled.
func (c *Catalog) Enabled() []Source {
	all := c.All()
	out := make([]Source, 0, len(all))
	for _, s := range all {
		if s.EnabledValue() {
			out = append(out, s)
		}
	}
	return out
}

// ByID returns the entry for id.
func (c *Catalog) ByID(id domain.SourceID) (Source, bool) {
	if c == nil {
		return Source{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.idx[strings.ToLower(strings.TrimSpace(string(id)))]
	return s, ok
}
