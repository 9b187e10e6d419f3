// Package preferences persists the user's feed selections (sources, category,
// followed authors) in a storage.Store.
package preferences

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/samvad-hq/samvad-newsfeed/internal/domain"
	"github.com/samvad-hq/samvad-newsfeed/internal/logger"
	"github.com/samvad-hq/samvad-newsfeed/internal/storage"
)

const (
	KeySources  = "userSources"
	KeyCategory = "userCategory"
	KeyAuthors  = "userAuthors"

	DefaultCategory = "general"
)

// Snapshot is an immutable copy of the current preferences.
type Snapshot struct {
	Sources  []domain.SourceID `json:"sources"`
	Category string            `json:"category"`
	Authors  []string          `json:"authors"`
}

// Defaults returns the preferences used when nothing valid is stored.
func Defaults() Snapshot {
	return Snapshot{
		Sources:  domain.AllSources(),
		Category: DefaultCategory,
		Authors:  []string{},
	}
}

// Store holds preferences in memory and writes every change through to the backing store.
type Store struct {
	mu      sync.RWMutex
	backend storage.Store
	log     logger.Logger
	current Snapshot
}

// Open reads preferences once from backend, falling back to defaults for missing
// or corrupt entries. Corrupt entries are removed.
func Open(backend storage.Store, log logger.Logger) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("preferences backend must not be nil")
	}
	s := &Store{
		backend: backend,
		log:     logger.Ensure(log),
		current: Defaults(),
	}

	var sources []domain.SourceID
	if s.read(KeySources, &sources) && sources != nil {
		// an explicitly empty selection is kept; a list of only unknown ids is not
		if cleaned := sanitizeSources(sources); len(cleaned) > 0 || len(sources) == 0 {
			s.current.Sources = cleaned
		}
	}
	var category string
	if s.read(KeyCategory, &category) && strings.TrimSpace(category) != "" {
		s.current.Category = strings.TrimSpace(category)
	}
	var authors []string
	if s.read(KeyAuthors, &authors) && authors != nil {
		s.current.Authors = authors
	}

	return s, nil
}

// read decodes key into dst and reports whether a usable value was found.
func (s *Store) read(key string, dst any) bool {
	raw, ok, err := s.backend.Get(key)
	if err != nil {
		s.log.WarnObj("preference read failed", "preference_error", map[string]any{
			"key":   key,
			"error": err.Error(),
		})
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.log.WarnObj("preference value corrupt; using default", "preference_error", map[string]any{
			"key":   key,
			"error": err.Error(),
		})
		if err := s.backend.Delete(key); err != nil {
			s.log.WarnObj("corrupt preference not removed", "preference_error", map[string]any{
				"key":   key,
				"error": err.Error(),
			})
		}
		return false
	}
	return true
}

func (s *Store) write(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.backend.Put(key, raw); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}

// Snapshot returns a copy of the current preferences.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Sources:  append([]domain.SourceID(nil), s.current.Sources...),
		Category: s.current.Category,
		Authors:  append([]string{}, s.current.Authors...),
	}
}

// Sources returns the enabled vendors.
func (s *Store) Sources() []domain.SourceID { return s.Snapshot().Sources }

// Category returns the selected category.
func (s *Store) Category() string { return s.Snapshot().Category }

// Authors returns the followed authors.
func (s *Store) Authors() []string { return s.Snapshot().Authors }

// SetSources replaces the enabled vendors. Unknown ids are rejected.
func (s *Store) SetSources(sources []domain.SourceID) error {
	for _, id := range sources {
		if !isKnownSource(id) {
			return fmt.Errorf("unknown source %q", id)
		}
	}
	cleaned := sanitizeSources(sources)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(KeySources, cleaned); err != nil {
		return err
	}
	s.current.Sources = cleaned
	return nil
}

// SetCategory replaces the selected category; blank resets to the default.
func (s *Store) SetCategory(category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		category = DefaultCategory
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(KeyCategory, category); err != nil {
		return err
	}
	s.current.Category = category
	return nil
}

// SetAuthors replaces the followed authors.
func (s *Store) SetAuthors(authors []string) error {
	cleaned := make([]string, 0, len(authors))
	for _, a := range authors {
		if a = strings.TrimSpace(a); a != "" {
			cleaned = append(cleaned, a)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(KeyAuthors, cleaned); err != nil {
		return err
	}
	s.current.Authors = cleaned
	return nil
}

// Reset wipes the backing store and returns to defaults. The store is
// scoped to preferences, so keys written by older versions go too.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Clear(); err != nil {
		return fmt.Errorf("clear preferences: %w", err)
	}
	s.current = Defaults()
	return nil
}

func isKnownSource(id domain.SourceID) bool {
	for _, known := range domain.AllSources() {
		if id == known {
			return true
		}
	}
	return false
}

func sanitizeSources(in []domain.SourceID) []domain.SourceID {
	seen := make(map[domain.SourceID]bool, len(in))
	out := make([]domain.SourceID, 0, len(in))
	for _, id := range in {
		id = domain.SourceID(strings.ToLower(strings.TrimSpace(string(id))))
		if !isKnownSource(id) || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
