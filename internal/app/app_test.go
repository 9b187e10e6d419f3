package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-newsfeed/internal/config"
	"github.com/samvad-hq/samvad-newsfeed/internal/domain"
	"github.com/samvad-hq/samvad-newsfeed/internal/feed"
	"github.com/samvad-hq/samvad-newsfeed/pkg/publishers"
)

// newsAPIServer serves total results in pages of pageSize from /top-headlines.
func newsAPIServer(t *testing.T, total int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/top-headlines" {
			http.NotFound(w, r)
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
		items := make([]string, 0, size)
		for i := (page - 1) * size; i < page*size && i < total; i++ {
			items = append(items, fmt.Sprintf(`{
				"source": {"id": "wire", "name": "Wire"},
				"title": "Story %d",
				"url": "https://example.com/story/%d",
				"publishedAt": "2024-03-01T%02d:%02d:00Z"
			}`, i, i, i/60, i%60))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","totalResults":%d,"articles":[%s]}`, total, strings.Join(items, ","))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	catalog := writeFile(t, "sources.yaml", fmt.Sprintf(`sources:
  - id: newsapi
    name: News Api
    type: newsapi
    base_url: %s
`, baseURL))
	return &config.Config{
		AppName:         "samvad-newsfeed",
		SourcesFile:     catalog,
		NewsAPIKey:      "test-key",
		PageSize:        10,
		HTTPTimeout:     2 * time.Second,
		StorageType:     "memory",
		SortByPublished: true,
	}
}

func newTestApp(t *testing.T, cfg *config.Config, opts Options) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, nil, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func collect(t *testing.T, a *App, sel Selection, pages int) ([]domain.Article, Summary) {
	t.Helper()
	var got []domain.Article
	summary, err := a.Run(context.Background(), sel, pages, func(art domain.Article) error {
		got = append(got, art)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return got, summary
}

func newsAPISelection() Selection {
	return Selection{Sources: []domain.SourceID{domain.SourceNewsAPI}}
}

func TestRunEmitsEveryArticleOnce(t *testing.T) {
	srv := newsAPIServer(t, 25)
	a := newTestApp(t, testConfig(t, srv.URL), Options{})

	got, summary := collect(t, a, newsAPISelection(), 10)

	if summary.Pages != 3 || summary.Articles != 25 || summary.HasMore {
		t.Fatalf("unexpected summary %+v", summary)
	}
	ids := make(map[string]bool, len(got))
	for _, art := range got {
		if ids[art.ID] {
			t.Fatalf("article %s emitted twice", art.ID)
		}
		ids[art.ID] = true
	}
	if len(ids) != 25 {
		t.Fatalf("expected 25 distinct articles, got %d", len(ids))
	}
}

func TestRunStopsAtPageLimit(t *testing.T) {
	srv := newsAPIServer(t, 25)
	a := newTestApp(t, testConfig(t, srv.URL), Options{})

	got, summary := collect(t, a, newsAPISelection(), 2)

	if len(got) != 20 || summary.Pages != 2 || !summary.HasMore {
		t.Fatalf("expected 2 pages with more remaining, got %d articles %+v", len(got), summary)
	}
}

func TestRunEmptyFeed(t *testing.T) {
	srv := newsAPIServer(t, 0)
	a := newTestApp(t, testConfig(t, srv.URL), Options{})

	got, summary := collect(t, a, newsAPISelection(), 3)

	if len(got) != 0 || !summary.Empty() || summary.HasMore || summary.Pages != 1 {
		t.Fatalf("expected an empty single page, got %d articles %+v", len(got), summary)
	}
}

func TestRunSourceOutageDegradesToEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()
	a := newTestApp(t, testConfig(t, srv.URL), Options{})

	_, summary := collect(t, a, newsAPISelection(), 2)

	if !summary.Empty() || summary.HasMore {
		t.Fatalf("outage should settle empty without more, got %+v", summary)
	}
}

func TestRunUnknownSourceFails(t *testing.T) {
	srv := newsAPIServer(t, 5)
	a := newTestApp(t, testConfig(t, srv.URL), Options{})

	sel := Selection{Sources: []domain.SourceID{domain.SourceNewsAPI, domain.SourceNYT}}
	_, err := a.Run(context.Background(), sel, 1, func(domain.Article) error { return nil })
	if !errors.Is(err, feed.ErrUnknownSource) {
		t.Fatalf("expected ErrUnknownSource, got %v", err)
	}
}

func TestRunStopsOnEmitError(t *testing.T) {
	srv := newsAPIServer(t, 5)
	a := newTestApp(t, testConfig(t, srv.URL), Options{})

	boom := errors.New("stdout closed")
	_, err := a.Run(context.Background(), newsAPISelection(), 1, func(domain.Article) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected emit error, got %v", err)
	}
}

func TestDefaultSelectionFollowsPreferences(t *testing.T) {
	srv := newsAPIServer(t, 0)
	cfg := testConfig(t, srv.URL)
	cfg.SourcesFile = writeFile(t, "sources.yaml", fmt.Sprintf(`sources:
  - id: newsapi
    name: News Api
    type: newsapi
    base_url: %s
  - id: guardian
    name: The Guardian
    type: guardian
    base_url: %s
`, srv.URL, srv.URL))
	a := newTestApp(t, cfg, Options{})

	if err := a.Preferences().SetCategory("sports"); err != nil {
		t.Fatalf("SetCategory: %v", err)
	}
	if err := a.Preferences().SetSources([]domain.SourceID{domain.SourceGuardian}); err != nil {
		t.Fatalf("SetSources: %v", err)
	}

	sel := a.DefaultSelection()
	if sel.Filters.Category != "sports" {
		t.Fatalf("category = %q", sel.Filters.Category)
	}
	if len(sel.Sources) != 1 || sel.Sources[0] != domain.SourceGuardian {
		t.Fatalf("sources = %v", sel.Sources)
	}
}

func TestDefaultSelectionSkipsDisabledSources(t *testing.T) {
	srv := newsAPIServer(t, 4)
	cfg := testConfig(t, srv.URL)
	cfg.SourcesFile = writeFile(t, "sources.yaml", fmt.Sprintf(`sources:
  - id: newsapi
    name: News Api
    type: newsapi
    base_url: %s
  - id: nyt
    name: New York Times
    type: nyt
    base_url: %s
    enabled: false
`, srv.URL, srv.URL))
	a := newTestApp(t, cfg, Options{})

	sel := a.DefaultSelection()
	if len(sel.Sources) != 1 || sel.Sources[0] != domain.SourceNewsAPI {
		t.Fatalf("sources = %v", sel.Sources)
	}

	got, summary := collect(t, a, sel, 1)
	if len(got) != 4 || summary.Articles != 4 {
		t.Fatalf("expected 4 articles from newsapi, got %d %+v", len(got), summary)
	}
}

func TestRunPublishesEachPage(t *testing.T) {
	var (
		mu     sync.Mutex
		events []publishers.Event
	)
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var evt publishers.Event
		if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
			t.Errorf("decode event: %v", err)
		}
		mu.Lock()
		events = append(events, evt)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer sink.Close()

	srv := newsAPIServer(t, 15)
	cfg := testConfig(t, srv.URL)
	cfg.PublishersFile = writeFile(t, "publishers.yaml", fmt.Sprintf(`publishers:
  - id: hook
    type: http
    http:
      url: %s
`, sink.URL))
	a := newTestApp(t, cfg, Options{Publish: true})

	_, summary := collect(t, a, newsAPISelection(), 5)

	if summary.Published != 2 || summary.PublishErrors != 0 {
		t.Fatalf("unexpected publish counts %+v", summary)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Page != 1 || len(events[0].Articles) != 10 || !events[0].HasMore {
		t.Fatalf("unexpected first event %+v", events[0])
	}
	if events[1].Page != 2 || len(events[1].Articles) != 5 || events[1].HasMore {
		t.Fatalf("unexpected second event %+v", events[1])
	}
}

func TestNewRequiresPublishersFileWhenPublishing(t *testing.T) {
	srv := newsAPIServer(t, 0)
	cfg := testConfig(t, srv.URL)

	if _, err := New(context.Background(), cfg, nil, Options{Publish: true}); err == nil {
		t.Fatalf("expected error without publishers_file")
	}
}

func TestNewRejectsNilConfig(t *testing.T) {
	if _, err := New(context.Background(), nil, nil, Options{}); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestUnseenCountsDuplicates(t *testing.T) {
	emitted := map[string]int{}
	first := unseen([]domain.Article{{ID: "a"}, {ID: "a"}, {ID: "b"}}, emitted)
	if len(first) != 3 {
		t.Fatalf("first pass = %d", len(first))
	}
	second := unseen([]domain.Article{{ID: "c"}, {ID: "a"}, {ID: "b"}, {ID: "a"}}, emitted)
	if len(second) != 1 || second[0].ID != "c" {
		t.Fatalf("second pass = %+v", second)
	}
}
