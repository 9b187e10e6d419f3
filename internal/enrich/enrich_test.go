package enrich

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/samvad-hq/samvad-newsfeed/internal/domain"
	"github.com/samvad-hq/samvad-newsfeed/pkg/httpclient"
)

type stubHTTPResponse struct {
	body       []byte
	statusCode int
}

func (s stubHTTPResponse) Body() []byte    { return s.body }
func (s stubHTTPResponse) StatusCode() int { return s.statusCode }

// stubHTTPClient serves pages by URL and records requests.
type stubHTTPClient struct {
	mu    sync.Mutex
	pages map[string]stubHTTPResponse
	urls  []string
}

func (s *stubHTTPClient) Get(_ context.Context, u string, _ map[string]string) (httpclient.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urls = append(s.urls, u)
	resp, ok := s.pages[u]
	if !ok {
		return nil, errors.New("no route")
	}
	return resp, nil
}

const ogPage = `
<html>
  <head>
    <title>Fallback</title>
    <meta property="og:description" content="OG Desc">
    <meta property="og:image" content="/img/og.png">
  </head>
</html>`

func TestParseMetaPrefersOGTags(t *testing.T) {
	meta, err := parseMeta([]byte(ogPage))
	if err != nil {
		t.Fatalf("parseMeta: %v", err)
	}
	if meta.Description != "OG Desc" || meta.ImageURL != "/img/og.png" {
		t.Fatalf("unexpected meta %#v", meta)
	}
}

func TestResolveURLHandlesRelative(t *testing.T) {
	if got := resolveURL("/img.png", "https://example.com/articles/1"); got != "https://example.com/img.png" {
		t.Fatalf("resolveURL got %q", got)
	}
	if got := resolveURL("", "https://example.com"); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestEnrichFillsOnlyMissingFields(t *testing.T) {
	client := &stubHTTPClient{pages: map[string]stubHTTPResponse{
		"https://example.com/a": {body: []byte(ogPage), statusCode: 200},
		"https://example.com/c": {body: []byte("gone"), statusCode: 404},
	}}
	in := []domain.Article{
		{ID: "a", URL: "https://example.com/a"},
		{ID: "b", URL: "https://example.com/b", URLToImage: "https://cdn/b.jpg", Description: "kept"},
		{ID: "c", URL: "https://example.com/c"},
	}

	got := NewOGEnricher(client, 2, nil).Enrich(context.Background(), in)

	want := []domain.Article{
		{ID: "a", URL: "https://example.com/a", URLToImage: "https://example.com/img/og.png", Description: "OG Desc"},
		{ID: "b", URL: "https://example.com/b", URLToImage: "https://cdn/b.jpg", Description: "kept"},
		{ID: "c", URL: "https://example.com/c"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("enriched articles mismatch (-want +got):\n%s", diff)
	}
	client.mu.Lock()
	defer client.mu.Unlock()
	for _, u := range client.urls {
		if u == "https://example.com/b" {
			t.Fatalf("complete article should not be fetched")
		}
	}
	if in[0].URLToImage != "" {
		t.Fatalf("input slice must not be mutated")
	}
}
