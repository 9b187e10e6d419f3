package sources

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-newsfeed/internal/domain"
	"github.com/samvad-hq/samvad-newsfeed/pkg/httpclient"
)

type mockResponse struct {
	body       []byte
	statusCode int
}

func (r mockResponse) Body() []byte    { return r.body }
func (r mockResponse) StatusCode() int { return r.statusCode }

type mockHTTPClient struct {
	mu      sync.Mutex
	status  int
	body    string
	err     error
	urls    []string
	headers []map[string]string
}

func (m *mockHTTPClient) Get(ctx context.Context, rawURL string, headers map[string]string) (httpclient.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls = append(m.urls, rawURL)
	m.headers = append(m.headers, headers)
	if m.err != nil {
		return nil, m.err
	}
	status := m.status
	if status == 0 {
		status = 200
	}
	return mockResponse{body: []byte(m.body), statusCode: status}, nil
}

func (m *mockHTTPClient) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.urls)
}

func (m *mockHTTPClient) lastQuery(t *testing.T) url.Values {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.urls) == 0 {
		t.Fatalf("no request recorded")
	}
	u, err := url.Parse(m.urls[len(m.urls)-1])
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	return u.Query()
}

func (m *mockHTTPClient) lastPath(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := url.Parse(m.urls[len(m.urls)-1])
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	return u.Path
}

func testSource(t *testing.T, id domain.SourceID) Source {
	t.Helper()
	src, ok := DefaultCatalog().ByID(id)
	if !ok {
		t.Fatalf("default catalog has no %q", id)
	}
	return src
}

type fetchRecord struct {
	source   string
	outcome  string
	articles int
}

type recordingObserver struct {
	mu      sync.Mutex
	records []fetchRecord
}

func (o *recordingObserver) ObserveFetch(source, outcome string, _ time.Duration, articles int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, fetchRecord{source: source, outcome: outcome, articles: articles})
}

func (o *recordingObserver) last(t *testing.T) fetchRecord {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.records) == 0 {
		t.Fatalf("no fetch observed")
	}
	return o.records[len(o.records)-1]
}

func assertEmptyResult(t *testing.T, res domain.FetchResult) {
	t.Helper()
	if len(res.Articles) != 0 || res.HasMore {
		t.Fatalf("expected empty result, got %d articles hasMore=%v", len(res.Articles), res.HasMore)
	}
	if res.Articles == nil {
		t.Fatalf("expected non-nil empty slice")
	}
}
