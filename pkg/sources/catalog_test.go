package sources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samvad-hq/samvad-newsfeed/internal/domain"
)

func TestLoadCatalogYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sources.yaml")
	content := `
sources:
  - id: NYT
    name: New York Times
    type: nyt
    base_url: https://api.nytimes.com/svc/
    requests_per_second: 5
    config:
      user_agent: test-agent
  - id: guardian
    name: The Guardian
    type: guardian
    base_url: https://content.guardianapis.com
    enabled: false
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write sources file: %v", err)
	}

	cat, err := LoadCatalog(file)
	if err != nil {
		t.Fatalf("LoadCatalog returned error: %v", err)
	}
	if len(cat.All()) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(cat.All()))
	}
	enabled := cat.Enabled()
	if len(enabled) != 1 || enabled[0].ID != "nyt" {
		t.Fatalf("unexpected enabled sources %+v", enabled)
	}

	src, ok := cat.ByID(domain.SourceNYT)
	if !ok {
		t.Fatalf("expected nyt to be loaded")
	}
	if src.BaseURL != "https://api.nytimes.com/svc" {
		t.Fatalf("expected trailing slash trimmed, got %q", src.BaseURL)
	}
	if src.RequestsPerSecond != 5 {
		t.Fatalf("unexpected requests_per_second %v", src.RequestsPerSecond)
	}
	if got := Headers(src)["User-Agent"]; got != "test-agent" {
		t.Fatalf("unexpected user agent %q", got)
	}
}

func TestLoadCatalogJSON(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sources.json")
	content := `{"sources":[{"id":"newsapi","name":"News Api","type":"newsapi","base_url":"https://newsapi.org/v2"}]}`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write sources file: %v", err)
	}

	cat, err := LoadCatalog(file)
	if err != nil {
		t.Fatalf("LoadCatalog returned error: %v", err)
	}
	if _, ok := cat.ByID(domain.SourceNewsAPI); !ok {
		t.Fatalf("expected newsapi entry")
	}
}

func TestLoadCatalogMissingFileUsesDefaults(t *testing.T) {
	cat, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadCatalog returned error: %v", err)
	}
	for _, id := range domain.AllSources() {
		if _, ok := cat.ByID(id); !ok {
			t.Fatalf("default catalog missing %q", id)
		}
	}
}

func TestLoadCatalogRejectsInvalidEntries(t *testing.T) {
	cases := map[string]string{
		"duplicate": `
sources:
  - id: nyt
    name: A
    type: nyt
    base_url: https://a.example
  - id: nyt
    name: B
    type: nyt
    base_url: https://b.example
`,
		"unknown type": `
sources:
  - id: bbc
    name: BBC
    type: rss
    base_url: https://bbc.example
`,
		"missing base url": `
sources:
  - id: nyt
    name: NYT
    type: nyt
`,
		"empty": `sources: []`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			file := filepath.Join(t.TempDir(), "sources.yaml")
			if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
				t.Fatalf("write sources file: %v", err)
			}
			if _, err := LoadCatalog(file); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestFormatDate(t *testing.T) {
	cases := []struct {
		in, layout, want string
		ok               bool
	}{
		{"2024-03-05", dateISO, "2024-03-05", true},
		{"2024-03-05", dateCompact, "20240305", true},
		{"2024-03-05T23:10:00Z", dateCompact, "20240305", true},
		{"05/03/2024", dateISO, "", false},
		{"", dateISO, "", false},
	}
	for _, tc := range cases {
		got, ok := formatDate(tc.in, tc.layout)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("formatDate(%q, %q) = %q, %v", tc.in, tc.layout, got, ok)
		}
	}
}
