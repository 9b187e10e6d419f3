package domain

import (
	"strings"
	"time"
)

// Domain contains core models shared by adapters, the feed and the CLI.

// SourceID identifies a news vendor ("newsapi", "guardian", "nyt").
type SourceID string

const (
	SourceNewsAPI  SourceID = "newsapi"
	SourceGuardian SourceID = "guardian"
	SourceNYT      SourceID = "nyt"

	// UnknownAuthor is used when a vendor omits the byline.
	UnknownAuthor = "Unknown"
)

// AllSources lists every supported vendor in display order.
func AllSources() []SourceID {
	return []SourceID{SourceNewsAPI, SourceGuardian, SourceNYT}
}

// ParseSourceIDs normalizes a comma separated or repeated list of ids, dropping blanks and duplicates.
func ParseSourceIDs(values ...string) []SourceID {
	seen := make(map[SourceID]bool)
	out := make([]SourceID, 0, len(values))
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			id := SourceID(strings.ToLower(strings.TrimSpace(part)))
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Article is the vendor independent news record.
type Article struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage,omitempty"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content,omitempty"`
	Author      string `json:"author"`
}

// PublishedTime parses PublishedAt; ok is false for empty or malformed timestamps.
func (a Article) PublishedTime() (time.Time, bool) {
	s := strings.TrimSpace(a.PublishedAt)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05-0700", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SourceID returns the vendor prefix of the article id ("nyt" for "nyt-abc").
func (a Article) SourceID() SourceID {
	prefix, _, ok := strings.Cut(a.ID, "-")
	if !ok {
		return ""
	}
	return SourceID(prefix)
}

// FetchResult is what every adapter returns for one page.
type FetchResult struct {
	Articles []Article
	HasMore  bool
	NextPage int
}

// EmptyResult is the degraded result adapters return on failure.
func EmptyResult() FetchResult {
	return FetchResult{Articles: []Article{}, HasMore: false}
}

// Filters narrows a feed.
type Filters struct {
	Category   string `json:"category"`
	SearchTerm string `json:"searchTerm"`
	Date       string `json:"date"`
}

// Query is the per-page request handed to each adapter.
type Query struct {
	Page       int
	PageSize   int
	Category   string
	SearchTerm string
	Date       string
}

// NewQuery builds a query for page from the given filters.
func NewQuery(page, pageSize int, f Filters) Query {
	return Query{
		Page:       page,
		PageSize:   pageSize,
		Category:   strings.TrimSpace(f.Category),
		SearchTerm: strings.TrimSpace(f.SearchTerm),
		Date:       strings.TrimSpace(f.Date),
	}
}
