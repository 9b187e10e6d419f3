package publishers

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-newsfeed/internal/domain"
)

// ErrInvalidEvent marks a page that must not be sent downstream.
var ErrInvalidEvent = errors.New("invalid page event")

// Event is one merged feed page as published downstream.
type Event struct {
	Page        int               `json:"page"`
	Sources     []domain.SourceID `json:"sources"`
	Filters     domain.Filters    `json:"filters"`
	HasMore     bool              `json:"has_more"`
	Articles    []domain.Article  `json:"articles"`
	CollectedAt time.Time         `json:"collected_at"`
}

// NewPageEvent builds an Event for a page of articles.
func NewPageEvent(page int, sources []domain.SourceID, filters domain.Filters, hasMore bool, articles []domain.Article) Event {
	if articles == nil {
		articles = []domain.Article{}
	}
	return Event{
		Page:        page,
		Sources:     sources,
		Filters:     filters,
		HasMore:     hasMore,
		Articles:    articles,
		CollectedAt: time.Now().UTC(),
	}
}

// Validate rejects pages a consumer could not route or dedupe: a page number
// below one, no sources, no articles, or an article without id or url.
func (e Event) Validate() error {
	switch {
	case e.Page < 1:
		return fmt.Errorf("%w: page %d", ErrInvalidEvent, e.Page)
	case len(e.Sources) == 0:
		return fmt.Errorf("%w: page %d names no sources", ErrInvalidEvent, e.Page)
	case len(e.Articles) == 0:
		return fmt.Errorf("%w: page %d has no articles", ErrInvalidEvent, e.Page)
	}
	for i, art := range e.Articles {
		if art.ID == "" || art.URL == "" {
			return fmt.Errorf("%w: page %d article %d lacks id or url", ErrInvalidEvent, e.Page, i)
		}
	}
	return nil
}

// SourceList joins the event's source ids.
func (e Event) SourceList() string {
	ids := make([]string, 0, len(e.Sources))
	for _, id := range e.Sources {
		ids = append(ids, string(id))
	}
	return strings.Join(ids, ",")
}

// Attribute is a routing field derived from the page. Sinks map it onto
// message attributes or headers.
type Attribute struct {
	Name    string
	Value   string
	Numeric bool
}

// Attributes lists page, sources, has_more and article_count, then category
// and search when the page was filtered by them.
func (e Event) Attributes() []Attribute {
	attrs := []Attribute{
		{Name: "page", Value: strconv.Itoa(e.Page), Numeric: true},
		{Name: "sources", Value: e.SourceList()},
		{Name: "has_more", Value: strconv.FormatBool(e.HasMore)},
		{Name: "article_count", Value: strconv.Itoa(len(e.Articles)), Numeric: true},
	}
	if e.Filters.Category != "" {
		attrs = append(attrs, Attribute{Name: "category", Value: e.Filters.Category})
	}
	if e.Filters.SearchTerm != "" {
		attrs = append(attrs, Attribute{Name: "search", Value: e.Filters.SearchTerm})
	}
	return attrs
}

// ForSources narrows the page to articles from ids. Sources also shrinks to
// the ids the page actually queried. Empty ids returns e unchanged.
func (e Event) ForSources(ids []domain.SourceID) Event {
	if len(ids) == 0 {
		return e
	}
	out := e
	out.Sources = make([]domain.SourceID, 0, len(ids))
	for _, id := range e.Sources {
		if slices.Contains(ids, id) {
			out.Sources = append(out.Sources, id)
		}
	}
	out.Articles = make([]domain.Article, 0, len(e.Articles))
	for _, art := range e.Articles {
		if slices.Contains(ids, art.SourceID()) {
			out.Articles = append(out.Articles, art)
		}
	}
	return out
}
