package sources

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/samvad-hq/samvad-newsfeed/internal/domain"
)

const newsAPICountry = "us"

type newsAPIVendor struct {
	apiKey  string
	country string
}

type newsAPIResponse struct {
	Status       string           `json:"status"`
	Code         string           `json:"code"`
	Message      string           `json:"message"`
	TotalResults *int             `json:"totalResults"`
	Articles     []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		ID   *string `json:"id"`
		Name string  `json:"name"`
	} `json:"source"`
	Author      *string `json:"author"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	URL         string  `json:"url"`
	URLToImage  *string `json:"urlToImage"`
	PublishedAt string  `json:"publishedAt"`
	Content     *string `json:"content"`
}

// NewNewsAPIAdapter builds the NewsAPI top-headlines adapter.
func NewNewsAPIAdapter(src Source, apiKey string, client HTTPClient, opts ...Option) Adapter {
	return newAdapter(src, newsAPIVendor{
		apiKey:  apiKey,
		country: ConfigString(src, ConfigCountryKey, newsAPICountry),
	}, client, opts...)
}

func (v newsAPIVendor) buildURL(base string, q domain.Query) string {
	params := url.Values{}
	params.Set("country", v.country)
	setIfNotEmpty(params, "q", q.SearchTerm)
	setIfNotEmpty(params, "category", q.Category)
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("pageSize", strconv.Itoa(q.PageSize))
	setIfNotEmpty(params, "apiKey", v.apiKey)
	if from, ok := formatDate(q.Date, dateISO); ok {
		params.Set("from", from)
	}
	return joinURL(base, "top-headlines", params)
}

func (v newsAPIVendor) decode(body []byte, q domain.Query) (page, error) {
	var resp newsAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return page{}, decodeErr(TypeNewsAPI, "invalid json", err)
	}
	if resp.Status != "ok" {
		return page{}, decodeErr(TypeNewsAPI, fmt.Sprintf("status %q code %q: %s", resp.Status, resp.Code, resp.Message), nil)
	}
	if resp.TotalResults == nil {
		return page{}, decodeErr(TypeNewsAPI, "missing totalResults", nil)
	}
	if resp.Articles == nil {
		return page{}, decodeErr(TypeNewsAPI, "missing articles", nil)
	}

	out := page{
		articles: make([]domain.Article, 0, len(resp.Articles)),
		hasMore:  q.Page*q.PageSize < *resp.TotalResults,
	}
	for _, item := range resp.Articles {
		link := strings.TrimSpace(item.URL)
		if link == "" {
			out.skipped++
			continue
		}
		out.articles = append(out.articles, domain.Article{
			ID:          newsAPIArticleID(item, link),
			Title:       strings.TrimSpace(item.Title),
			Description: plainText(deref(item.Description)),
			URL:         link,
			URLToImage:  strings.TrimSpace(deref(item.URLToImage)),
			PublishedAt: item.PublishedAt,
			Content:     deref(item.Content),
			Author:      firstNonEmpty(deref(item.Author), domain.UnknownAuthor),
		})
	}
	return out, nil
}

// newsAPIArticleID is newsapi-{source}-{publish millis}. The url hash stands in for unparseable dates.
func newsAPIArticleID(item newsAPIArticle, link string) string {
	source := firstNonEmpty(deref(item.Source.ID), item.Source.Name)
	a := domain.Article{PublishedAt: item.PublishedAt}
	if t, ok := a.PublishedTime(); ok {
		return fmt.Sprintf("newsapi-%s-%d", source, t.UnixMilli())
	}
	return fmt.Sprintf("newsapi-%s-%s", source, hashURL(link))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
