package sources

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/samvad-hq/samvad-newsfeed/internal/domain"
	"github.com/samvad-hq/samvad-newsfeed/pkg/httpclient"
)

const (
	nytImageHost  = "https://www.nytimes.com/"
	nytSort       = "oldest"
	nytFields     = "web_url,snippet,abstract,pub_date,byline,headline,multimedia,uri"
	nytNoTitle    = "No Title"
	nytNoSummary  = "No Description"
	nytBylineLead = "By "
)

type nytVendor struct {
	apiKey string
	sort   string
}

type nytResponse struct {
	Status   string `json:"status"`
	Fault    *struct {
		FaultString string `json:"faultstring"`
	} `json:"fault"`
	Response *struct {
		Docs []nytDoc `json:"docs"`
	} `json:"response"`
}

type nytDoc struct {
	URI      string `json:"uri"`
	Snippet  string `json:"snippet"`
	Abstract string `json:"abstract"`
	WebURL   string `json:"web_url"`
	PubDate  string `json:"pub_date"`
	Byline   *struct {
		Original string `json:"original"`
	} `json:"byline"`
	Headline *struct {
		Main string `json:"main"`
	} `json:"headline"`
	Multimedia json.RawMessage `json:"multimedia"`
}

// NewNYTAdapter builds the New York Times article search adapter.
func NewNYTAdapter(src Source, apiKey string, client HTTPClient, opts ...Option) Adapter {
	return newAdapter(src, nytVendor{
		apiKey: apiKey,
		sort:   ConfigString(src, ConfigSortKey, nytSort),
	}, client, opts...)
}

// buildURL converts the one-based page cursor to the zero-based page NYT expects.
func (v nytVendor) buildURL(base string, q domain.Query) string {
	params := url.Values{}
	setIfNotEmpty(params, "q", q.SearchTerm)
	if q.Category != "" {
		params.Set("fq", fmt.Sprintf("news_desk:(%q)", q.Category))
	}
	params.Set("page", strconv.Itoa(q.Page-1))
	params.Set("sort", v.sort)
	params.Set("fl", nytFields)
	setIfNotEmpty(params, "api-key", v.apiKey)
	if begin, ok := formatDate(q.Date, dateCompact); ok {
		params.Set("begin_date", begin)
	}
	return joinURL(base, "search/v2/articlesearch.json", params)
}

func (v nytVendor) decode(body []byte, q domain.Query) (page, error) {
	var resp nytResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return page{}, decodeErr(TypeNYT, "invalid json", err)
	}
	if resp.Fault != nil {
		return page{}, decodeErr(TypeNYT, "fault: "+resp.Fault.FaultString, nil)
	}
	if resp.Status != "" && !strings.EqualFold(resp.Status, "OK") {
		return page{}, decodeErr(TypeNYT, fmt.Sprintf("status %q", resp.Status), nil)
	}
	if resp.Response == nil {
		return page{}, decodeErr(TypeNYT, "missing response envelope", nil)
	}

	docs := resp.Response.Docs
	out := page{
		articles: make([]domain.Article, 0, len(docs)),
		hasMore:  len(docs) == q.PageSize,
	}
	for _, doc := range docs {
		link := strings.TrimSpace(doc.WebURL)
		if link == "" {
			out.skipped++
			continue
		}

		// multimedia is optional; a shape we cannot read means no image
		image, err := nytImage(doc.Multimedia)
		if err != nil {
			image = ""
		}
		var title, author string
		if doc.Headline != nil {
			title = doc.Headline.Main
		}
		if doc.Byline != nil {
			author = strings.Replace(doc.Byline.Original, nytBylineLead, "", 1)
		}

		out.articles = append(out.articles, domain.Article{
			ID:          nytArticleID(doc.URI, link),
			Title:       firstNonEmpty(title, nytNoTitle),
			Description: firstNonEmpty(doc.Abstract, doc.Snippet, nytNoSummary),
			URL:         link,
			URLToImage:  image,
			PublishedAt: doc.PubDate,
			Content:     strings.TrimSpace(doc.Snippet),
			Author:      firstNonEmpty(author, domain.UnknownAuthor),
		})
	}
	return out, nil
}

// nytArticleID is nyt-{last uri segment}, e.g. nyt://article/abc → nyt-abc.
func nytArticleID(uri, link string) string {
	uri = strings.TrimRight(strings.TrimSpace(uri), "/")
	if idx := strings.LastIndex(uri, "/"); idx >= 0 {
		uri = uri[idx+1:]
	}
	if uri == "" {
		return "nyt-" + hashURL(link)
	}
	return "nyt-" + uri
}

type nytMedia struct {
	URL string `json:"url"`
}

// nytImage accepts the legacy array form and the newer {"default":{"url":...}} object.
func nytImage(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	var mediaURL string
	switch raw[0] {
	case '[':
		var items []nytMedia
		if err := json.Unmarshal(raw, &items); err != nil {
			return "", err
		}
		if len(items) > 0 {
			mediaURL = items[0].URL
		}
	case '{':
		var obj struct {
			Default *nytMedia `json:"default"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", err
		}
		if obj.Default != nil {
			mediaURL = obj.Default.URL
		}
	default:
		return "", fmt.Errorf("unexpected multimedia value %s", httpclient.Snippet(raw))
	}

	mediaURL = strings.TrimSpace(mediaURL)
	switch {
	case mediaURL == "":
		return "", nil
	case strings.HasPrefix(mediaURL, "http://"), strings.HasPrefix(mediaURL, "https://"):
		return mediaURL, nil
	default:
		return nytImageHost + strings.TrimLeft(mediaURL, "/"), nil
	}
}
