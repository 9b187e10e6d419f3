package sources

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/samvad-hq/samvad-newsfeed/internal/domain"
)

const guardianSection = "news"

type guardianVendor struct {
	apiKey  string
	section string
}

type guardianResponse struct {
	Response *struct {
		Status  string            `json:"status"`
		Message string            `json:"message"`
		Pages   *int              `json:"pages"`
		Results []guardianArticle `json:"results"`
	} `json:"response"`
}

type guardianArticle struct {
	ID                 string `json:"id"`
	WebTitle           string `json:"webTitle"`
	WebURL             string `json:"webUrl"`
	WebPublicationDate string `json:"webPublicationDate"`
	Fields             *struct {
		BodyText  string `json:"bodyText"`
		TrailText string `json:"trailText"`
		Thumbnail string `json:"thumbnail"`
		Byline    string `json:"byline"`
	} `json:"fields"`
}

// NewGuardianAdapter builds The Guardian content search adapter.
func NewGuardianAdapter(src Source, apiKey string, client HTTPClient, opts ...Option) Adapter {
	return newAdapter(src, guardianVendor{
		apiKey:  apiKey,
		section: ConfigString(src, ConfigSectionKey, guardianSection),
	}, client, opts...)
}

// buildURL sends the category as a Guardian tag id.
func (v guardianVendor) buildURL(base string, q domain.Query) string {
	params := url.Values{}
	params.Set("section", v.section)
	setIfNotEmpty(params, "q", q.SearchTerm)
	setIfNotEmpty(params, "tag", q.Category)
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("page-size", strconv.Itoa(q.PageSize))
	params.Set("show-elements", "image")
	params.Set("show-fields", "all")
	setIfNotEmpty(params, "api-key", v.apiKey)
	if from, ok := formatDate(q.Date, dateISO); ok {
		params.Set("from-date", from)
	}
	return joinURL(base, "search", params)
}

func (v guardianVendor) decode(body []byte, q domain.Query) (page, error) {
	var resp guardianResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return page{}, decodeErr(TypeGuardian, "invalid json", err)
	}
	r := resp.Response
	if r == nil {
		return page{}, decodeErr(TypeGuardian, "missing response envelope", nil)
	}
	if r.Status != "ok" {
		return page{}, decodeErr(TypeGuardian, fmt.Sprintf("status %q: %s", r.Status, r.Message), nil)
	}
	if r.Pages == nil {
		return page{}, decodeErr(TypeGuardian, "missing pages", nil)
	}

	out := page{
		articles: make([]domain.Article, 0, len(r.Results)),
		hasMore:  q.Page < *r.Pages,
	}
	for _, item := range r.Results {
		id := strings.TrimSpace(item.ID)
		link := strings.TrimSpace(item.WebURL)
		if id == "" || link == "" {
			out.skipped++
			continue
		}

		var body, image, byline string
		if f := item.Fields; f != nil {
			body = firstNonEmpty(f.BodyText, plainText(f.TrailText))
			image = strings.TrimSpace(f.Thumbnail)
			byline = f.Byline
		}
		out.articles = append(out.articles, domain.Article{
			ID:          "guardian-" + id,
			Title:       strings.TrimSpace(item.WebTitle),
			Description: body,
			URL:         link,
			URLToImage:  image,
			PublishedAt: item.WebPublicationDate,
			Content:     body,
			Author:      firstNonEmpty(byline, domain.UnknownAuthor),
		})
	}
	return out, nil
}
