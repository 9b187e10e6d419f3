// Package enrich backfills missing article images and summaries from the
// article page's Open Graph tags.
package enrich

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/samvad-hq/samvad-newsfeed/internal/domain"
	"github.com/samvad-hq/samvad-newsfeed/internal/logger"
	"github.com/samvad-hq/samvad-newsfeed/pkg/httpclient"
)

const (
	maxHTMLBodyBytes = 1 << 20 // 1 MiB
	defaultWorkers   = 4
	userAgent        = "samvad-newsfeed/1.0"
)

// OGEnricher fetches article pages and merges OG metadata into articles that lack it.
type OGEnricher struct {
	client  httpclient.Client
	log     logger.Logger
	workers int
}

// NewOGEnricher builds an enricher; workers <= 0 uses a small default pool.
func NewOGEnricher(client httpclient.Client, workers int, log logger.Logger) *OGEnricher {
	if client == nil {
		client = httpclient.NewRestyClient(httpclient.DefaultTimeout)
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &OGEnricher{client: client, log: logger.Ensure(log), workers: workers}
}

// Enrich fills URLToImage and Description where the vendor left them empty.
// Articles keep their order; failed lookups leave the article untouched.
func (e *OGEnricher) Enrich(ctx context.Context, articles []domain.Article) []domain.Article {
	out := append([]domain.Article(nil), articles...)

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, art := range articles {
		if !needsEnrichment(art) {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			enriched, err := e.fetchAndParse(ctx, art)
			if err != nil {
				e.log.WarnObj("article metadata scrape failed", "metadata_error", map[string]any{
					"article_id": art.ID,
					"url":        art.URL,
					"error":      err.Error(),
				})
				return nil
			}
			out[i] = enriched
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func needsEnrichment(art domain.Article) bool {
	return art.URL != "" && (art.URLToImage == "" || strings.TrimSpace(art.Description) == "")
}

func (e *OGEnricher) fetchAndParse(ctx context.Context, art domain.Article) (domain.Article, error) {
	resp, err := e.client.Get(ctx, art.URL, map[string]string{
		"User-Agent": userAgent,
		"Accept":     "text/html,application/xhtml+xml",
	})
	if err != nil {
		return art, fmt.Errorf("http fetch: %w", err)
	}

	if err := httpclient.CheckStatus(resp); err != nil {
		return art, err
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	meta, err := parseMeta(body)
	if err != nil {
		return art, err
	}
	updated := art
	if updated.URLToImage == "" {
		updated.URLToImage = resolveURL(meta.ImageURL, art.URL)
	}
	if strings.TrimSpace(updated.Description) == "" && meta.Description != "" {
		updated.Description = meta.Description
	}
	return updated, nil
}

type pageMeta struct {
	Description string
	ImageURL    string
}

func parseMeta(body []byte) (pageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pageMeta{}, fmt.Errorf("parse html: %w", err)
	}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	return pageMeta{
		Description: firstNonEmpty(
			extract(`meta[property="og:description"]`),
			extract(`meta[name="description"]`),
		),
		ImageURL: firstNonEmpty(
			extract(`meta[property="og:image"]`),
			extract(`meta[name="twitter:image"]`),
		),
	}, nil
}

// resolveURL makes ref absolute against the page it was found on.
func resolveURL(ref, page string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	base, err := url.Parse(page)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(r).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
