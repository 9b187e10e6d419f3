package sources

import (
	"context"
	"crypto/sha1" //nolint:gosec // non-cryptographic id generation
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/samvad-hq/samvad-newsfeed/pkg/httpclient"
)

func hashURL(u string) string {
	sum := sha1.Sum([]byte(u))
	return hex.EncodeToString(sum[:])
}

// getJSON issues one GET and returns the body of a 2xx response.
func getJSON(ctx context.Context, client HTTPClient, rawURL, sourceID string, headers map[string]string) ([]byte, error) {
	resp, err := client.Get(ctx, rawURL, headers)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", sourceID, err)
	}

	if err := httpclient.CheckStatus(resp); err != nil {
		return nil, fmt.Errorf("%s returned %w", sourceID, err)
	}
	return resp.Body(), nil
}

// plainText strips markup from an HTML fragment and collapses whitespace.
func plainText(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" || !strings.ContainsAny(fragment, "<&") {
		return fragment
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// Vendor date layouts.
const (
	dateISO      = "2006-01-02"
	dateCompact  = "20060102"
	maxDateInput = len(time.RFC3339Nano)
)

// formatDate converts a YYYY-MM-DD or RFC3339 date into layout. ok is false for unparseable input.
func formatDate(date, layout string) (string, bool) {
	date = strings.TrimSpace(date)
	if date == "" || len(date) > maxDateInput {
		return "", false
	}
	for _, in := range []string{dateISO, time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(in, date); err == nil {
			return t.Format(layout), true
		}
	}
	return "", false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func setIfNotEmpty(params url.Values, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		params.Set(key, value)
	}
}

func joinURL(base, path string, params url.Values) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/") + "?" + params.Encode()
}
