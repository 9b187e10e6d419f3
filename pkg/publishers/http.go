package publishers

import (
	"context"
	"fmt"
	"strings"

	"github.com/samvad-hq/samvad-newsfeed/pkg/httpclient"
)

const headerPrefix = "X-Newsfeed-"

// webhookSender posts pages as JSON. Page attributes travel as
// X-Newsfeed-* headers so receivers can route without parsing the body.
type webhookSender struct {
	url     string
	method  string
	headers map[string]string
	client  httpclient.Sender
}

func newWebhookSender(cfg *HTTPConfig, client httpclient.Sender) *webhookSender {
	return &webhookSender{url: cfg.URL, method: cfg.Method, headers: cfg.Headers, client: client}
}

func (w *webhookSender) Send(ctx context.Context, m message) error {
	headers := make(map[string]string, len(w.headers)+len(m.attrs)+1)
	for k, v := range w.headers {
		headers[k] = v
	}
	for _, a := range m.attrs {
		headers[attributeHeader(a.Name)] = a.Value
	}
	headers["Idempotency-Key"] = m.dedupe

	resp, err := w.client.Send(ctx, w.method, w.url, headers, m.body)
	if err != nil {
		return fmt.Errorf("post page: %w", err)
	}
	if err := httpclient.CheckStatus(resp); err != nil {
		return fmt.Errorf("webhook %s: %w", w.url, err)
	}
	return nil
}

// attributeHeader turns "article_count" into "X-Newsfeed-Article-Count".
func attributeHeader(name string) string {
	parts := strings.Split(name, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return headerPrefix + strings.Join(parts, "-")
}
