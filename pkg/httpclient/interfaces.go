package httpclient

import "context"

// Response is what vendors, the enricher and webhook sinks read back.
type Response interface {
	Body() []byte
	StatusCode() int
}

// Client fetches vendor pages and article HTML.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}

// Sender posts a JSON body. Webhook sinks use it to deliver feed pages.
type Sender interface {
	Send(ctx context.Context, method, url string, headers map[string]string, body any) (Response, error)
}
