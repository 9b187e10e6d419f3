package httpclient

import (
	"fmt"
	"strings"
)

const maxSnippet = 512

// StatusError reports a non-2xx reply.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d body: %s", e.Code, e.Body)
}

// CheckStatus returns a *StatusError unless resp is 2xx.
func CheckStatus(resp Response) error {
	code := resp.StatusCode()
	if code >= 200 && code <= 299 {
		return nil
	}
	return &StatusError{Code: code, Body: Snippet(resp.Body())}
}

// Snippet trims body for logs and errors.
func Snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "<empty>"
	}
	if len(s) > maxSnippet {
		return s[:maxSnippet] + "..."
	}
	return s
}
