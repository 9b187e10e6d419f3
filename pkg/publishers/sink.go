package publishers

import (
	"context"
	"crypto/sha1" //nolint:gosec // dedupe key, not a security boundary
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/samvad-hq/samvad-newsfeed/internal/domain"
)

// ErrNoMatchingArticles is returned by a sink whose source filter leaves
// nothing of the page.
var ErrNoMatchingArticles = errors.New("no articles for publisher sources")

// message is a page encoded once and handed to a sender.
type message struct {
	body  []byte
	attrs []Attribute
	// group orders pages from the same source set on FIFO queues and topics.
	group string
	// dedupe is stable for the same page content.
	dedupe string
}

func newMessage(evt Event) (message, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return message{}, fmt.Errorf("marshal page %d: %w", evt.Page, err)
	}
	h := sha1.New() //nolint:gosec
	for _, art := range evt.Articles {
		h.Write([]byte(art.ID))
		h.Write([]byte{0})
	}
	group := evt.SourceList()
	return message{
		body:   body,
		attrs:  evt.Attributes(),
		group:  group,
		dedupe: fmt.Sprintf("%s-p%d-%s", group, evt.Page, hex.EncodeToString(h.Sum(nil))[:16]),
	}, nil
}

// sink narrows pages to its sources, encodes them and hands them to a sender.
type sink struct {
	id      string
	typ     string
	sources []domain.SourceID
	sender  sender
	log     Logger
}

func (s *sink) ID() string   { return s.id }
func (s *sink) Type() string { return s.typ }

func (s *sink) Publish(ctx context.Context, evt Event) error {
	view := evt.ForSources(s.sources)
	if len(view.Articles) == 0 {
		return ErrNoMatchingArticles
	}
	m, err := newMessage(view)
	if err != nil {
		return err
	}
	if err := s.sender.Send(ctx, m); err != nil {
		s.log.ErrorObj("publisher send failed", "publisher_error", map[string]any{
			"publisher_id": s.id,
			"type":         s.typ,
			"page":         view.Page,
			"error":        err.Error(),
		})
		return err
	}
	s.log.DebugObj("publisher delivered page", "publisher_delivery", map[string]any{
		"publisher_id": s.id,
		"type":         s.typ,
		"page":         view.Page,
		"articles":     len(view.Articles),
		"dedupe":       m.dedupe,
	})
	return nil
}

// Close releases the sender when it holds a connection.
func (s *sink) Close() error {
	if c, ok := s.sender.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
