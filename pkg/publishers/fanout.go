package publishers

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Fanout sends each validated page to every sink.
type Fanout struct {
	publishers []Publisher
}

// NewFanout drops nil entries from pubs.
func NewFanout(pubs []Publisher) *Fanout {
	cp := make([]Publisher, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			cp = append(cp, p)
		}
	}
	return &Fanout{publishers: cp}
}

// Publish validates evt and forwards it. It returns how many sinks took the
// page; sinks whose source filter matches nothing on the page are skipped
// without error.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f.Size() == 0 {
		return 0, nil
	}
	if err := evt.Validate(); err != nil {
		return 0, err
	}

	var errs []error
	delivered := 0
	for _, p := range f.publishers {
		err := p.Publish(ctx, evt)
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, ErrNoMatchingArticles):
		default:
			errs = append(errs, fmt.Errorf("%s publisher[%s] page %d: %w", p.Type(), p.ID(), evt.Page, err))
		}
	}
	return delivered, errors.Join(errs...)
}

// Size returns the number of sinks.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.publishers)
}

// Close releases sinks that hold connections.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, p := range f.publishers {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s publisher[%s]: %w", p.Type(), p.ID(), err))
			}
		}
	}
	return errors.Join(errs...)
}
