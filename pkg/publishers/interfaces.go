package publishers

import (
	"context"

	"github.com/samvad-hq/samvad-newsfeed/internal/logger"
)

// Publisher forwards feed pages to one downstream sink.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

// sender puts one encoded page on the wire.
type sender interface {
	Send(ctx context.Context, m message) error
}

// Logger is the logging surface publishers rely on.
type Logger = logger.Logger

func ensureLogger(log Logger) Logger { return logger.Ensure(log) }
