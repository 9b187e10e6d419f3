package publishers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/samvad-newsfeed/pkg/httpclient"
)

// Build constructs the sink described by cfg.
func Build(ctx context.Context, cfg SinkConfig, log Logger) (Publisher, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var (
		s   sender
		err error
	)
	switch cfg.Type {
	case TypeHTTP:
		timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second
		s = newWebhookSender(cfg.HTTP, httpclient.NewRestyClient(timeout))
	case TypeSQS:
		s, err = newSQSSender(ctx, cfg.SQS)
	case TypeSNS:
		s, err = newSNSSender(ctx, cfg.SNS)
	case TypePubSub:
		s, err = newPubSubSender(ctx, cfg.PubSub)
	}
	if err != nil {
		return nil, fmt.Errorf("publisher %q: %w", cfg.ID, err)
	}
	return &sink{
		id:      cfg.ID,
		typ:     cfg.Type,
		sources: cfg.Sources,
		sender:  s,
		log:     ensureLogger(log),
	}, nil
}

// BuildAll constructs every sink. On failure the sinks already built are closed.
func BuildAll(ctx context.Context, cfgs []SinkConfig, log Logger) ([]Publisher, error) {
	pubs := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		pub, err := Build(ctx, cfg, log)
		if err != nil {
			return nil, errors.Join(err, NewFanout(pubs).Close())
		}
		pubs = append(pubs, pub)
	}
	return pubs, nil
}
