package publishers

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// pubSubSender publishes pages to a topic and waits for the server ack.
type pubSubSender struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

func newPubSubSender(ctx context.Context, cfg *PubSubConfig) (*pubSubSender, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &pubSubSender{client: client, topic: client.Topic(cfg.Topic)}, nil
}

func (p *pubSubSender) Send(ctx context.Context, m message) error {
	attrs := make(map[string]string, len(m.attrs)+1)
	for _, a := range m.attrs {
		attrs[a.Name] = a.Value
	}
	attrs["dedupe"] = m.dedupe

	res := p.topic.Publish(ctx, &pubsub.Message{Data: m.body, Attributes: attrs})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("publish to pubsub %s: %w", p.topic.ID(), err)
	}
	return nil
}

// Close flushes pending messages and releases the client.
func (p *pubSubSender) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
