package publishers

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
)

func TestPubSubSinkPublishes(t *testing.T) {
	// Use the in-memory Pub/Sub emulator.
	server := pstest.NewServer()
	defer server.Close()
	t.Setenv("PUBSUB_EMULATOR_HOST", server.Addr)

	ctx := context.Background()
	client, err := pubsub.NewClient(ctx, "test-project")
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	defer client.Close()
	if _, err := client.CreateTopic(ctx, "topic-1"); err != nil {
		t.Fatalf("create topic: %v", err)
	}

	pub, err := Build(ctx, SinkConfig{
		ID:     "pages",
		Type:   TypePubSub,
		PubSub: &PubSubConfig{ProjectID: "test-project", Topic: "topic-1"},
	}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if err := pub.Publish(ctx, samplePageEvent()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := pub.(io.Closer).Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	msgs := server.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	attrs := msgs[0].Attributes
	if attrs["page"] != "2" || attrs["sources"] != "guardian,nyt" || attrs["dedupe"] == "" {
		t.Fatalf("unexpected attributes %v", attrs)
	}
	var evt Event
	if err := json.Unmarshal(msgs[0].Data, &evt); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if len(evt.Articles) != 2 || evt.Articles[0].ID != "nyt-a1" {
		t.Fatalf("unexpected payload %+v", evt)
	}
}
