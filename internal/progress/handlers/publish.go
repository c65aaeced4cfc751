package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/JakeFAU/progress-pipeline/internal/progress"
)

// Publisher pushes encoded event records to a topic (Pub/Sub or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) (string, error)
}

// Publish forwards each event record to a topic. Delivery is attempted once;
// failures are returned to the Writer, which logs them and moves on.
type Publish struct {
	publisher Publisher
	topic     string
}

// NewPublish constructs a Publish handler for topic.
func NewPublish(publisher Publisher, topic string) (*Publish, error) {
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	return &Publish{publisher: publisher, topic: topic}, nil
}

// Handle encodes evt and publishes it, waiting for the server ID.
func (h *Publish) Handle(ctx context.Context, evt progress.Event) error {
	payload, err := EncodeRecord(evt)
	if err != nil {
		return err
	}
	if _, err := h.publisher.Publish(ctx, h.topic, payload); err != nil {
		return fmt.Errorf("publish %s: %w", evt.Kind, err)
	}
	return nil
}

// Finish implements the Handler interface; every publish was already
// acknowledged in Handle.
func (h *Publish) Finish(context.Context) error {
	return nil
}
