package main

import (
	"context"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type message struct {
	Data       []byte
	Attributes map[string]string
}

// broker is the slice of Pub/Sub the relay needs. Publish blocks until the
// server acknowledges the message or ctx ends.
type broker interface {
	Ping(context.Context) error
	Publish(ctx context.Context, topic string, msg message) (string, error)
}

type topicSource interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type pubsubBroker struct {
	client topicSource
}

func newPubSubBroker(client topicSource) *pubsubBroker {
	return &pubsubBroker{client: client}
}

func (b *pubsubBroker) Ping(ctx context.Context) error { return b.client.Ping(ctx) }

func (b *pubsubBroker) Publish(ctx context.Context, topic string, msg message) (string, error) {
	pub := b.client.Publisher(topic)
	if pub == nil {
		return "", fmt.Errorf("%w %s", errNoTopic, topic)
	}
	return pub.Publish(ctx, &gcppubsub.Message{Data: msg.Data, Attributes: msg.Attributes}).Get(ctx)
}
