package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"nexus-backend/internal/lifecycle/domain"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// EventHandler processes one decoded lifecycle event
type EventHandler interface {
	Handle(ctx context.Context, e domain.Event) error
}

// Bus publishes lifecycle events to a Pub/Sub topic and consumes them from
// the "<topic>-sub" subscription
type Bus struct {
	client    *pubsub.Client
	handler   EventHandler
	topicName string
	subName   string
}

func NewBus(ctx context.Context, projectID, topicName, credentialsFile string, handler EventHandler) (*Bus, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	return &Bus{
		client:    client,
		handler:   handler,
		topicName: topicName,
		subName:   topicName + "-sub",
	}, nil
}

// Publish sends e and waits for the server to accept it
func (b *Bus) Publish(ctx context.Context, e domain.Event) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	result := b.client.Topic(b.topicName).Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"type": string(e.Type)},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

// AccountConnected announces a newly stored mailbox credential
func (b *Bus) AccountConnected(ctx context.Context, userID string) error {
	return b.Publish(ctx, domain.Event{Type: domain.EventAccountConnected, UserID: userID})
}

// Start blocks receiving events until ctx is cancelled
func (b *Bus) Start(ctx context.Context) {
	log.Printf("[PubSub] Starting lifecycle subscriber with topic: %s, subscription: %s", b.topicName, b.subName)

	sub := b.client.Subscription(b.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Printf("[PubSub] Error checking subscription existence: %v", err)
		return
	}

	if !exists {
		topic := b.client.Topic(b.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			log.Printf("[PubSub] Error checking topic existence: %v", err)
			return
		}
		if !topicExists {
			log.Printf("[PubSub] Topic %s does not exist, cannot create subscription", b.topicName)
			return
		}

		sub, err = b.client.CreateSubscription(ctx, b.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 60 * time.Second,
		})
		if err != nil {
			log.Printf("[PubSub] Failed to create subscription: %v", err)
			return
		}
		log.Printf("[PubSub] Created subscription: %s", b.subName)
	}

	log.Printf("[PubSub] Listening for lifecycle events on: %s", b.subName)
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		b.handleMessage(ctx, msg.Data)
		// Acked even when handling fails; events are not retried
		msg.Ack()
	})
	if err != nil {
		log.Printf("[PubSub] Error receiving messages: %v", err)
	}
}

func (b *Bus) handleMessage(ctx context.Context, data []byte) {
	var e domain.Event
	if err := json.Unmarshal(data, &e); err != nil {
		log.Printf("[PubSub] Failed to unmarshal lifecycle event: %v", err)
		return
	}
	log.Printf("[PubSub] Received %s for user %s", e.Type, e.UserID)
	if err := b.handler.Handle(ctx, e); err != nil {
		log.Printf("[PubSub] Failed to handle %s for user %s: %v", e.Type, e.UserID, err)
	}
}

func (b *Bus) Close() error {
	return b.client.Close()
}
