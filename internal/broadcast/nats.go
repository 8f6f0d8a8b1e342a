// Package broadcast pushes budget-change notifications from the
// master to the shadow fleet over NATS JetStream, so bidders can
// opportunistically refresh a shadow before its next scheduled
// SyncFrom instead of only ever pulling on a timer.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"banker/internal/account"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

const streamName = "BANKER_BUDGET"

// subject returns the JetStream subject a key's changes are published
// on: banker.budget.<key>, with the key's colon separators turned into
// NATS token separators so subscribers can wildcard-match a whole
// subtree with banker.budget.campaign.>.
func subject(key string) string {
	return fmt.Sprintf("banker.budget.%s", strings.ReplaceAll(key, ":", "."))
}

// Notification is the payload published whenever the master accepts a
// mutation against an account.
type Notification struct {
	Key       string    `json:"key"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher implements ledger.MutationObserver by publishing a
// Notification for every accepted mutation. It never carries the full
// before/after account across the wire: subscribers treat a
// notification purely as a hint to re-sync, not as authoritative
// state, so there is nothing to reconcile if a notification is lost.
type Publisher struct {
	js     jetstream.JetStream
	logger zerolog.Logger
}

// NewPublisher connects to natsURL and ensures the budget-change
// stream exists.
func NewPublisher(ctx context.Context, natsURL string, logger zerolog.Logger) (*Publisher, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("broadcast: connect to nats: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("broadcast: jetstream: %w", err)
	}
	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{"banker.budget.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    time.Hour,
		Replicas:  1,
	}); err != nil {
		return nil, fmt.Errorf("broadcast: create stream: %w", err)
	}
	return &Publisher{js: js, logger: logger.With().Str("component", "broadcast").Logger()}, nil
}

// AccountMutated implements ledger.MutationObserver.
func (p *Publisher) AccountMutated(key string, op string, before, after *account.Account) {
	data, err := json.Marshal(Notification{Key: key, Op: op, Timestamp: time.Now()})
	if err != nil {
		p.logger.Warn().Err(err).Str("key", key).Msg("failed to marshal budget notification")
		return
	}
	if _, err := p.js.Publish(context.Background(), subject(key), data); err != nil {
		p.logger.Warn().Err(err).Str("key", key).Msg("failed to publish budget notification")
	}
}

// Subscriber consumes budget-change notifications for the account
// prefixes a shadow process cares about.
type Subscriber struct {
	js jetstream.JetStream
}

// NewSubscriber connects to natsURL for consuming budget notifications.
func NewSubscriber(natsURL string) (*Subscriber, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("broadcast: connect to nats: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("broadcast: jetstream: %w", err)
	}
	return &Subscriber{js: js}, nil
}

// Watch delivers a Notification to onNotify for every mutation
// published for an account beneath keyPrefix (e.g. "campaign" to watch
// every account under that campaign; the prefix account's own subject
// is not matched by the filter), until ctx is cancelled.
func (s *Subscriber) Watch(ctx context.Context, keyPrefix, durableName string, onNotify func(Notification)) error {
	filter := subject(keyPrefix)
	if keyPrefix != "" {
		filter = filter + ".>"
	}
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: filter,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("broadcast: create consumer: %w", err)
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		var n Notification
		if err := json.Unmarshal(msg.Data(), &n); err == nil {
			onNotify(n)
		}
		msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("broadcast: consume: %w", err)
	}
	<-ctx.Done()
	consumeCtx.Stop()
	return ctx.Err()
}
