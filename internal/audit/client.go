// Package audit publishes a durable, one-way trail of accepted budget
// mutations to RabbitMQ, for downstream compliance/finance consumers.
// It is deliberately not a replay source for the ledger itself: the
// master's own account state is authoritative, and balances are never
// reconstructed by replaying this trail.
package audit

import (
	"context"
	"fmt"
	"time"

	"banker/internal/account"
	"banker/internal/money"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const exchangeName = "banker.audit"

// Client publishes Entry records to a durable RabbitMQ exchange.
type Client struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	logger  zerolog.Logger
}

// NewClient dials url and declares the durable audit exchange.
func NewClient(url string, logger zerolog.Logger) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("audit: dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("audit: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchangeName, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("audit: declare exchange: %w", err)
	}
	return &Client{conn: conn, channel: ch, logger: logger.With().Str("component", "audit").Logger()}, nil
}

// Close releases the channel and connection.
func (c *Client) Close() error {
	c.channel.Close()
	return c.conn.Close()
}

func (c *Client) publish(entry *Entry) error {
	body, err := entry.toJSON()
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.channel.PublishWithContext(ctx, exchangeName, "", false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

// AccountMutated implements ledger.MutationObserver, recording each
// currency the mutation touched as a separate audit entry. Publish
// failures are logged, not returned: an audit hiccup must never block
// or roll back a ledger mutation that has already been accepted.
func (c *Client) AccountMutated(key string, op string, before, after *account.Account) {
	for _, cur := range touchedCurrencies(before, after) {
		entry := &Entry{
			Key:       key,
			Op:        op,
			Currency:  cur,
			Before:    snapshot(before, cur),
			After:     snapshot(after, cur),
			Timestamp: time.Now(),
		}
		if err := c.publish(entry); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Str("op", op).Msg("failed to publish audit entry")
		}
	}
}

func touchedCurrencies(before, after *account.Account) []string {
	seen := make(map[string]struct{})
	for _, cur := range after.Available.Currencies() {
		seen[cur] = struct{}{}
	}
	for _, cur := range before.Available.Currencies() {
		seen[cur] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for cur := range seen {
		out = append(out, cur)
	}
	return out
}

func snapshot(a *account.Account, cur string) money.CurrencyPool {
	p := money.NewCurrencyPool()
	p.AddUnits(cur, a.Available.Get(cur))
	return p
}
