// Package events publishes committed wallet transactions to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/dualwallet/internal/logging"
	"github.com/dmitrijs2005/dualwallet/internal/wallet"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RoutingKeyPrefix is followed by the record kind, e.g. wallet.transaction.swap.
const RoutingKeyPrefix = "wallet.transaction."

const publishTimeout = 5 * time.Second

// TransactionEvent is the message body.
type TransactionEvent struct {
	ID        string            `json:"id"`
	AccountID string            `json:"account_id"`
	Kind      wallet.Kind       `json:"kind"`
	Token     wallet.Token      `json:"token"`
	Amount    string            `json:"amount"`
	Status    wallet.Status     `json:"status"`
	Reference string            `json:"reference,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func newTransactionEvent(rec wallet.Record) TransactionEvent {
	return TransactionEvent{
		ID:        rec.ID,
		AccountID: rec.AccountID,
		Kind:      rec.Kind,
		Token:     rec.Token,
		Amount:    rec.Amount.String(),
		Status:    rec.Status,
		Reference: rec.Reference,
		Metadata:  rec.Metadata,
		Timestamp: rec.Timestamp,
	}
}

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher is an engine observer. Events are sent asynchronously so a slow
// broker never delays a wallet operation.
type Publisher struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
	logger   logging.Logger
	wg       sync.WaitGroup
}

// NewRabbitMQPublisher dials url and declares a durable topic exchange.
func NewRabbitMQPublisher(url, exchange string, logger logging.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	p := newPublisher(ch, exchange, logger)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange string, logger logging.Logger) *Publisher {
	return &Publisher{ch: ch, exchange: exchange, logger: logger}
}

// Publish sends one event synchronously.
func (p *Publisher) Publish(ctx context.Context, rec wallet.Record) error {
	body, err := json.Marshal(newTransactionEvent(rec))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.ch.PublishWithContext(ctx, p.exchange, RoutingKeyPrefix+string(rec.Kind), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    rec.ID,
		Timestamp:    rec.Timestamp,
		Body:         body,
	})
}

// RecordCommitted implements engine.Observer.
func (p *Publisher) RecordCommitted(ctx context.Context, rec wallet.Record) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		if err := p.Publish(ctx, rec); err != nil {
			p.logger.Error(ctx, "publish transaction event", "id", rec.ID, "error", err)
		}
	}()
}

// Close waits for in-flight publishes and closes the broker connection.
func (p *Publisher) Close() error {
	p.wg.Wait()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
