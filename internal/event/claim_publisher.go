package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ClaimEventPublisher publishes claim lifecycle and payout events to RabbitMQ.
// Services publish from handler goroutines and from the workers concurrently,
// so the bookkeeping is atomic.
type ClaimEventPublisher struct {
	conn              *RabbitMQConnection
	messagesPublished atomic.Int64
	messagesFailed    atomic.Int64
	lastPublishNano   atomic.Int64
}

// NewClaimEventPublisher creates a new claim event publisher
func NewClaimEventPublisher(conn *RabbitMQConnection) *ClaimEventPublisher {
	p := &ClaimEventPublisher{conn: conn}
	p.lastPublishNano.Store(time.Now().UnixNano())
	return p
}

// PublishClaimStatusChanged publishes a lifecycle transition to the
// claim_status_events queue
func (p *ClaimEventPublisher) PublishClaimStatusChanged(ctx context.Context, event ClaimStatusChangedEvent) error {
	if err := p.publish(ctx, ClaimStatusQueue, event); err != nil {
		return err
	}

	slog.Info("Claim status event published",
		"queue", ClaimStatusQueue,
		"claim_id", event.ClaimID,
		"old_status", event.OldStatus,
		"new_status", event.NewStatus,
	)

	return nil
}

// PublishPayoutRequest hands a payout to the settlement worker via the
// payout_requests queue
func (p *ClaimEventPublisher) PublishPayoutRequest(ctx context.Context, event PayoutRequestEvent) error {
	if err := p.publish(ctx, PayoutRequestQueue, event); err != nil {
		return err
	}

	slog.Info("Payout request published",
		"queue", PayoutRequestQueue,
		"payout_id", event.PayoutID,
		"claim_id", event.ClaimID,
		"amount", event.PayoutAmount,
	)

	return nil
}

func (p *ClaimEventPublisher) publish(ctx context.Context, queue string, event any) error {
	// Ensure the queue exists
	_, err := p.conn.Channel.QueueDeclare(
		queue, // queue name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		p.recordFailure()
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.recordFailure()
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.conn.Channel.PublishWithContext(
		ctx,
		"",    // exchange
		queue, // routing key (queue name)
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		p.recordFailure()
		return fmt.Errorf("failed to publish event to %s: %w", queue, err)
	}

	p.recordSuccess()

	return nil
}

func (p *ClaimEventPublisher) recordSuccess() {
	p.messagesPublished.Add(1)
	p.lastPublishNano.Store(time.Now().UnixNano())
}

func (p *ClaimEventPublisher) recordFailure() {
	p.messagesFailed.Add(1)
}

// GetMetrics returns publisher metrics
func (p *ClaimEventPublisher) GetMetrics() map[string]any {
	return map[string]any{
		"messages_published": p.messagesPublished.Load(),
		"messages_failed":    p.messagesFailed.Load(),
		"last_publish_time":  time.Unix(0, p.lastPublishNano.Load()),
	}
}

// HealthCheck returns the health status of the publisher
func (p *ClaimEventPublisher) HealthCheck() PublisherHealthStatus {
	isHealthy := p.conn != nil && p.conn.Connection != nil && !p.conn.Connection.IsClosed()

	return PublisherHealthStatus{
		IsHealthy:         isHealthy,
		MessagesPublished: p.messagesPublished.Load(),
		MessagesFailed:    p.messagesFailed.Load(),
		LastPublishTime:   time.Unix(0, p.lastPublishNano.Load()),
	}
}

// PublisherHealthStatus represents the health status of the publisher
type PublisherHealthStatus struct {
	IsHealthy         bool      `json:"is_healthy"`
	MessagesPublished int64     `json:"messages_published"`
	MessagesFailed    int64     `json:"messages_failed"`
	LastPublishTime   time.Time `json:"last_publish_time"`
}
