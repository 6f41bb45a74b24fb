// Package events publishes lead, application and payment lifecycle events to
// Kafka for downstream consumers (reporting, the partner portal).
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	LeadCreated              = "lead.created"
	LeadUpdated              = "lead.updated"
	ApplicationStatusChanged = "application.status_changed"
	PaymentSucceeded         = "payment.succeeded"
	PaymentFailed            = "payment.failed"
	DocumentReviewed         = "document.reviewed"
)

type Event struct {
	Type     string    `json:"type"`
	EntityID string    `json:"entityId"`
	At       time.Time `json:"at"`
	Data     any       `json:"data,omitempty"`
}

// Publisher never fails the caller; delivery problems are logged.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// messageWriter is the part of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Kafka struct {
	w       messageWriter
	timeout time.Duration
	log     *slog.Logger
}

func NewKafka(brokers []string, topic string, log *slog.Logger) *Kafka {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.Hash{}, // same entity, same partition
	})
	return &Kafka{w: w, timeout: 2 * time.Second, log: log}
}

func (k *Kafka) Publish(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	value, err := json.Marshal(e)
	if err != nil {
		k.log.Error("marshal event", "type", e.Type, "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), k.timeout)
	defer cancel()
	err = k.w.WriteMessages(ctx, kafka.Message{
		Key:     []byte(e.EntityID),
		Value:   value,
		Headers: []kafka.Header{{Key: "type", Value: []byte(e.Type)}},
	})
	if err != nil {
		k.log.Warn("publish event failed", "type", e.Type, "entity", e.EntityID, "err", err)
	}
}

func (k *Kafka) Close() error {
	return k.w.Close()
}

// Nop discards events. Used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// Recorder keeps published events in memory. Used in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Types returns the event types in publish order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
