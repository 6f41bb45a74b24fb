package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	msgs []kafka.Message
	err  error
}

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	c.msgs = append(c.msgs, msgs...)
	return c.err
}

func (c *captureWriter) Close() error { return nil }

func TestKafkaPublishKeysByEntity(t *testing.T) {
	w := &captureWriter{}
	k := &Kafka{w: w, timeout: time.Second, log: slog.New(slog.NewTextHandler(io.Discard, nil))}

	k.Publish(context.Background(), Event{Type: LeadCreated, EntityID: "lead-1", Data: map[string]string{"source": "website"}})

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "lead-1", string(w.msgs[0].Key))
	var got Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, LeadCreated, got.Type)
	assert.False(t, got.At.IsZero())
}

func TestKafkaPublishSwallowsErrors(t *testing.T) {
	w := &captureWriter{err: errors.New("no brokers")}
	k := &Kafka{w: w, timeout: time.Second, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	assert.NotPanics(t, func() { k.Publish(context.Background(), Event{Type: LeadUpdated}) })
}
