// Package queue is the job broker used for notification fan-out and document
// post-processing. Delivery is at-least-once: a reserved job is redelivered
// until it is acked.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrClosed = errors.New("queue closed")

// Queue names.
const (
	Notifications = "notifications"
	Uploads       = "uploads"
)

// Job is one unit of work. Attempts counts deliveries including the current one.
type Job struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`

	receipt string
}

// NewJob marshals payload into a job with a fresh id.
func NewJob(name string, payload any) (Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("marshal %s payload: %w", name, err)
	}
	return Job{ID: uuid.NewString(), Name: name, Payload: raw, EnqueuedAt: time.Now().UTC()}, nil
}

// Decode unmarshals the payload into v.
func (j Job) Decode(v any) error {
	return json.Unmarshal(j.Payload, v)
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	// Reserve waits up to wait for a job. It returns nil, nil when none arrived.
	Reserve(ctx context.Context, wait time.Duration) (*Job, error)
	Ack(ctx context.Context, job *Job) error
	// Retry makes the job visible again after delay.
	Retry(ctx context.Context, job *Job, delay time.Duration) error
	Close() error
}
