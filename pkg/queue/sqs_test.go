package queue

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	sent       []string
	inbox      []types.Message
	deleted    []string
	visibility map[string]int32
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.sent = append(f.sent, aws.ToString(in.MessageBody))
	return &sqs.SendMessageOutput{}, nil
}

func (f *fakeSQS) ReceiveMessage(context.Context, *sqs.ReceiveMessageInput, ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	if len(f.inbox) == 0 {
		return &sqs.ReceiveMessageOutput{}, nil
	}
	msg := f.inbox[0]
	f.inbox = f.inbox[1:]
	return &sqs.ReceiveMessageOutput{Messages: []types.Message{msg}}, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeSQS) ChangeMessageVisibility(_ context.Context, in *sqs.ChangeMessageVisibilityInput, _ ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error) {
	if f.visibility == nil {
		f.visibility = map[string]int32{}
	}
	f.visibility[aws.ToString(in.ReceiptHandle)] = in.VisibilityTimeout
	return &sqs.ChangeMessageVisibilityOutput{}, nil
}

func TestSQSReserveAckRetry(t *testing.T) {
	fake := &fakeSQS{}
	q := NewSQS(fake, "https://sqs.local/notifications")
	ctx := context.Background()

	job, err := NewJob("welcome", welcome{Email: "a@example.com"})
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(ctx, job))
	require.Len(t, fake.sent, 1)

	fake.inbox = append(fake.inbox, types.Message{
		Body:          aws.String(fake.sent[0]),
		ReceiptHandle: aws.String("rh-1"),
		Attributes:    map[string]string{"ApproximateReceiveCount": "3"},
	})
	got, err := q.Reserve(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, 3, got.Attempts)

	require.NoError(t, q.Retry(ctx, got, 40*time.Second))
	assert.Equal(t, int32(40), fake.visibility["rh-1"])

	require.NoError(t, q.Ack(ctx, got))
	assert.Equal(t, []string{"rh-1"}, fake.deleted)

	none, err := q.Reserve(ctx, time.Second)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestSQSDropsUndecodable(t *testing.T) {
	fake := &fakeSQS{inbox: []types.Message{{Body: aws.String("{"), ReceiptHandle: aws.String("bad")}}}
	q := NewSQS(fake, "u")
	_, err := q.Reserve(context.Background(), 0)
	assert.Error(t, err)
	assert.Equal(t, []string{"bad"}, fake.deleted)
}
