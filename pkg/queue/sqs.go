package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SQSAPI is the subset of the SQS client the queue uses.
type SQSAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, in *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
}

const (
	maxSQSWait       = 20 * time.Second
	maxSQSVisibility = 12 * time.Hour
)

// SQS maps retries onto the visibility timeout and takes the attempt count
// from ApproximateReceiveCount.
type SQS struct {
	client SQSAPI
	url    string
}

func NewSQS(client SQSAPI, queueURL string) *SQS {
	return &SQS{client: client, url: queueURL}
}

// ResolveSQS looks up the URL of the named queue.
func ResolveSQS(ctx context.Context, client *sqs.Client, name string) (*SQS, error) {
	out, err := client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(name)})
	if err != nil {
		return nil, fmt.Errorf("get queue url %s: %w", name, err)
	}
	return NewSQS(client, aws.ToString(out.QueueUrl)), nil
}

func (q *SQS) Enqueue(ctx context.Context, job Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.url),
		MessageBody: aws.String(string(raw)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"job": {DataType: aws.String("String"), StringValue: aws.String(job.Name)},
		},
	})
	return err
}

func (q *SQS) Reserve(ctx context.Context, wait time.Duration) (*Job, error) {
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:                    aws.String(q.url),
		MaxNumberOfMessages:         1,
		WaitTimeSeconds:             int32(min(wait, maxSQSWait) / time.Second),
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{types.MessageSystemAttributeNameApproximateReceiveCount},
	})
	if err != nil {
		return nil, err
	}
	if len(out.Messages) == 0 {
		return nil, nil
	}
	msg := out.Messages[0]
	var job Job
	if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &job); err != nil {
		_, _ = q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{QueueUrl: aws.String(q.url), ReceiptHandle: msg.ReceiptHandle})
		return nil, fmt.Errorf("decode job: %w", err)
	}
	job.Attempts = 1
	if n, err := strconv.Atoi(msg.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)]); err == nil && n > 0 {
		job.Attempts = n
	}
	job.receipt = aws.ToString(msg.ReceiptHandle)
	return &job, nil
}

func (q *SQS) Ack(ctx context.Context, job *Job) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{QueueUrl: aws.String(q.url), ReceiptHandle: aws.String(job.receipt)})
	return err
}

func (q *SQS) Retry(ctx context.Context, job *Job, delay time.Duration) error {
	_, err := q.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(q.url),
		ReceiptHandle:     aws.String(job.receipt),
		VisibilityTimeout: int32(min(delay, maxSQSVisibility) / time.Second),
	})
	return err
}

func (q *SQS) Close() error { return nil }
