package queue

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/redis/go-redis/v9"
)

// Backends carries the already-connected clients Open can build on. Only the
// one matching the driver needs to be set.
type Backends struct {
	Redis     redis.UniversalClient
	SQS       *sqs.Client
	Prefix    string // redis key prefix
	SQSPrefix string // sqs queue name prefix
}

// Open returns the named queue for driver (redis, sqs or memory).
func Open(ctx context.Context, driver, name string, b Backends) (Queue, error) {
	switch driver {
	case "redis":
		if b.Redis == nil {
			return nil, fmt.Errorf("queue %s: redis client not configured", name)
		}
		return NewRedis(b.Redis, b.Prefix, name), nil
	case "sqs":
		if b.SQS == nil {
			return nil, fmt.Errorf("queue %s: sqs client not configured", name)
		}
		return ResolveSQS(ctx, b.SQS, b.SQSPrefix+"-"+name)
	case "memory":
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown queue driver %q", driver)
}
