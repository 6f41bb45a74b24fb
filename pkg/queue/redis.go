package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultVisibility is how long a reserved job may stay unacked before
// another worker can take it.
const DefaultVisibility = 5 * time.Minute

// promoteDue moves delayed jobs whose time has come onto the ready list.
var promoteDue = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 100)
for _, m in ipairs(due) do
	redis.call('ZREM', KEYS[1], m)
	redis.call('LPUSH', KEYS[2], m)
end
return #due
`)

// reclaimStale puts jobs whose lease expired back at the head of the ready
// list, then leases any processing entry that has none so a worker that died
// right after BLMOVE cannot strand it.
var reclaimStale = redis.NewScript(`
local stale = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 100)
for _, m in ipairs(stale) do
	redis.call('ZREM', KEYS[1], m)
	if redis.call('LREM', KEYS[2], 1, m) > 0 then
		redis.call('RPUSH', KEYS[3], m)
	end
end
local held = redis.call('LRANGE', KEYS[2], -100, -1)
for _, m in ipairs(held) do
	if not redis.call('ZSCORE', KEYS[1], m) then
		redis.call('ZADD', KEYS[1], ARGV[2], m)
	end
end
return #stale
`)

// Redis keeps four keys per queue: a ready list, a processing list holding
// reserved jobs, a leases sorted set scoring each processing entry by the
// time it was reserved, and a delayed sorted set scored by unix millis.
type Redis struct {
	rdb        redis.UniversalClient
	ready      string
	processing string
	leases     string
	delayed    string
	visibility time.Duration
	now        func() time.Time
}

type RedisOption func(*Redis)

// WithVisibility overrides DefaultVisibility.
func WithVisibility(d time.Duration) RedisOption {
	return func(q *Redis) {
		if d > 0 {
			q.visibility = d
		}
	}
}

func NewRedis(rdb redis.UniversalClient, prefix, name string, opts ...RedisOption) *Redis {
	base := prefix + ":queue:" + name
	q := &Redis{
		rdb:        rdb,
		ready:      base + ":ready",
		processing: base + ":processing",
		leases:     base + ":leases",
		delayed:    base + ":delayed",
		visibility: DefaultVisibility,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Redis) Enqueue(ctx context.Context, job Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.rdb.LPush(ctx, q.ready, raw).Err()
}

func (q *Redis) Reserve(ctx context.Context, wait time.Duration) (*Job, error) {
	now := q.now()
	nowMs := strconv.FormatInt(now.UnixMilli(), 10)
	if err := promoteDue.Run(ctx, q.rdb, []string{q.delayed, q.ready}, nowMs).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("promote delayed: %w", err)
	}
	cutoff := strconv.FormatInt(now.Add(-q.visibility).UnixMilli(), 10)
	if err := reclaimStale.Run(ctx, q.rdb, []string{q.leases, q.processing, q.ready}, cutoff, nowMs).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("reclaim stale: %w", err)
	}
	raw, err := q.rdb.BLMove(ctx, q.ready, q.processing, "RIGHT", "LEFT", wait).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		// unreadable entries are dropped so they cannot wedge the queue
		q.rdb.LRem(ctx, q.processing, 1, raw)
		return nil, fmt.Errorf("decode job: %w", err)
	}
	job.Attempts++

	// The processing entry is rewritten with the new attempt count so a
	// reclaimed job is not redelivered as if it were fresh.
	held, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}
	_, err = q.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LRem(ctx, q.processing, 1, raw)
		p.LPush(ctx, q.processing, held)
		p.ZAdd(ctx, q.leases, redis.Z{Score: float64(q.now().UnixMilli()), Member: string(held)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("lease job %s: %w", job.ID, err)
	}
	job.receipt = string(held)
	return &job, nil
}

func (q *Redis) Ack(ctx context.Context, job *Job) error {
	_, err := q.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LRem(ctx, q.processing, 1, job.receipt)
		p.ZRem(ctx, q.leases, job.receipt)
		return nil
	})
	return err
}

func (q *Redis) Retry(ctx context.Context, job *Job, delay time.Duration) error {
	next := *job
	next.receipt = ""
	raw, err := json.Marshal(next)
	if err != nil {
		return err
	}
	at := float64(q.now().Add(delay).UnixMilli())
	_, err = q.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LRem(ctx, q.processing, 1, job.receipt)
		p.ZRem(ctx, q.leases, job.receipt)
		p.ZAdd(ctx, q.delayed, redis.Z{Score: at, Member: raw})
		return nil
	})
	return err
}

// Close is a no-op: the client is owned by the caller.
func (q *Redis) Close() error { return nil }
