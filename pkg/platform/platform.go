// Package platform opens the backing services shared by the API server and
// the worker: the record store, the job queues, object storage and the
// event stream.
package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/redis/go-redis/v9"

	"invictcrm/pkg/cloud"
	"invictcrm/pkg/config"
	"invictcrm/pkg/events"
	"invictcrm/pkg/notify"
	"invictcrm/pkg/queue"
	"invictcrm/pkg/storage"
	"invictcrm/pkg/store"
)

type Platform struct {
	DB            *store.DB
	Notifications queue.Queue
	Uploads       queue.Queue
	Storage       storage.Storage
	Events        events.Publisher
	Notifier      *notify.Dispatcher

	closers []func() error
}

// NewLogger builds the process logger from LOG_FORMAT and LOG_LEVEL and
// installs it as the slog default.
func NewLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if strings.EqualFold(cfg.LogFormat, "text") {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	log := slog.New(h)
	slog.SetDefault(log)
	return log
}

// Open connects everything cfg describes. On error whatever was opened is
// closed again.
func Open(ctx context.Context, cfg config.Config, log *slog.Logger) (_ *Platform, err error) {
	p := &Platform{}
	defer func() {
		if err != nil {
			_ = p.Close()
		}
	}()

	if p.DB, err = store.Open(cfg.DatabaseDSN); err != nil {
		return nil, err
	}
	p.closers = append(p.closers, p.DB.Close)

	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		c, err := cloud.Load(ctx, cloud.Options{Region: cfg.S3Region, Endpoint: cfg.S3Endpoint, AccessKey: cfg.S3AccessKey, SecretKey: cfg.S3SecretKey})
		if err != nil {
			return aws.Config{}, err
		}
		awsCfg = &c
		return c, nil
	}

	backends := queue.Backends{Prefix: cfg.QueuePrefix, SQSPrefix: cfg.SQSPrefix}
	switch cfg.QueueDriver {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		p.closers = append(p.closers, rdb.Close)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		backends.Redis = rdb
	case "sqs":
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		backends.SQS = cloud.SQS(c)
	}
	if p.Notifications, err = queue.Open(ctx, cfg.QueueDriver, queue.Notifications, backends); err != nil {
		return nil, err
	}
	p.closers = append(p.closers, p.Notifications.Close)
	if p.Uploads, err = queue.Open(ctx, cfg.QueueDriver, queue.Uploads, backends); err != nil {
		return nil, err
	}
	p.closers = append(p.closers, p.Uploads.Close)
	p.Notifier = notify.NewDispatcher(p.Notifications, p.Uploads, cfg.EnqueueTimeout, log)

	switch cfg.StorageDriver {
	case "memory":
		log.Warn("using in-memory object storage; uploads are lost on restart")
		p.Storage = storage.NewMemory(cfg.S3Bucket)
	default:
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		p.Storage = storage.NewS3(cloud.S3(c), cfg.S3Bucket)
	}

	if len(cfg.KafkaBrokers) > 0 {
		k := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		p.closers = append(p.closers, k.Close)
		p.Events = k
	} else {
		p.Events = events.Nop{}
	}
	log.Info("platform ready", "queue", cfg.QueueDriver, "storage", cfg.StorageDriver, "kafka", len(cfg.KafkaBrokers) > 0)
	return p, nil
}

// Close releases everything in reverse order of opening.
func (p *Platform) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}
