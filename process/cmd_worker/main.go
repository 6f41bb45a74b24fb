// Command cmd_worker consumes the notification and upload queues and runs
// the task reminder loop.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"invictcrm/pkg/config"
	"invictcrm/pkg/documents"
	"invictcrm/pkg/platform"
	"invictcrm/process/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	log := platform.NewLogger(cfg)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	if cfg.QueueDriver == "memory" {
		log.Error("QUEUE_DRIVER=memory is served by the API process; use redis or sqs for a separate worker")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := platform.Open(ctx, cfg, log)
	if err != nil {
		log.Error("open platform", "error", err)
		os.Exit(1)
	}
	defer p.Close()

	docs := documents.NewService(p.DB, p.Storage, p.Notifier, p.Events, cfg.URLExpiry, log)
	wait, err := worker.StartConsumers(ctx, cfg, p, p.DB, docs, log)
	if err != nil {
		log.Error("start consumers", "error", err)
		os.Exit(1)
	}
	<-ctx.Done()
	log.Info("shutting down worker")
	wait()
}
