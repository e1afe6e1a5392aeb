package main

import (
	"context"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/drewmudry/manimgen-api/internal/platform"
	"github.com/drewmudry/manimgen-api/processing"
	"github.com/drewmudry/manimgen-api/render"
	"github.com/drewmudry/manimgen-api/tasks"
	"github.com/drewmudry/manimgen-api/worker"
)

func main() {
	cfg, err := platform.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	platform.NewLogger(cfg)

	db, err := platform.NewDBConnection(cfg)
	if err != nil {
		log.Fatalf("Database: %v", err)
	}
	rdb, err := platform.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("Redis: %v", err)
	}
	defer rdb.Close()

	gen, err := processing.NewGenerator(cfg)
	if err != nil {
		log.Fatalf("Code generator: %v", err)
	}

	p := worker.NewProcessor(db, rdb, render.NewPipeline(cfg.RenderOptions(), gen))
	p.Register(tasks.QueueSceneRender, p.HandleSceneRender)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infof("Worker started with %d listener(s), waiting for queue tasks...", cfg.WorkerConcurrency)
	p.Run(ctx, cfg.WorkerConcurrency, p.Queues()...)
	log.Info("Worker stopped")
}
