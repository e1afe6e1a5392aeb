package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/drewmudry/manimgen-api/internal/platform"
	"github.com/drewmudry/manimgen-api/janitor"
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

	j := janitor.New(db, cfg)
	j.RunOnce()

	c := cron.New()
	if err := j.Schedule(c); err != nil {
		log.Fatalf("Error scheduling cleanup: %v", err)
	}
	c.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Scheduler started")
	<-ctx.Done()
	<-c.Stop().Done()
	log.Info("Scheduler stopped")
}
