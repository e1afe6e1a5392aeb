package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/drewmudry/manimgen-api/render"
	"github.com/drewmudry/manimgen-api/tasks"
)

// TaskHandler is a function that processes a task payload.
type TaskHandler func(ctx context.Context, payload string) error

// Renderer is the part of render.Pipeline the handlers need.
type Renderer interface {
	Generate(ctx context.Context, prompt string) (*render.Result, error)
}

// Processor holds dependencies and registered task handlers.
type Processor struct {
	DB       *gorm.DB
	RDB      *redis.Client
	Renderer Renderer

	// PopTimeout bounds each BRPOP so a cancelled context is noticed.
	PopTimeout time.Duration

	handlers map[string]TaskHandler
}

// NewProcessor creates a new worker processor.
func NewProcessor(db *gorm.DB, rdb *redis.Client, renderer Renderer) *Processor {
	return &Processor{
		DB:         db,
		RDB:        rdb,
		Renderer:   renderer,
		PopTimeout: 5 * time.Second,
		handlers:   make(map[string]TaskHandler),
	}
}

// Register maps a queue name (task type) to a handler function.
func (p *Processor) Register(queueName string, handler TaskHandler) {
	p.handlers[queueName] = handler
	log.Infof("Registered handler for queue: %s", queueName)
}

// Queues returns the names of every registered queue.
func (p *Processor) Queues() []string {
	names := make([]string, 0, len(p.handlers))
	for name := range p.handlers {
		names = append(names, name)
	}
	return names
}

// Enqueue is a helper to add a new task to a queue.
func (p *Processor) Enqueue(ctx context.Context, queueName string, payload interface{}) error {
	payloadStr, err := tasks.Marshal(payload)
	if err != nil {
		return err
	}
	return p.RDB.LPush(ctx, queueName, payloadStr).Err()
}

// Run starts n listeners on queueNames and blocks until ctx is done and all
// of them have returned.
func (p *Processor) Run(ctx context.Context, n int, queueNames ...string) {
	if n < 1 {
		n = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Listen(ctx, queueNames...)
		}()
	}
	wg.Wait()
}

// Listen pops tasks from queueNames until ctx is cancelled.
func (p *Processor) Listen(ctx context.Context, queueNames ...string) {
	log.Infof("Worker listening on %d queues: %v", len(queueNames), queueNames)

	for {
		if ctx.Err() != nil {
			log.Info("Worker stopping")
			return
		}

		result, err := p.RDB.BRPop(ctx, p.PopTimeout, queueNames...).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Errorf("Error popping from queue: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		// result[0] is the queue name, result[1] is the payload
		queueName := result[0]
		payload := result[1]

		handler, ok := p.handlers[queueName]
		if !ok {
			log.Errorf("No handler registered for queue %s", queueName)
			continue
		}

		log.Infof("Received task from queue %s", queueName)

		if err := handler(ctx, payload); err != nil {
			log.WithField("queue", queueName).Errorf("Error processing task: %v", err)
		}
	}
}
