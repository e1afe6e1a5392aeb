// main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/drewmudry/manimgen-api/generation"
	"github.com/drewmudry/manimgen-api/internal/platform"
	"github.com/drewmudry/manimgen-api/processing"
	"github.com/drewmudry/manimgen-api/render"
	"github.com/drewmudry/manimgen-api/stitching"
	"github.com/drewmudry/manimgen-api/worker"
)

type Server struct {
	Config *platform.Config
	DB     *gorm.DB
	Redis  *redis.Client
	Router *gin.Engine
}

func NewServer(cfg *platform.Config) (*Server, error) {
	db, err := platform.NewDBConnection(cfg)
	if err != nil {
		return nil, err
	}
	rdb, err := platform.NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	gen, err := processing.NewGenerator(cfg)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.Use(generation.CORSMiddleware(cfg.FrontendURLs))

	clips := stitching.NewStore(cfg.ClipDir)
	handler := &generation.Handler{
		DB:       db,
		Redis:    rdb,
		Renderer: render.NewPipeline(cfg.RenderOptions(), gen),
		Queue:    worker.NewProcessor(db, rdb, nil),
		Clips:    clips,
		Stitcher: stitching.NewStitcher(clips, filepath.Join(cfg.MediaRoot, "videos")),
	}
	handler.RegisterRoutes(router, cfg.JWTSecret)
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET is not set; mutating routes are unauthenticated")
	}

	return &Server{Config: cfg, DB: db, Redis: rdb, Router: router}, nil
}

// requestLogger logs one line per request through logrus.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Info("request")
	}
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    ":" + s.Config.Port,
		Handler: s.Router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("Server shutdown: %v", err)
		}
	}()

	log.Infof("Server starting on port %s", s.Config.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func main() {
	cfg, err := platform.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	platform.NewLogger(cfg)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	server, err := NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
