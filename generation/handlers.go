package generation

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/drewmudry/manimgen-api/internal/failure"
	"github.com/drewmudry/manimgen-api/models"
	"github.com/drewmudry/manimgen-api/render"
	"github.com/drewmudry/manimgen-api/stitching"
	"github.com/drewmudry/manimgen-api/tasks"
)

// Renderer generates and renders a scene for a prompt.
type Renderer interface {
	Generate(ctx context.Context, prompt string) (*render.Result, error)
}

// Enqueuer pushes a task payload onto a named queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, queueName string, payload interface{}) error
}

type Handler struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Renderer Renderer
	Queue    Enqueuer
	Clips    *stitching.Store
	Stitcher *stitching.Stitcher
}

type GenerateRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

type StitchRequest struct {
	FilePaths []string `json:"file_paths" binding:"required"`
}

// respondError writes err as {"error", "code"} with the status for its code.
func respondError(c *gin.Context, err error) {
	code := failure.CodeOf(err)
	status := failure.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		log.WithField("path", c.FullPath()).Errorf("Request failed: %v", err)
	}
	c.JSON(status, gin.H{"error": failure.MessageOf(err), "code": code})
}

func badRequest(c *gin.Context, msg string) {
	respondError(c, failure.New(failure.CodeInvalidRequest, "%s", msg))
}

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Manim AI Animation Generator API"})
}

func (h *Handler) Health(c *gin.Context) {
	sqlDB, err := h.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": err.Error()})
		return
	}

	status := gin.H{"status": "healthy", "database": "connected"}
	if h.Redis != nil {
		if err := h.Redis.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "connected", "redis": err.Error()})
			return
		}
		status["redis"] = "connected"
	}
	c.JSON(http.StatusOK, status)
}

// GenerateScene renders synchronously and streams back the video.
func (h *Handler) GenerateScene(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		badRequest(c, "prompt is required")
		return
	}

	log.Infof("Received generation request: %q", req.Prompt)
	result, err := h.Renderer.Generate(c.Request.Context(), req.Prompt)
	if err != nil {
		respondError(c, err)
		return
	}

	if len(result.Fixes) > 0 {
		c.Header("X-Sanitizer-Fixes", strings.Join(result.Fixes, "; "))
	}
	c.Header("X-Job-ID", result.JobID)
	c.FileAttachment(result.ArtifactPath, "animation.mp4")
}

// CreateJob queues a render and returns immediately.
func (h *Handler) CreateJob(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		badRequest(c, "prompt is required")
		return
	}

	job, err := models.NewJob(h.DB, req.Prompt)
	if err != nil {
		respondError(c, failure.Wrap(failure.CodeInternal, err, "could not create job"))
		return
	}

	payload := tasks.SceneRenderPayload{JobID: job.ID, Prompt: job.Prompt}
	if err := h.Queue.Enqueue(c.Request.Context(), tasks.QueueSceneRender, payload); err != nil {
		qerr := failure.Wrap(failure.CodeInternal, err, "could not queue job")
		if markErr := job.MarkFailed(h.DB, qerr); markErr != nil {
			log.WithField("job_id", job.ID).Errorf("Could not record queue failure: %v", markErr)
		}
		respondError(c, qerr)
		return
	}

	log.WithField("job_id", job.ID).Info("Queued scene render")
	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID, "status": job.Status})
}

func (h *Handler) GetJob(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) GetJobVideo(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}

	switch job.Status {
	case models.JobCompleted:
		if job.VideoPath == nil {
			respondError(c, failure.New(failure.CodeArtifactNotFound, "video file not found"))
			return
		}
		c.FileAttachment(*job.VideoPath, "animation.mp4")
	case models.JobFailed:
		code := failure.CodeInternal
		if job.ErrorCode != nil {
			code = failure.Code(*job.ErrorCode)
		}
		msg := "job failed"
		if job.Error != nil {
			msg = *job.Error
		}
		c.JSON(http.StatusConflict, gin.H{"error": msg, "code": code, "status": job.Status})
	default:
		c.JSON(http.StatusConflict, gin.H{"error": "job is still processing", "code": "NOT_READY", "status": job.Status})
	}
}

func (h *Handler) loadJob(c *gin.Context) (*models.Job, bool) {
	job, err := models.FindJob(h.DB, c.Param("id"))
	if errors.Is(err, models.ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found", "code": "NOT_FOUND"})
		return nil, false
	}
	if err != nil {
		respondError(c, failure.Wrap(failure.CodeInternal, err, "could not load job"))
		return nil, false
	}
	return job, true
}

// UploadClip stores one multipart "file" for a later stitch.
func (h *Handler) UploadClip(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "multipart field \"file\" is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, failure.Wrap(failure.CodeInternal, err, "could not read upload"))
		return
	}
	defer f.Close()

	path, err := h.Clips.Save(fh.Filename, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"file_path": path})
}

// StitchStory concatenates uploaded clips and streams back the result.
func (h *Handler) StitchStory(c *gin.Context) {
	var req StitchRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.FilePaths) == 0 {
		badRequest(c, "file_paths must list at least one clip")
		return
	}

	path, err := h.Stitcher.Stitch(c.Request.Context(), req.FilePaths)
	if err != nil {
		respondError(c, err)
		return
	}
	c.FileAttachment(path, "final_story.mp4")
}
