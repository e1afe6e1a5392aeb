package generation

import (
	"github.com/gin-gonic/gin"

	"github.com/drewmudry/manimgen-api/auth"
)

// CORSMiddleware echoes the request origin when it is in allowed.
func CORSMiddleware(allowed []string) gin.HandlerFunc {
	origins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		origins[o] = true
	}
	return func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origins["*"] || origins[origin] {
			if origin == "" {
				origin = "*"
			}
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Job-ID, X-Sanitizer-Fixes")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

// RegisterRoutes mounts every endpoint on r. Mutating routes require a bearer
// token when jwtSecret is set.
func (h *Handler) RegisterRoutes(r gin.IRouter, jwtSecret string) {
	// Public routes
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/jobs/:id", h.GetJob)
	r.GET("/jobs/:id/video", h.GetJobVideo)

	protected := r.Group("")
	protected.Use(auth.BearerMiddleware(jwtSecret))
	{
		protected.POST("/generate-scene/", h.GenerateScene)
		protected.POST("/jobs", h.CreateJob)
		protected.POST("/upload-clip/", h.UploadClip)
		protected.POST("/stitch-story/", h.StitchStory)
	}
}
