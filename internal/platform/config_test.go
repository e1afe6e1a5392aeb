package platform

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drewmudry/manimgen-api/models"
	"github.com/drewmudry/manimgen-api/render"
)

var configKeys = []string{
	"LLM_API_ENDPOINT", "LLM_API_KEY", "LLM_MODEL", "LLM_PROVIDER", "PROMPTS_FILE",
	"WORK_DIR", "SCRATCH_DIR", "MEDIA_ROOT", "CLIP_DIR",
	"RENDER_COMMAND", "RENDER_QUALITY", "RENDER_TIMEOUT", "GENERATE_TIMEOUT",
	"DATABASE_URL", "REDIS_URL", "PORT", "FRONTEND_URLS", "JWT_SECRET", "WORKER_CONCURRENCY",
	"SCRATCH_MAX_AGE", "CLIP_MAX_AGE", "JOB_STALE_AFTER", "LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	work := t.TempDir()
	t.Setenv("WORK_DIR", work)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434/v1", cfg.APIEndpoint)
	assert.Equal(t, "codellama:7b", cfg.ModelName)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, filepath.Join(work, "temp_scenes"), cfg.ScratchDir)
	assert.Equal(t, filepath.Join(work, "media"), cfg.MediaRoot)
	assert.Equal(t, filepath.Join(work, "media", "temp_clips"), cfg.ClipDir)
	assert.Equal(t, []string{"manim"}, cfg.RenderCommand)
	assert.Equal(t, render.QualityLow, cfg.RenderQuality)
	assert.Equal(t, 5*time.Minute, cfg.RenderTimeout)
	assert.Equal(t, 180*time.Second, cfg.GenerateTimeout)
	assert.Equal(t, 1, cfg.WorkerConcurrency)
	assert.Equal(t, time.Hour, cfg.ScratchMaxAge)
	assert.Equal(t, 24*time.Hour, cfg.ClipMaxAge)
	assert.Equal(t, 15*time.Minute, cfg.JobStaleAfter)
	assert.Len(t, cfg.FrontendURLs, 2)
	assert.False(t, cfg.UsesSQLite())
	assert.Contains(t, cfg.SystemInstruction, "Manim Community Edition")
	assert.Len(t, cfg.FewShotExamples, 4)
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("RENDER_COMMAND", "python3 -m manim")
	t.Setenv("RENDER_QUALITY", "high")
	t.Setenv("RENDER_TIMEOUT", "90")
	t.Setenv("JOB_STALE_AFTER", "2m")
	t.Setenv("WORKER_CONCURRENCY", "4")
	t.Setenv("FRONTEND_URLS", " https://a.example , ,https://b.example")
	t.Setenv("DATABASE_URL", "sqlite:jobs.db")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"python3", "-m", "manim"}, cfg.RenderCommand)
	assert.Equal(t, render.QualityHigh, cfg.RenderQuality)
	assert.Equal(t, 90*time.Second, cfg.RenderTimeout)
	assert.Equal(t, 2*time.Minute, cfg.JobStaleAfter)
	assert.Equal(t, 4, cfg.WorkerConcurrency)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.FrontendURLs)
	assert.True(t, cfg.UsesSQLite())

	opts := cfg.RenderOptions()
	assert.Equal(t, cfg.ScratchDir, opts.ScratchDir)
	assert.Equal(t, cfg.RenderCommand, opts.Command)
	assert.Equal(t, render.QualityHigh, opts.Quality)
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"RENDER_QUALITY":     "ultra",
		"RENDER_TIMEOUT":     "soon",
		"WORKER_CONCURRENCY": "0",
		"PROMPTS_FILE":       "/does/not/exist.yaml",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestUsesSQLite(t *testing.T) {
	for url, want := range map[string]bool{
		"sqlite:jobs.db":                     true,
		"file:jobs?mode=memory":              true,
		"/var/lib/manimgen/jobs.db":          true,
		"postgres://u:p@localhost:5432/jobs": false,
	} {
		assert.Equal(t, want, (&Config{DatabaseURL: url}).UsesSQLite(), url)
	}
}

func TestLoadPrompts(t *testing.T) {
	p, err := LoadPrompts("")
	require.NoError(t, err)
	require.Len(t, p.Examples, 4)
	assert.Equal(t, "Show a blue circle turning into a red square.", p.Examples[0].Prompt)
	assert.Contains(t, p.Examples[0].Code, "class CircleToSquare(Scene):")

	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("system: Only code.\nexamples:\n  - prompt: dot\n    code: \"class A(Scene): pass\"\n"), 0o644))
	p, err = LoadPrompts(path)
	require.NoError(t, err)
	assert.Equal(t, "Only code.", p.System)
	assert.Len(t, p.Examples, 1)

	require.NoError(t, os.WriteFile(path, []byte("system: Only code.\nexamples:\n  - prompt: dot\n"), 0o644))
	_, err = LoadPrompts(path)
	assert.Error(t, err)
}

func TestNewDBConnection_SQLite(t *testing.T) {
	cfg := &Config{DatabaseURL: "sqlite:" + filepath.Join(t.TempDir(), "jobs.db"), LogLevel: "info"}

	db, err := NewDBConnection(cfg)
	require.NoError(t, err)
	assert.True(t, db.Migrator().HasTable(&models.Job{}))
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := NewRedisClient(&Config{RedisURL: mr.Addr()})
	require.NoError(t, err)
	defer rdb.Close()

	rdb2, err := NewRedisClient(&Config{RedisURL: "redis://" + mr.Addr() + "/0"})
	require.NoError(t, err)
	defer rdb2.Close()

	_, err = NewRedisClient(&Config{RedisURL: "redis://" + mr.Addr() + "/not-a-db"})
	assert.Error(t, err)
}
