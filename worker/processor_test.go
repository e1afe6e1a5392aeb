package worker

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/drewmudry/manimgen-api/internal/failure"
	"github.com/drewmudry/manimgen-api/models"
	"github.com/drewmudry/manimgen-api/render"
	"github.com/drewmudry/manimgen-api/tasks"
)

type stubRenderer struct {
	mu      sync.Mutex
	prompts []string
	result  *render.Result
	err     error
}

func (s *stubRenderer) Generate(_ context.Context, prompt string) (*render.Result, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	return s.result, s.err
}

func newTestProcessor(t *testing.T, r Renderer) (*Processor, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "jobs.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	p := NewProcessor(db, rdb, r)
	p.PopTimeout = 100 * time.Millisecond
	return p, mr
}

func TestEnqueue_PushesJSONPayload(t *testing.T) {
	p, mr := newTestProcessor(t, &stubRenderer{})

	require.NoError(t, p.Enqueue(context.Background(), tasks.QueueSceneRender,
		tasks.SceneRenderPayload{JobID: "abc", Prompt: "a circle"}))

	items, err := mr.List(tasks.QueueSceneRender)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.JSONEq(t, `{"job_id":"abc","prompt":"a circle"}`, items[0])
}

func TestListen_DispatchesAndStopsOnCancel(t *testing.T) {
	p, _ := newTestProcessor(t, &stubRenderer{})

	got := make(chan string, 1)
	p.Register("q_test", func(_ context.Context, payload string) error {
		got <- payload
		return nil
	})
	assert.Equal(t, []string{"q_test"}, p.Queues())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx, 2, "q_test")
		close(done)
	}()

	require.NoError(t, p.Enqueue(ctx, "q_test", map[string]string{"hello": "world"}))
	select {
	case payload := <-got:
		assert.JSONEq(t, `{"hello":"world"}`, payload)
	case <-time.After(5 * time.Second):
		t.Fatal("task was not dispatched")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("listeners did not stop after cancel")
	}
}

func TestHandleSceneRender_Completed(t *testing.T) {
	renderer := &stubRenderer{result: &render.Result{ArtifactPath: "/media/videos/scene_1/480p15/A.mp4"}}
	p, _ := newTestProcessor(t, renderer)

	job, err := models.NewJob(p.DB, "a circle")
	require.NoError(t, err)
	payload, err := tasks.Marshal(tasks.SceneRenderPayload{JobID: job.ID, Prompt: job.Prompt})
	require.NoError(t, err)

	require.NoError(t, p.HandleSceneRender(context.Background(), payload))

	got, err := models.FindJob(p.DB, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, got.Status)
	assert.Equal(t, "/media/videos/scene_1/480p15/A.mp4", *got.VideoPath)
	assert.Equal(t, []string{"a circle"}, renderer.prompts)
}

func TestHandleSceneRender_Failed(t *testing.T) {
	renderer := &stubRenderer{err: failure.New(failure.CodeInvalidSyntax, "invalid syntax near \"(\"")}
	p, _ := newTestProcessor(t, renderer)

	job, err := models.NewJob(p.DB, "a circle")
	require.NoError(t, err)
	payload, err := tasks.Marshal(tasks.SceneRenderPayload{JobID: job.ID})
	require.NoError(t, err)

	err = p.HandleSceneRender(context.Background(), payload)
	assert.True(t, failure.Is(err, failure.CodeInvalidSyntax))

	got, err := models.FindJob(p.DB, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, got.Status)
	assert.Equal(t, "INVALID_SYNTAX", *got.ErrorCode)
	// Prompt falls back to the stored one.
	assert.Equal(t, []string{"a circle"}, renderer.prompts)
}

func TestHandleSceneRender_BadInput(t *testing.T) {
	p, _ := newTestProcessor(t, &stubRenderer{})

	assert.Error(t, p.HandleSceneRender(context.Background(), "{not json"))
	assert.ErrorIs(t, p.HandleSceneRender(context.Background(), `{"job_id":"missing"}`), models.ErrJobNotFound)
}

func TestHandleSceneRender_SkipsFinishedJob(t *testing.T) {
	renderer := &stubRenderer{}
	p, _ := newTestProcessor(t, renderer)

	job, err := models.NewJob(p.DB, "x")
	require.NoError(t, err)
	require.NoError(t, job.MarkCompleted(p.DB, "/tmp/x.mp4"))

	payload, _ := tasks.Marshal(tasks.SceneRenderPayload{JobID: job.ID})
	require.NoError(t, p.HandleSceneRender(context.Background(), payload))
	assert.Empty(t, renderer.prompts)
}
