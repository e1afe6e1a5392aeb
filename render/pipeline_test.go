package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drewmudry/manimgen-api/internal/failure"
)

const writesVideo = `stem=$(basename "$1" .py)
mkdir -p "media/videos/$stem/480p15"
printf video > "media/videos/$stem/480p15/$2.mp4"`

type stubGenerator struct {
	code string
	err  error
}

func (g stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.code, g.err
}

func newTestPipeline(t *testing.T, engine string, timeout time.Duration) (*Pipeline, string) {
	t.Helper()
	work := t.TempDir()
	scratch := filepath.Join(work, "temp_scenes")
	p := NewPipeline(Options{
		ScratchDir: scratch,
		MediaRoot:  filepath.Join(work, "media"),
		WorkDir:    work,
		Command:    fakeEngine(t, engine),
		Timeout:    timeout,
	}, nil)
	p.Invoker.WaitDelay = 200 * time.Millisecond
	return p, scratch
}

func scratchFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRun_Success(t *testing.T) {
	p, scratch := newTestPipeline(t, writesVideo, time.Minute)
	raw := "```python\nclass Foo(Scene):\n    def construct(self):\n        self.play(GrowArrow(Arrow()))\n```"

	res, err := p.Run(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "Foo", res.EntryPoint)
	assert.FileExists(t, res.ArtifactPath)
	assert.Equal(t, "Foo.mp4", filepath.Base(res.ArtifactPath))
	assert.Contains(t, res.ArtifactPath, res.JobID)
	assert.Contains(t, res.Fixes, "Replaced GrowArrow with Create")
	assert.Empty(t, scratchFiles(t, scratch))
}

func TestRun_EmptyInputWritesNothing(t *testing.T) {
	p, scratch := newTestPipeline(t, writesVideo, time.Minute)

	_, err := p.Run(context.Background(), "   \n\t")
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.CodeEmptyInput))
	assert.Empty(t, scratchFiles(t, scratch))
}

func TestRun_InvalidSyntaxNeverInvokesEngine(t *testing.T) {
	p, scratch := newTestPipeline(t, "echo invoked > invoked.txt", time.Minute)

	_, err := p.Run(context.Background(), "class Foo(Scene:\n    pass\n")
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.CodeInvalidSyntax), "got %v", err)
	assert.NoFileExists(t, filepath.Join(p.Invoker.Dir, "invoked.txt"))
	assert.Empty(t, scratchFiles(t, scratch))
}

func TestRun_TimeoutRemovesScript(t *testing.T) {
	p, scratch := newTestPipeline(t, "exec sleep 5", 200*time.Millisecond)

	_, err := p.Run(context.Background(), sceneSource)
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.CodeRenderTimeout), "got %v", err)
	assert.Empty(t, scratchFiles(t, scratch))
}

func TestRun_ArtifactMissing(t *testing.T) {
	p, _ := newTestPipeline(t, "exit 0", time.Minute)

	_, err := p.Run(context.Background(), sceneSource)
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.CodeArtifactNotFound))
}

func TestGenerate(t *testing.T) {
	t.Run("renders generated code", func(t *testing.T) {
		p, _ := newTestPipeline(t, writesVideo, time.Minute)
		p.Generator = stubGenerator{code: sceneSource}

		res, err := p.Generate(context.Background(), "a circle")
		require.NoError(t, err)
		assert.FileExists(t, res.ArtifactPath)
	})

	t.Run("wraps generator errors", func(t *testing.T) {
		p, _ := newTestPipeline(t, writesVideo, time.Minute)
		p.Generator = stubGenerator{err: errors.New("connection refused")}

		_, err := p.Generate(context.Background(), "a circle")
		require.Error(t, err)
		assert.True(t, failure.Is(err, failure.CodeGenerationFailed))
	})

	t.Run("no generator", func(t *testing.T) {
		p, _ := newTestPipeline(t, writesVideo, time.Minute)

		_, err := p.Generate(context.Background(), "a circle")
		assert.True(t, failure.Is(err, failure.CodeGenerationFailed))
	})
}
