package stitching

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drewmudry/manimgen-api/internal/failure"
)

func fakeFFmpeg(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

const writesStory = `for a in "$@"; do
  case "$a" in
    *story_*.mp4) printf stitched > "$a" ;;
  esac
done`

func saveClips(t *testing.T, store *Store, names ...string) []string {
	t.Helper()
	var paths []string
	for _, n := range names {
		p, err := store.Save(n, strings.NewReader("clip "+n))
		require.NoError(t, err)
		paths = append(paths, p)
	}
	return paths
}

func TestStore_Save(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "clips"))

	a, err := store.Save("intro.mp4", strings.NewReader("a"))
	require.NoError(t, err)
	b, err := store.Save("../../etc/intro.mp4", strings.NewReader("b"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(a, "_intro.mp4"))
	assert.Equal(t, store.Dir, filepath.Dir(b))

	data, err := os.ReadFile(a)
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))
}

func TestStore_Resolve(t *testing.T) {
	store := NewStore(t.TempDir())
	paths := saveClips(t, store, "a.mp4")

	got, err := store.Resolve(paths[0])
	require.NoError(t, err)
	assert.Equal(t, paths[0], got)

	_, err = store.Resolve(filepath.Join(store.Dir, "missing.mp4"))
	assert.True(t, failure.Is(err, failure.CodeClipNotFound))

	outside := filepath.Join(t.TempDir(), "b.mp4")
	require.NoError(t, os.WriteFile(outside, []byte("b"), 0o644))
	_, err = store.Resolve(outside)
	assert.True(t, failure.Is(err, failure.CodeInvalidRequest))

	_, err = store.Resolve(filepath.Join(store.Dir, "..", "escape.mp4"))
	assert.True(t, failure.Is(err, failure.CodeInvalidRequest))

	_, err = store.Resolve(store.Dir)
	assert.True(t, failure.Is(err, failure.CodeInvalidRequest))
}

func TestArgs(t *testing.T) {
	args := strings.Join(Args([]string{"/c/a.mp4", "/c/b.mp4"}, "/out/story.mp4"), " ")

	assert.Contains(t, args, "-i /c/a.mp4")
	assert.Contains(t, args, "-i /c/b.mp4")
	assert.Contains(t, args, "concat=")
	assert.Contains(t, args, "n=2")
	assert.Contains(t, args, "/out/story.mp4")
	assert.Contains(t, args, "-y")
}

func TestStitch_Success(t *testing.T) {
	store := NewStore(t.TempDir())
	out := t.TempDir()
	st := NewStitcher(store, out)
	st.Binary = fakeFFmpeg(t, writesStory)
	clips := saveClips(t, store, "one.mp4", "two.mp4")

	path, err := st.Stitch(context.Background(), clips)
	require.NoError(t, err)

	assert.Equal(t, out, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "story_"))
	assert.FileExists(t, path)
	for _, c := range clips {
		assert.NoFileExists(t, c)
	}
}

func TestStitch_FFmpegFailureStillRemovesClips(t *testing.T) {
	store := NewStore(t.TempDir())
	st := NewStitcher(store, t.TempDir())
	st.Binary = fakeFFmpeg(t, `echo "Invalid data found when processing input" >&2; exit 1`)
	clips := saveClips(t, store, "one.mp4", "two.mp4")

	_, err := st.Stitch(context.Background(), clips)
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.CodeStitchFailed))
	for _, c := range clips {
		assert.NoFileExists(t, c)
	}
	entries, _ := os.ReadDir(st.OutputDir)
	assert.Empty(t, entries)
}

func TestStitch_MissingClipLeavesOthers(t *testing.T) {
	store := NewStore(t.TempDir())
	st := NewStitcher(store, t.TempDir())
	st.Binary = fakeFFmpeg(t, writesStory)
	clips := saveClips(t, store, "one.mp4", "two.mp4")

	requested := []string{clips[0], filepath.Join(store.Dir, "gone.mp4"), clips[1]}
	_, err := st.Stitch(context.Background(), requested)
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.CodeClipNotFound))
	for _, c := range clips {
		assert.FileExists(t, c)
	}
	entries, _ := os.ReadDir(st.OutputDir)
	assert.Empty(t, entries)
}

func TestStitch_OutsidePathIsNotDeleted(t *testing.T) {
	store := NewStore(t.TempDir())
	st := NewStitcher(store, t.TempDir())
	st.Binary = fakeFFmpeg(t, writesStory)

	outside := filepath.Join(t.TempDir(), "keep.mp4")
	require.NoError(t, os.WriteFile(outside, []byte("keep"), 0o644))

	_, err := st.Stitch(context.Background(), []string{outside})
	assert.True(t, failure.Is(err, failure.CodeInvalidRequest))
	assert.FileExists(t, outside)
}

func TestStitch_Empty(t *testing.T) {
	st := NewStitcher(NewStore(t.TempDir()), t.TempDir())
	_, err := st.Stitch(context.Background(), nil)
	assert.True(t, failure.Is(err, failure.CodeInvalidRequest))
}

func TestStitch_RealFFmpeg(t *testing.T) {
	bin, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}
	store := NewStore(t.TempDir())
	var clips []string
	for _, name := range []string{"a.mp4", "b.mp4"} {
		p := filepath.Join(store.Dir, name)
		gen := exec.Command(bin, "-y", "-f", "lavfi", "-i", "testsrc=duration=1:size=64x64:rate=10", "-pix_fmt", "yuv420p", p)
		require.NoError(t, gen.Run())
		clips = append(clips, p)
	}

	st := NewStitcher(store, t.TempDir())
	st.Binary = bin
	path, err := st.Stitch(context.Background(), clips)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
