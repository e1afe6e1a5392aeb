package stitching

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/drewmudry/manimgen-api/internal/failure"
)

// Stitcher concatenates stored clips, video only, into one file.
type Stitcher struct {
	Store *Store

	// OutputDir receives story_<uuid>.mp4 files.
	OutputDir string

	// Binary is the ffmpeg executable.
	Binary string

	Timeout time.Duration
}

func NewStitcher(store *Store, outputDir string) *Stitcher {
	return &Stitcher{
		Store:     store,
		OutputDir: outputDir,
		Binary:    "ffmpeg",
		Timeout:   10 * time.Minute,
	}
}

// Args returns the ffmpeg arguments that concatenate inputs into output.
func Args(inputs []string, output string) []string {
	streams := make([]*ffmpeg.Stream, 0, len(inputs))
	for _, in := range inputs {
		streams = append(streams, ffmpeg.Input(in))
	}
	return ffmpeg.Concat(streams, ffmpeg.KwArgs{"v": 1, "a": 0}).
		Output(output).
		OverWriteOutput().
		GetArgs()
}

// Stitch concatenates paths in order and returns the output file. If any path
// fails to resolve nothing is touched. Otherwise every input is removed before
// Stitch returns, whether or not the concat succeeded.
func (s *Stitcher) Stitch(ctx context.Context, paths []string) (string, error) {
	if len(paths) == 0 {
		return "", failure.New(failure.CodeInvalidRequest, "no clips to stitch")
	}

	inputs := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := s.Store.Resolve(p)
		if err != nil {
			return "", err
		}
		inputs = append(inputs, abs)
	}
	defer s.cleanup(inputs)

	if err := os.MkdirAll(s.OutputDir, 0o755); err != nil {
		return "", failure.Wrap(failure.CodeInternal, err, "could not prepare output directory")
	}
	output := filepath.Join(s.OutputDir, fmt.Sprintf("story_%s.mp4", uuid.NewString()))

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	args := Args(inputs, output)
	cmd := exec.CommandContext(ctx, s.Binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	entry := log.WithField("clips", len(inputs))
	entry.Infof("Stitching clips: %s %s", s.Binary, strings.Join(args, " "))

	if err := cmd.Run(); err != nil {
		os.Remove(output)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", failure.Wrap(failure.CodeStitchFailed, ctx.Err(), "stitching timed out")
		}
		entry.Errorf("ffmpeg failed: %v\n%s", err, stderr.String())
		return "", failure.Wrap(failure.CodeStitchFailed, err, "could not stitch clips")
	}
	if _, err := os.Stat(output); err != nil {
		return "", failure.Wrap(failure.CodeStitchFailed, err, "ffmpeg produced no output")
	}

	entry.WithField("path", output).Info("Stitched story")
	return output, nil
}

func (s *Stitcher) cleanup(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.WithField("path", p).Warnf("Could not delete clip: %v", err)
		}
	}
}
