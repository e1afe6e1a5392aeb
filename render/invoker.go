package render

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/drewmudry/manimgen-api/internal/failure"
)

// DefaultTimeout is the hard wall-clock bound on one render.
const DefaultTimeout = 5 * time.Minute

// RawResult is what the engine process left behind.
type RawResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Combined string
	Elapsed  time.Duration
}

// Invoker runs the rendering engine against one materialized script.
type Invoker struct {
	// Command is the engine prefix, e.g. ["manim"] or ["python3", "-m", "manim"].
	Command []string

	// Dir is the working directory; the engine writes its media tree below it.
	Dir string

	Timeout time.Duration

	// WaitDelay bounds how long output pipes are drained after the process is killed.
	WaitDelay time.Duration

	// Releaser removes the script once the process is gone.
	Releaser Releaser
}

func NewInvoker(command []string, dir string, timeout time.Duration, releaser Releaser) *Invoker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Invoker{
		Command:   command,
		Dir:       dir,
		Timeout:   timeout,
		WaitDelay: 5 * time.Second,
		Releaser:  releaser,
	}
}

// Invoke runs `<command...> <script> <entry point> <quality>` and classifies the
// outcome. The script is released exactly once on every return path.
func (inv *Invoker) Invoke(ctx context.Context, h *ScriptHandle, quality Quality) (*RawResult, error) {
	defer inv.Releaser.Release(h)

	if len(inv.Command) == 0 {
		return nil, failure.New(failure.CodeRenderFailed, "no render command configured")
	}
	if quality == "" {
		quality = DefaultQuality
	}

	ctx, cancel := context.WithTimeout(ctx, inv.Timeout)
	defer cancel()

	args := append(append([]string{}, inv.Command[1:]...), h.Path, h.EntryPoint, string(quality))
	cmd := exec.CommandContext(ctx, inv.Command[0], args...)
	cmd.Dir = inv.Dir
	cmd.Env = os.Environ()
	cmd.WaitDelay = inv.WaitDelay

	// os/exec copies stdout and stderr on separate goroutines.
	var stdout, stderr, combined bytes.Buffer
	shared := &syncWriter{w: &combined}
	cmd.Stdout = io.MultiWriter(&stdout, shared)
	cmd.Stderr = io.MultiWriter(&stderr, shared)

	entry := log.WithFields(log.Fields{"job_id": h.JobID, "scene": h.EntryPoint})
	entry.Infof("Running render command: %s", strings.Join(cmd.Args, " "))

	start := time.Now()
	err := cmd.Run()
	res := &RawResult{
		ExitCode: -1,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Combined: combined.String(),
		Elapsed:  time.Since(start),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if timedOut(err, ctx.Err()) {
		entry.WithField("elapsed", res.Elapsed).Error("Render timed out")
		return res, &failure.Error{
			Code:    failure.CodeRenderTimeout,
			Message: "rendering timed out after " + inv.Timeout.String(),
			Err:     ctx.Err(),
		}
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			entry.Errorf("Render command could not start: %v", err)
			return res, failure.Wrap(failure.CodeRenderFailed, err, "render engine could not be started")
		}
		entry.WithField("exit_code", res.ExitCode).Errorf("Render failed. Output:\n%s", res.Combined)
		return res, failure.Wrap(failure.CodeRenderFailed, err, "render failed: "+lastDiagnostic(res))
	}

	entry.WithField("elapsed", res.Elapsed).Info("Render completed")
	return res, nil
}

// timedOut reports whether a failed run was ended by the render deadline. A
// run that exited cleanly is a success even if the deadline passed as it did.
func timedOut(runErr, ctxErr error) bool {
	return runErr != nil && errors.Is(ctxErr, context.DeadlineExceeded)
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// lastDiagnostic picks the last non-empty stderr line, falling back to the
// combined output.
func lastDiagnostic(res *RawResult) string {
	for _, text := range []string{res.Stderr, res.Combined} {
		if line := lastNonEmptyLine(text); line != "" {
			return line
		}
	}
	return "unknown render error"
}

func lastNonEmptyLine(text string) string {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
