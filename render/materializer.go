package render

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/drewmudry/manimgen-api/internal/failure"
	"github.com/drewmudry/manimgen-api/sanitizer"
)

// ScriptHandle identifies one materialized script.
type ScriptHandle struct {
	// JobID is unique per render and appears in the script's file name.
	JobID string

	// Path is the absolute location of the script file.
	Path string

	// Stem is the file name without extension; the engine keys its output on it.
	Stem string

	// EntryPoint is the scene class to render.
	EntryPoint string
}

// Releaser removes a materialized script. Release must not fail the job.
type Releaser interface {
	Release(h *ScriptHandle)
}

// Materializer writes sanitized scripts into a scratch directory
// that is kept apart from the service's own source tree.
type Materializer struct {
	ScratchDir string
}

func NewMaterializer(scratchDir string) *Materializer {
	return &Materializer{ScratchDir: scratchDir}
}

// Materialize writes script to scene_<uuid>.py and returns its handle.
func (m *Materializer) Materialize(script sanitizer.Script) (*ScriptHandle, error) {
	if err := os.MkdirAll(m.ScratchDir, 0o755); err != nil {
		return nil, failure.Wrap(failure.CodeInternal, err, "could not prepare scratch directory")
	}
	dir, err := filepath.Abs(m.ScratchDir)
	if err != nil {
		return nil, failure.Wrap(failure.CodeInternal, err, "could not resolve scratch directory")
	}

	jobID := uuid.NewString()
	name := fmt.Sprintf("scene_%s.py", jobID)
	h := &ScriptHandle{
		JobID:      jobID,
		Path:       filepath.Join(dir, name),
		Stem:       strings.TrimSuffix(name, filepath.Ext(name)),
		EntryPoint: script.EntryPoint,
	}

	f, err := os.OpenFile(h.Path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, failure.Wrap(failure.CodeInternal, err, "could not create script file")
	}
	if _, err := f.WriteString(script.Source); err != nil {
		f.Close()
		os.Remove(h.Path)
		return nil, failure.Wrap(failure.CodeInternal, err, "could not write script file")
	}
	if err := f.Close(); err != nil {
		os.Remove(h.Path)
		return nil, failure.Wrap(failure.CodeInternal, err, "could not write script file")
	}
	return h, nil
}

// Release deletes the script file. Errors are logged, never returned.
func (m *Materializer) Release(h *ScriptHandle) {
	if h == nil {
		return
	}
	if err := os.Remove(h.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithFields(log.Fields{"job_id": h.JobID, "path": h.Path}).
			Warnf("Could not delete script file: %v", err)
	}
}
