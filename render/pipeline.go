// Package render materializes sanitized scripts, runs the rendering engine on
// them and locates the video it produced.
package render

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/drewmudry/manimgen-api/internal/failure"
	"github.com/drewmudry/manimgen-api/sanitizer"
)

// CodeGenerator turns a prompt into raw, unsanitized script text.
type CodeGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Options configures a Pipeline.
type Options struct {
	ScratchDir string
	MediaRoot  string
	WorkDir    string
	Command    []string
	Timeout    time.Duration
	Quality    Quality
}

// Result is a successful render. The artifact at ArtifactPath belongs to the caller.
type Result struct {
	JobID        string        `json:"job_id"`
	EntryPoint   string        `json:"entry_point"`
	ArtifactPath string        `json:"artifact_path"`
	Fixes        []string      `json:"fixes,omitempty"`
	Elapsed      time.Duration `json:"elapsed"`
}

// Pipeline sequences sanitize, materialize, invoke and locate for one job.
type Pipeline struct {
	Generator    CodeGenerator
	Materializer *Materializer
	Invoker      *Invoker
	Locator      *Locator
	Quality      Quality
}

// NewPipeline wires the stages from opts. gen may be nil when only Run is used.
func NewPipeline(opts Options, gen CodeGenerator) *Pipeline {
	quality := opts.Quality
	if quality == "" {
		quality = DefaultQuality
	}
	command := opts.Command
	if len(command) == 0 {
		command = []string{"manim"}
	}
	m := NewMaterializer(opts.ScratchDir)
	return &Pipeline{
		Generator:    gen,
		Materializer: m,
		Invoker:      NewInvoker(command, opts.WorkDir, opts.Timeout, m),
		Locator:      NewLocator(opts.MediaRoot),
		Quality:      quality,
	}
}

// Generate asks the generator for a script and renders it.
func (p *Pipeline) Generate(ctx context.Context, prompt string) (*Result, error) {
	if p.Generator == nil {
		return nil, failure.New(failure.CodeGenerationFailed, "no code generator configured")
	}
	raw, err := p.Generator.Generate(ctx, prompt)
	if err != nil {
		var fe *failure.Error
		if errors.As(err, &fe) {
			return nil, err
		}
		log.Errorf("Code generation failed: %v", err)
		return nil, failure.Wrap(failure.CodeGenerationFailed, err, "could not get code from the generation model")
	}
	return p.Run(ctx, raw)
}

// Run renders raw model output. Any stage failure ends the run with a
// *failure.Error; nothing is retried.
func (p *Pipeline) Run(ctx context.Context, raw string) (*Result, error) {
	start := time.Now()

	script, report, err := sanitizer.Sanitize(ctx, raw)
	if report.Len() > 0 {
		log.Warnf("AUTO-FIXES APPLIED: %s", strings.Join(report.Fixes(), ", "))
	}
	if err != nil {
		log.WithField("code", failure.CodeOf(err)).Errorf("Generated code rejected: %v", err)
		log.Debugf("--- REJECTED CODE ---\n%s\n---", raw)
		return nil, err
	}

	h, err := p.Materializer.Materialize(script)
	if err != nil {
		return nil, err
	}

	if _, err := p.Invoker.Invoke(ctx, h, p.Quality); err != nil {
		return nil, err
	}

	path, err := p.Locator.Locate(h, p.Quality)
	if err != nil {
		log.WithField("job_id", h.JobID).Error("Render succeeded but no video was found")
		return nil, err
	}

	res := &Result{
		JobID:        h.JobID,
		EntryPoint:   h.EntryPoint,
		ArtifactPath: path,
		Fixes:        report.Fixes(),
		Elapsed:      time.Since(start),
	}
	log.WithFields(log.Fields{"job_id": h.JobID, "path": path}).Info("Render pipeline finished")
	return res, nil
}
