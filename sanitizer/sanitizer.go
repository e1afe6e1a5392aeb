// Package sanitizer turns raw model output into a parseable Manim script.
//
// Repairs are plain text passes rather than AST rewrites: model output is
// often only nearly valid Python, which an AST-based rewrite cannot load.
// The full parser is used once, at the end, as the gate.
package sanitizer

import (
	"context"
	"strings"

	"github.com/drewmudry/manimgen-api/internal/failure"
)

// Sanitize runs DefaultPasses over raw, validates the result and extracts its
// entry point. The returned text always parses; otherwise an error is returned.
func Sanitize(ctx context.Context, raw string) (Script, *Report, error) {
	return SanitizeWith(ctx, raw, DefaultPasses)
}

// SanitizeWith is Sanitize with an explicit pass list.
func SanitizeWith(ctx context.Context, raw string, passes []Pass) (Script, *Report, error) {
	report := NewReport()
	if strings.TrimSpace(raw) == "" {
		return Script{}, report, failure.New(failure.CodeEmptyInput, "AI returned an empty response")
	}

	code := raw
	for _, p := range passes {
		var fixes []string
		code, fixes = p.Apply(code)
		for _, f := range fixes {
			report.Add(f)
		}
		if strings.TrimSpace(code) == "" {
			return Script{}, report, failure.New(failure.CodeEmptyInput, "AI response was empty after %s", p.Name)
		}
	}

	if err := ValidateSyntax(ctx, code); err != nil {
		return Script{}, report, err
	}

	script, err := NewScript(code)
	if err != nil {
		return Script{}, report, err
	}
	return script, report, nil
}
