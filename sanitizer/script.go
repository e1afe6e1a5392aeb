package sanitizer

import (
	"regexp"

	"github.com/drewmudry/manimgen-api/internal/failure"
)

// sceneClass matches the first class deriving from Scene or one of its
// variants (ThreeDScene, MovingCameraScene, manim.Scene, ...).
var sceneClass = regexp.MustCompile(`class\s+(\w+)\s*\(\s*[\w.]*Scene\s*\)\s*:`)

// Script is sanitized source plus the scene the engine must be told to render.
type Script struct {
	Source     string
	EntryPoint string
}

// NewScript extracts the entry point from source.
func NewScript(source string) (Script, error) {
	name, err := EntryPoint(source)
	if err != nil {
		return Script{}, err
	}
	return Script{Source: source, EntryPoint: name}, nil
}

// EntryPoint returns the name of the first scene class in source.
func EntryPoint(source string) (string, error) {
	m := sceneClass.FindStringSubmatch(source)
	if m == nil {
		return "", failure.New(failure.CodeEntryPointNotFound, "could not detect a Scene class in the generated code")
	}
	return m[1], nil
}
