package platform

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// FewShotExample is one prompt and the script the model should answer with.
type FewShotExample struct {
	Prompt string `yaml:"prompt"`
	Code   string `yaml:"code"`
}

// Prompts is the instruction set sent ahead of every generation request.
type Prompts struct {
	System   string           `yaml:"system"`
	Examples []FewShotExample `yaml:"examples"`
}

// LoadPrompts reads prompts from path, or the built-in set when path is empty.
func LoadPrompts(path string) (*Prompts, error) {
	data := defaultPrompts
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read prompts file: %w", err)
		}
		data = b
	}

	var p Prompts
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	if strings.TrimSpace(p.System) == "" {
		return nil, fmt.Errorf("prompts: system instruction is empty")
	}
	for i, ex := range p.Examples {
		if strings.TrimSpace(ex.Prompt) == "" || strings.TrimSpace(ex.Code) == "" {
			return nil, fmt.Errorf("prompts: example %d needs both prompt and code", i+1)
		}
	}
	return &p, nil
}
