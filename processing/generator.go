// Package processing talks to the code-generation model.
package processing

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	log "github.com/sirupsen/logrus"

	"github.com/drewmudry/manimgen-api/internal/failure"
	"github.com/drewmudry/manimgen-api/internal/platform"
)

// Sampling is kept low so the model sticks to the example patterns.
const (
	defaultTemperature = 0.2
	defaultTopP        = 0.95
)

// Generator turns a natural-language prompt into raw script text. The text is
// untrusted and must be sanitized before use.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// NewGenerator picks the implementation named by cfg.Provider.
func NewGenerator(cfg *platform.Config) (Generator, error) {
	switch cfg.Provider {
	case "mock":
		log.Warn("Using mock code generator")
		return MockGenerator{}, nil
	case "", "openai", "ollama":
		return NewOpenAIGenerator(cfg)
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.Provider)
	}
}

// OpenAIGenerator calls any OpenAI-compatible chat completions endpoint.
type OpenAIGenerator struct {
	client      openai.Client
	Model       string
	System      string
	Examples    []platform.FewShotExample
	Temperature float64
	TopP        float64
}

// NewOpenAIGenerator builds a client from cfg. Extra options are appended after
// the ones derived from cfg.
func NewOpenAIGenerator(cfg *platform.Config, extra ...option.RequestOption) (*OpenAIGenerator, error) {
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("LLM_MODEL is required")
	}
	if cfg.SystemInstruction == "" {
		return nil, fmt.Errorf("system instruction is empty")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.APIEndpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.APIEndpoint))
	}
	if cfg.GenerateTimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.GenerateTimeout))
	}
	opts = append(opts, extra...)

	return &OpenAIGenerator{
		client:      openai.NewClient(opts...),
		Model:       cfg.ModelName,
		System:      cfg.SystemInstruction,
		Examples:    cfg.FewShotExamples,
		Temperature: defaultTemperature,
		TopP:        defaultTopP,
	}, nil
}

// Messages returns the conversation sent for prompt: the system instruction,
// each example as a user/assistant pair, then the prompt itself.
func (g *OpenAIGenerator) Messages(prompt string) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, 2+2*len(g.Examples))
	msgs = append(msgs, openai.SystemMessage(g.System))
	for _, ex := range g.Examples {
		msgs = append(msgs,
			openai.UserMessage(ex.Prompt),
			openai.AssistantMessage(ex.Code),
		)
	}
	return append(msgs, openai.UserMessage(prompt))
}

// Generate returns the model's reply verbatim. An empty reply is not an error
// here; the sanitizer rejects it.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", failure.New(failure.CodeInvalidRequest, "prompt is empty")
	}

	entry := log.WithField("model", g.Model)
	entry.Infof("Requesting code for prompt: %q", prompt)

	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(g.Model),
		Messages:    g.Messages(prompt),
		Temperature: openai.Float(g.Temperature),
		TopP:        openai.Float(g.TopP),
	})
	if err != nil {
		entry.Errorf("Code generation request failed: %v", err)
		return "", failure.Wrap(failure.CodeGenerationFailed, err, "code generation request failed")
	}
	if len(completion.Choices) == 0 {
		return "", failure.New(failure.CodeGenerationFailed, "code generation returned no choices")
	}

	content := completion.Choices[0].Message.Content
	entry.Debugf("--- AI RAW RESPONSE ---\n%s\n---", content)
	return content, nil
}
