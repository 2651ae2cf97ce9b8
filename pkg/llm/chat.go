package llm

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/tmc/langchaingo/llms"
)

// GenerationErrorFormat is the user-facing answer returned when the model call fails.
const GenerationErrorFormat = "Error generating answer: %v"

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Temperature    float64
	MaxTokens      int
	Language       string
	SystemTemplate string // overrides the rendered SystemPrompt when set
	Logger         *log.Logger
}

// ChatEngine is an engine that uses an LLM to answer questions about CVs.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
	logger *log.Logger
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(model llms.Model, config ChatConfig) (*ChatEngine, error) {
	if model == nil {
		return nil, fmt.Errorf("model is required")
	}
	// Validate and set default values for config fields if necessary
	if config.Temperature == 0 {
		config.Temperature = 0.3
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2048
	}
	if config.Language == "" {
		config.Language = "Vietnamese"
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = SystemPrompt(config.Language)
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	return &ChatEngine{
		config: config,
		llm:    model,
		logger: config.Logger,
	}, nil
}

// Generate answers query from the retrieved CV context. A failed model call yields a
// readable error answer instead of an error value.
func (ce *ChatEngine) Generate(ctx context.Context, query, cvContext string) string {
	return ce.generate(ctx, query, cvContext)
}

// GenerateStream is Generate with every streamed token passed to onChunk.
func (ce *ChatEngine) GenerateStream(ctx context.Context, query, cvContext string, onChunk func(string)) string {
	return ce.generate(ctx, query, cvContext, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
		onChunk(string(chunk))
		return nil
	}))
}

func (ce *ChatEngine) generate(ctx context.Context, query, cvContext string, extra ...llms.CallOption) string {
	// System instruction and question travel as one message; not every
	// provider accepts a separate system role.
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, ce.config.SystemTemplate+"\n\n"+AnswerPrompt(query, cvContext)),
	}

	options := append([]llms.CallOption{
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
	}, extra...)

	response, err := ce.llm.GenerateContent(ctx, content, options...)
	if err != nil {
		ce.logger.Error("answer generation failed", "err", err)
		return fmt.Sprintf(GenerationErrorFormat, err)
	}
	if response == nil || len(response.Choices) == 0 || response.Choices[0] == nil {
		ce.logger.Error("answer generation returned no choices")
		return fmt.Sprintf(GenerationErrorFormat, "no response from model")
	}

	return response.Choices[0].Content
}
