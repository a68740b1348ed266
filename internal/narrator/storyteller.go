package narrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"werewolves/internal/config"
	"werewolves/internal/domain"
)

const systemPrompt = `You are the narrator of a werewolf game in a gothic medieval village. When villagers die you tell a short, atmospheric story about their fate in two or three sentences. Never reveal secrets beyond what the history says.`

const defaultOllamaURL = "http://localhost:11434"

// ErrEmptyStory is returned when the model answered with no text
var ErrEmptyStory = errors.New("model returned an empty story")

// Storyteller narrates through a language model
type Storyteller struct {
	model    llms.Model
	callOpts []llms.CallOption
}

// Option configures a Storyteller
type Option func(*Storyteller)

// WithTemperature sets the sampling temperature
func WithTemperature(t float64) Option {
	return func(s *Storyteller) {
		s.callOpts = append(s.callOpts, llms.WithTemperature(t))
	}
}

// WithMaxTokens caps the length of a story
func WithMaxTokens(n int) Option {
	return func(s *Storyteller) {
		s.callOpts = append(s.callOpts, llms.WithMaxTokens(n))
	}
}

// NewStoryteller wraps a language model
func NewStoryteller(model llms.Model, opts ...Option) *Storyteller {
	s := &Storyteller{model: model}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Narrate asks the model for a story about the fresh deaths
func (s *Storyteller) Narrate(ctx context.Context, deaths []domain.Death, history []domain.Death) (string, error) {
	if len(deaths) == 0 {
		return "", nil
	}

	lines := make([]string, 0, len(history))
	for _, d := range history {
		lines = append(lines, describe(d))
	}

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman,
			"Game history so far:\n"+strings.Join(lines, "\n")+
				"\n\nTell a short dramatic story about what just happened to "+names(deaths)+"."),
	}

	var streamed strings.Builder
	opts := append(append([]llms.CallOption{}, s.callOpts...), llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
		streamed.Write(chunk)
		return nil
	}))

	resp, err := s.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("generate story: %w", err)
	}

	text := strings.TrimSpace(streamed.String())
	if text == "" && resp != nil && len(resp.Choices) > 0 {
		text = strings.TrimSpace(resp.Choices[0].Content)
	}
	if text == "" {
		return "", ErrEmptyStory
	}
	return text, nil
}

// newModel creates the langchaingo client for the configured provider
func newModel(cfg config.NarratorConfig) (llms.Model, error) {
	switch cfg.Provider {
	case "ollama":
		url := cfg.URL
		if url == "" {
			url = defaultOllamaURL
		}
		return ollama.New(ollama.WithModel(cfg.Model), ollama.WithServerURL(url))
	case "openai":
		opts := []openai.Option{openai.WithModel(cfg.Model)}
		if cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(cfg.APIKey))
		}
		return openai.New(opts...)
	case "claude":
		opts := []anthropic.Option{anthropic.WithModel(cfg.Model)}
		if cfg.APIKey != "" {
			opts = append(opts, anthropic.WithToken(cfg.APIKey))
		}
		return anthropic.New(opts...)
	case "gemini":
		opts := []googleai.Option{googleai.WithDefaultModel(cfg.Model)}
		if cfg.APIKey != "" {
			opts = append(opts, googleai.WithAPIKey(cfg.APIKey))
		}
		return googleai.New(context.Background(), opts...)
	case "openai-compatible":
		if cfg.URL == "" {
			return nil, errors.New("NARRATOR_URL is required")
		}
		opts := []openai.Option{
			openai.WithModel(cfg.Model),
			openai.WithBaseURL(cfg.URL),
		}
		if cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(cfg.APIKey))
		}
		return openai.New(opts...)
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
}
