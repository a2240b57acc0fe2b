package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/soratext/soratext/internal/config"
)

// Default models per provider, overridable via llm.model in config.
const (
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultGeminiModel    = "gemini-1.5-flash"
	defaultAnthropicModel = "claude-3-5-sonnet-20241022"
)

// langchainProvider adapts a langchaingo model to the Provider interface.
type langchainProvider struct {
	name  string
	model llms.Model
}

func (p *langchainProvider) Name() string { return p.name }

func (p *langchainProvider) Generate(ctx context.Context, prompt string) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, p.model, prompt, llms.WithTemperature(0.3))
}

// New builds the configured provider wrapped with the configured retry
// policy. OpenAI and Anthropic read their keys from the environment variables
// their SDKs define; Gemini reads GEMINI_API_KEY with GOOGLE_API_KEY as a
// fallback.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Provider, error) {
	var (
		model llms.Model
		err   error
	)
	switch cfg.LLMProvider {
	case "openai":
		model, err = openai.New(openai.WithModel(orDefault(cfg.LLMModel, defaultOpenAIModel)))
	case "anthropic":
		model, err = anthropic.New(anthropic.WithModel(orDefault(cfg.LLMModel, defaultAnthropicModel)))
	case "gemini":
		key := os.Getenv("GEMINI_API_KEY")
		if key == "" {
			key = os.Getenv("GOOGLE_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("gemini provider: GEMINI_API_KEY not set")
		}
		model, err = googleai.New(ctx,
			googleai.WithAPIKey(key),
			googleai.WithDefaultModel(orDefault(cfg.LLMModel, defaultGeminiModel)))
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s provider: %w", cfg.LLMProvider, err)
	}

	inner := &langchainProvider{name: cfg.LLMProvider, model: model}
	return WithRetry(inner, cfg.LLMTimeout, cfg.LLMRetryAttempts, cfg.LLMRetryDelay, logger), nil
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
