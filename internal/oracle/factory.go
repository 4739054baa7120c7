package oracle

import (
	"context"
	"fmt"
	"os"
	"strconv"

	einogemini "github.com/cloudwego/eino-ext/components/model/gemini"
	einoollama "github.com/cloudwego/eino-ext/components/model/ollama"
	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"
)

// Default chat models per backend.
const (
	defaultGeminiModel = "gemini-2.0-flash-exp"
	defaultOpenAIModel = "gpt-4o"
	defaultOllamaModel = "llama3"
)

// NewChatModelFromEnv constructs a chat model by reading provider
// configuration from environment variables. MODEL_PROVIDER selects the
// backend; each provider uses its own native credential env vars.
//
// Environment variables:
//
//	MODEL_PROVIDER = gemini | openai | azure | ollama (default: gemini)
//
//	Gemini:  GOOGLE_API_KEY, GEMINI_MODEL (default: gemini-2.0-flash-exp)
//	OpenAI:  OPENAI_API_KEY, OPENAI_MODEL (default: gpt-4o)
//	Azure:   AZURE_OPENAI_API_KEY, AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_DEPLOYMENT,
//	         AZURE_OPENAI_API_VERSION (default: 2024-02-01)
//	Ollama:  OLLAMA_HOST (default: http://localhost:11434), OLLAMA_MODEL (default: llama3)
//
//	Shared:  MODEL_MAX_TOKENS (default: 8192), MODEL_TEMPERATURE (default: 0.1)
//
// Extraction and classification need near-deterministic output, hence the
// low default temperature.
func NewChatModelFromEnv(ctx context.Context) (model.ToolCallingChatModel, error) {
	backend := getEnvOrDefault("MODEL_PROVIDER", "gemini")
	maxTokens := getEnvInt("MODEL_MAX_TOKENS", 8192)
	temperature := getEnvFloat32("MODEL_TEMPERATURE", 0.1)

	switch backend {
	case "gemini":
		apiKey := os.Getenv("GOOGLE_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("oracle: GOOGLE_API_KEY is required for gemini backend")
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("oracle: failed to create Gemini client: %w", err)
		}
		return einogemini.NewChatModel(ctx, &einogemini.Config{ //nolint:wrapcheck // constructor passthrough
			Client: client,
			Model:  getEnvOrDefault("GEMINI_MODEL", defaultGeminiModel),
		})

	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("oracle: OPENAI_API_KEY is required for openai backend")
		}
		return einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{ //nolint:wrapcheck // constructor passthrough
			Model:       getEnvOrDefault("OPENAI_MODEL", defaultOpenAIModel),
			APIKey:      apiKey,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
		})

	case "azure":
		apiKey := os.Getenv("AZURE_OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("oracle: AZURE_OPENAI_API_KEY is required for azure backend")
		}
		endpoint := os.Getenv("AZURE_OPENAI_ENDPOINT")
		if endpoint == "" {
			return nil, fmt.Errorf("oracle: AZURE_OPENAI_ENDPOINT is required for azure backend")
		}
		deployment := os.Getenv("AZURE_OPENAI_DEPLOYMENT")
		if deployment == "" {
			return nil, fmt.Errorf("oracle: AZURE_OPENAI_DEPLOYMENT is required for azure backend")
		}
		return einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{ //nolint:wrapcheck // constructor passthrough
			Model:       deployment,
			APIKey:      apiKey,
			BaseURL:     endpoint,
			ByAzure:     true,
			APIVersion:  getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-02-01"),
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
			// Use the deployment name as-is — the default mapper strips
			// dots/colons which breaks deployment names like "gpt-4.1".
			AzureModelMapperFunc: func(model string) string { return model },
		})

	case "ollama":
		return einoollama.NewChatModel(ctx, &einoollama.ChatModelConfig{ //nolint:wrapcheck // constructor passthrough
			BaseURL: getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434"),
			Model:   getEnvOrDefault("OLLAMA_MODEL", defaultOllamaModel),
		})

	default:
		return nil, fmt.Errorf("oracle: unknown backend %q — valid values: gemini, openai, azure, ollama", backend)
	}
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvFloat32 returns the float32 value of the named environment variable,
// or fallback if the variable is unset, empty, or not parseable.
func getEnvFloat32(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}
