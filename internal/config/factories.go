package config

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/puppettale/backend/internal/service/ai"
	"github.com/puppettale/backend/internal/service/illustration"
	"github.com/puppettale/backend/internal/service/session"
	storyService "github.com/puppettale/backend/internal/service/story"
	"github.com/puppettale/backend/internal/storage"
)

// ErrBackendDisabled means the selected provider has no credentials.
var ErrBackendDisabled = errors.New("ai backend credentials missing")

// RetryPolicy is the gateway retry policy.
func (c AIConfig) RetryPolicy() ai.RetryPolicy {
	return ai.RetryPolicy{MaxAttempts: c.MaxAttempts, Delay: c.RetryDelay, Sleep: ai.ContextSleep}
}

// Enabled reports whether the Ark credentials are complete.
func (c ArkConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel creates the configured chat backend and returns its name.
func (c AIConfig) NewChatModel(ctx context.Context) (model.BaseChatModel, string, error) {
	switch c.Provider {
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return nil, "", fmt.Errorf("%w: GEMINI_API_KEY is empty", ErrBackendDisabled)
		}
		m, err := ai.NewGeminiChatModel(ctx, ai.GeminiConfig{
			APIKey:  c.Gemini.APIKey,
			Model:   c.Gemini.Model,
			BaseURL: c.Gemini.BaseURL,
		})
		if err != nil {
			return nil, "", err
		}
		return m, ProviderGemini, nil
	case ProviderArk:
		m, err := c.Ark.NewChatModel(ctx)
		if err != nil {
			return nil, "", err
		}
		return m, ProviderArk, nil
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return nil, "", fmt.Errorf("%w: OPENAI_API_KEY is empty", ErrBackendDisabled)
		}
		m, err := ai.NewOpenAIChatModel(ai.OpenAIConfig{
			APIKey:  c.OpenAI.APIKey,
			BaseURL: c.OpenAI.BaseURL,
			Model:   c.OpenAI.Model,
		})
		if err != nil {
			return nil, "", err
		}
		return m, ProviderOpenAI, nil
	default:
		return nil, "", fmt.Errorf("unknown AI_PROVIDER %q", c.Provider)
	}
}

// NewChatModel creates an Ark chat model whose errors carry HTTP status codes.
func (c ArkConfig) NewChatModel(ctx context.Context) (model.BaseChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("%w: provide ARK_API_KEY + Model or an AK/SK pair", ErrBackendDisabled)
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	inner, err := ark.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	wrapped, err := ai.NewArkChatModel(inner)
	if err != nil {
		return nil, err
	}
	return wrapped, nil
}

// NewStore creates the session state store. The second return value is the
// in-memory store when that backend is selected, so the caller can run its
// eviction janitor.
func (c SessionConfig) NewStore(ctx context.Context) (session.Store, *session.MemoryStore, error) {
	switch c.Backend {
	case SessionBackendMemory:
		mem := session.NewMemoryStore(c.Debounce, c.IdleTTL)
		return mem, mem, nil
	case SessionBackendRedis:
		client, err := session.Dial(ctx, c.RedisAddr, c.RedisPassword, c.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return session.NewRedisStore(client, "puppettale:session", c.Debounce, c.IdleTTL), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown SESSION_BACKEND %q", c.Backend)
	}
}

// NewStore creates the record store and a close function.
func (c StorageConfig) NewStore() (storage.Store, func() error, error) {
	if c.MySQLDSN == "" {
		return storage.NewMemoryStore(), func() error { return nil }, nil
	}

	store, err := storage.NewMySQLStore(storage.MySQLConfig{
		DSN:             c.MySQLDSN,
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

// NewRenderer creates the page illustrator. It returns a nil Renderer when
// Gemini or the bucket is not configured; pages then use the placeholder.
func (c *Config) NewRenderer(ctx context.Context) (storyService.Renderer, func() error, error) {
	noop := func() error { return nil }
	if c.AI.Gemini.APIKey == "" || c.Illustration.Bucket == "" {
		log.Printf("warning: GEMINI_API_KEY or GCS_BUCKET missing, story pages will use the placeholder image")
		return nil, noop, nil
	}

	client, err := ai.NewGeminiClient(ctx, c.AI.Gemini.APIKey, c.AI.Gemini.BaseURL)
	if err != nil {
		return nil, noop, err
	}
	gen, err := illustration.NewGeminiGenerator(client, c.AI.Gemini.ImageModel, "4:3")
	if err != nil {
		return nil, noop, err
	}

	up, err := illustration.NewGCSUploader(ctx, illustration.GCSConfig{
		Bucket:          c.Illustration.Bucket,
		PublicBaseURL:   c.Illustration.PublicBaseURL,
		CredentialsFile: c.Illustration.CredentialsFile,
	})
	if err != nil {
		return nil, noop, err
	}
	return illustration.NewRenderer(gen, up, illustration.DefaultKeyPrefix), up.Close, nil
}

// StoryServiceConfig converts the story settings for the synthesis pipeline.
func (c *Config) StoryServiceConfig() storyService.Config {
	return storyService.Config{
		MinPages:       c.Story.MinPages,
		MaxPages:       c.Story.MaxPages,
		Concurrency:    c.Story.Concurrency,
		PlaceholderURL: c.Illustration.PlaceholderURL,
	}
}
