package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every setting the service reads from the environment.
type Config struct {
	Server       ServerConfig
	AI           AIConfig
	Session      SessionConfig
	Storage      StorageConfig
	Illustration IllustrationConfig
	Story        StoryConfig
	SoundBaseURL string
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	story, err := loadStoryConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:       server,
		AI:           ai,
		Session:      session,
		Storage:      loadStorageConfig(),
		Illustration: loadIllustrationConfig(),
		Story:        story,
		SoundBaseURL: getEnvOrDefault("SOUND_BASE_URL", "https://storage.googleapis.com/puppettale-assets/"),
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// ":8080" and "127.0.0.1:8080" are accepted as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// Providers understood by AIConfig.NewChatModel.
const (
	ProviderGemini = "gemini"
	ProviderArk    = "ark"
	ProviderOpenAI = "openai"
)

// AIConfig describes the generative backends and the gateway retry policy.
type AIConfig struct {
	Provider    string
	Gemini      GeminiConfig
	Ark         ArkConfig
	OpenAI      OpenAIConfig
	MaxAttempts int
	RetryDelay  time.Duration
}

// GeminiConfig holds the Gemini chat and image settings.
type GeminiConfig struct {
	APIKey     string
	Model      string
	ImageModel string
	BaseURL    string
}

// ArkConfig holds the Volcengine Ark settings.
type ArkConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// OpenAIConfig holds the OpenAI-compatible backend settings.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	maxAttempts := 3
	if override, err := parseOptionalIntEnv("AI_MAX_ATTEMPTS"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		if *override < 1 {
			maxAttempts = 1
		} else {
			maxAttempts = *override
		}
	}

	retryDelay, err := parseDurationEnv("AI_RETRY_DELAY", time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		Provider: strings.ToLower(getEnvOrDefault("AI_PROVIDER", ProviderGemini)),
		Gemini: GeminiConfig{
			APIKey:     strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			Model:      getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
			ImageModel: getEnvOrDefault("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image-preview"),
			BaseURL:    strings.TrimSpace(os.Getenv("GEMINI_BASE_URL")),
		},
		Ark: ArkConfig{
			APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
			AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
			SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
			Model:       strings.TrimSpace(os.Getenv("Model")),
			BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
			Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
			Temperature: temperature,
			TopP:        topP,
			MaxTokens:   maxTokens,
		},
		OpenAI: OpenAIConfig{
			APIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			BaseURL: strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
			Model:   getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		},
		MaxAttempts: maxAttempts,
		RetryDelay:  retryDelay,
	}, nil
}

// Session backends.
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// SessionConfig describes the session state store.
type SessionConfig struct {
	Backend       string
	Debounce      time.Duration
	IdleTTL       time.Duration
	SweepInterval time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func loadSessionConfig() (SessionConfig, error) {
	debounce, err := parseDurationEnv("SESSION_DEBOUNCE", 2*time.Second)
	if err != nil {
		return SessionConfig{}, err
	}
	idleTTL, err := parseDurationEnv("SESSION_IDLE_TTL", 30*time.Minute)
	if err != nil {
		return SessionConfig{}, err
	}
	sweep, err := parseDurationEnv("SESSION_SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return SessionConfig{}, err
	}
	db, err := parseOptionalIntEnv("REDIS_DB")
	if err != nil {
		return SessionConfig{}, err
	}

	cfg := SessionConfig{
		Backend:       strings.ToLower(getEnvOrDefault("SESSION_BACKEND", SessionBackendMemory)),
		Debounce:      debounce,
		IdleTTL:       idleTTL,
		SweepInterval: sweep,
		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
	}
	if db != nil {
		cfg.RedisDB = *db
	}
	return cfg, nil
}

// StorageConfig selects the record store. An empty DSN keeps records in memory.
type StorageConfig struct {
	MySQLDSN string
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{MySQLDSN: strings.TrimSpace(os.Getenv("MYSQL_DSN"))}
}

// IllustrationConfig describes where generated pictures are uploaded.
type IllustrationConfig struct {
	Bucket          string
	CredentialsFile string
	PublicBaseURL   string
	PlaceholderURL  string
}

func loadIllustrationConfig() IllustrationConfig {
	return IllustrationConfig{
		Bucket:          strings.TrimSpace(os.Getenv("GCS_BUCKET")),
		CredentialsFile: strings.TrimSpace(os.Getenv("GCS_CREDENTIALS_FILE")),
		PublicBaseURL:   strings.TrimSpace(os.Getenv("GCS_PUBLIC_BASE_URL")),
		PlaceholderURL:  getEnvOrDefault("PLACEHOLDER_IMAGE_URL", "https://cdn.example.com/placeholder-image.png"),
	}
}

// StoryConfig bounds story synthesis.
type StoryConfig struct {
	MinPages    int
	MaxPages    int
	Concurrency int
}

func loadStoryConfig() (StoryConfig, error) {
	cfg := StoryConfig{MinPages: 3, MaxPages: 4, Concurrency: 2}
	for key, target := range map[string]*int{
		"STORY_MIN_PAGES":          &cfg.MinPages,
		"STORY_MAX_PAGES":          &cfg.MaxPages,
		"ILLUSTRATION_CONCURRENCY": &cfg.Concurrency,
	} {
		val, err := parseOptionalIntEnv(key)
		if err != nil {
			return StoryConfig{}, err
		}
		if val != nil {
			*target = *val
		}
	}
	if cfg.MinPages < 1 || cfg.MaxPages < cfg.MinPages {
		return StoryConfig{}, fmt.Errorf("invalid story page bounds %d..%d", cfg.MinPages, cfg.MaxPages)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
