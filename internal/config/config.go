package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Provider names, in selection priority order.
const (
	ProviderArk    = "ark"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// Config aggregates every service setting.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Store     StoreConfig
	AI        AIConfig
	Directory DirectoryConfig
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	directory, err := loadDirectoryConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		Log:       loadLogConfig(),
		Store:     store,
		AI:        ai,
		Directory: directory,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	origins := splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"))

	if strings.Contains(port, ":") {
		// accepts ":8080" or "127.0.0.1:8080" as-is
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// LogConfig controls the zerolog global logger.
type LogConfig struct {
	Level  string
	Format string
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		Format: strings.ToLower(getEnvOrDefault("LOG_FORMAT", "json")),
	}
}

// StoreConfig selects the conversation store backend.
type StoreConfig struct {
	Driver string
	Path   string
}

func loadStoreConfig() (StoreConfig, error) {
	driver := strings.ToLower(getEnvOrDefault("STORE_DRIVER", "memory"))
	switch driver {
	case "memory", "sqlite":
	default:
		return StoreConfig{}, fmt.Errorf("invalid STORE_DRIVER value %q: want memory or sqlite", driver)
	}

	return StoreConfig{
		Driver: driver,
		Path:   getEnvOrDefault("STORE_PATH", "./data/medguide.db"),
	}, nil
}

// AIConfig groups the analysis provider settings.
type AIConfig struct {
	Ark     ArkConfig
	OpenAI  OpenAIConfig
	Timeout time.Duration
}

// ProviderName picks the active analysis provider by credential availability.
func (c AIConfig) ProviderName() string {
	switch {
	case c.Ark.Enabled():
		return ProviderArk
	case c.OpenAI.Enabled():
		return ProviderOpenAI
	default:
		return ProviderMock
	}
}

// ArkConfig describes the Ark chat model.
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

// Enabled reports whether a model and credentials are present.
func (c ArkConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds an Ark chat model from the configuration.
func (c ArkConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, errors.New("ark credentials or model missing: set ARK_MODEL with ARK_API_KEY or ARK_ACCESS_KEY/ARK_SECRET_KEY")
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

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

// OpenAIConfig describes an OpenAI-compatible chat completion endpoint.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Enabled reports whether an API key is present.
func (c OpenAIConfig) Enabled() bool {
	return c.APIKey != ""
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

	timeout, err := parseSecondsEnv("AI_TIMEOUT_SECONDS", 30)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		Ark: ArkConfig{
			APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
			AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
			SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
			Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
			BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
			Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
			Temperature: temperature,
			TopP:        topP,
			MaxTokens:   maxTokens,
		},
		OpenAI: OpenAIConfig{
			APIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			BaseURL: getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:   getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		},
		Timeout: timeout,
	}, nil
}

// DirectoryConfig describes the facility directory endpoint.
type DirectoryConfig struct {
	APIKey       string
	BaseURL      string
	PageSize     int
	RadiusMeters int
	Timeout      time.Duration
}

// Enabled reports whether the external directory can be queried at all.
func (c DirectoryConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadDirectoryConfig() (DirectoryConfig, error) {
	pageSize := 10
	if override, err := parseOptionalIntEnv("FACILITY_PAGE_SIZE"); err != nil {
		return DirectoryConfig{}, err
	} else if override != nil && *override > 0 {
		pageSize = *override
	}

	radius := 5000
	if override, err := parseOptionalIntEnv("FACILITY_RADIUS_METERS"); err != nil {
		return DirectoryConfig{}, err
	} else if override != nil && *override > 0 {
		radius = *override
	}

	timeout, err := parseSecondsEnv("FACILITY_TIMEOUT_SECONDS", 15)
	if err != nil {
		return DirectoryConfig{}, err
	}

	return DirectoryConfig{
		APIKey:       strings.TrimSpace(os.Getenv("FACILITY_API_KEY")),
		BaseURL:      getEnvOrDefault("FACILITY_BASE_URL", "https://apis.data.go.kr/B551182/hospInfoServicev2/getHospBasisList"),
		PageSize:     pageSize,
		RadiusMeters: radius,
		Timeout:      timeout,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseSecondsEnv(key string, defaultSeconds int) (time.Duration, error) {
	seconds, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if seconds == nil {
		return time.Duration(defaultSeconds) * time.Second, nil
	}
	if *seconds <= 0 {
		return 0, fmt.Errorf("invalid %s value %d: must be positive", key, *seconds)
	}
	return time.Duration(*seconds) * time.Second, nil
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
