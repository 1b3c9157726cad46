package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName         string
	AppEnv          string
	AppPort         string
	AllowOrigins    string
	DatabaseURL     string
	RedisURL        string
	NATSURL         string
	GradingSubject  string
	GradingQueue    string
	EventsChannel   string
	JWTSecret       string
	TaskCacheTTL    time.Duration
	RequireAIGrade  bool
	GradingTimeout  time.Duration
	GradingSweep    time.Duration
	AIProvider      string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	OpenAIMaxTokens int
	SeedEnabled     bool
	SeedToken       string
	SeedDemo        bool
	WriteRateLimit  int
	WriteRateWindow time.Duration
	ExposeMetrics   bool
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("FUMI")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Fumi API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("nats.subject", "fumi.submission.submitted")
	v.SetDefault("nats.queue", "fumi-graders")
	v.SetDefault("events.channel", "fumi:submission-events")
	v.SetDefault("task.cache_ttl", "5m")
	v.SetDefault("grading.require_ai_grade", false)
	v.SetDefault("grading.timeout", "30s")
	v.SetDefault("grading.sweep_interval", "5m")
	v.SetDefault("ai.provider", "heuristic")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 1200)
	v.SetDefault("seed.enabled", false)
	v.SetDefault("seed.demo", false)
	v.SetDefault("rate_limit.write_max", 30)
	v.SetDefault("rate_limit.write_window", "1m")
	v.SetDefault("metrics.enabled", true)

	cacheTTL, err := parseDuration(v, "task.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	gradingTimeout, err := parseDuration(v, "grading.timeout")
	if err != nil {
		return Config{}, err
	}
	gradingSweep, err := parseInterval(v, "grading.sweep_interval")
	if err != nil {
		return Config{}, err
	}
	writeWindow, err := parseDuration(v, "rate_limit.write_window")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:         v.GetString("app.name"),
		AppEnv:          v.GetString("app.env"),
		AppPort:         v.GetString("app.port"),
		AllowOrigins:    v.GetString("cors.allow_origins"),
		DatabaseURL:     v.GetString("database.url"),
		RedisURL:        v.GetString("redis.url"),
		NATSURL:         v.GetString("nats.url"),
		GradingSubject:  v.GetString("nats.subject"),
		GradingQueue:    v.GetString("nats.queue"),
		EventsChannel:   v.GetString("events.channel"),
		JWTSecret:       v.GetString("jwt.secret"),
		TaskCacheTTL:    cacheTTL,
		RequireAIGrade:  v.GetBool("grading.require_ai_grade"),
		GradingTimeout:  gradingTimeout,
		GradingSweep:    gradingSweep,
		AIProvider:      strings.ToLower(strings.TrimSpace(v.GetString("ai.provider"))),
		OpenAIAPIKey:    v.GetString("openai.api_key"),
		OpenAIBaseURL:   v.GetString("openai.base_url"),
		OpenAIModel:     v.GetString("openai.model"),
		OpenAIMaxTokens: v.GetInt("openai.max_tokens"),
		SeedEnabled:     v.GetBool("seed.enabled"),
		SeedToken:       v.GetString("seed.token"),
		SeedDemo:        v.GetBool("seed.demo"),
		WriteRateLimit:  v.GetInt("rate_limit.write_max"),
		WriteRateWindow: writeWindow,
		ExposeMetrics:   v.GetBool("metrics.enabled"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.AIProvider {
	case "heuristic":
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return Config{}, fmt.Errorf("openai api key must be provided when ai.provider is openai")
		}
	default:
		return Config{}, fmt.Errorf("unsupported ai provider %q", cfg.AIProvider)
	}

	if cfg.SeedEnabled && cfg.SeedToken == "" {
		return Config{}, fmt.Errorf("seed token must be provided when seeding is enabled")
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	value, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return value, nil
}

// parseInterval is parseDuration that also accepts zero to mean disabled.
func parseInterval(v *viper.Viper, key string) (time.Duration, error) {
	value, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return value, nil
}
