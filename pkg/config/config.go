package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Slack      SlackConfig
	AI         AIConfig
	Lifecycle  LifecycleConfig
	Statistics StatisticsConfig
	Media      MediaConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SlackConfig carries the notification collaborator credentials.
type SlackConfig struct {
	Enabled       bool
	WebhookURL    string
	BotToken      string
	MainChannelID string
	FrontendURL   string
}

// AIConfig configures the survey analysis provider. BaseURL may point at
// any OpenAI-compatible endpoint (Ollama in development).
type AIConfig struct {
	Enabled          bool
	BaseURL          string
	APIKey           string
	Model            string
	MaxTokens        int
	BackfillInterval time.Duration
	WorkerRetries    int
}

// LifecycleConfig tunes the periodic survey sweep.
type LifecycleConfig struct {
	Enabled       bool
	SweepInterval time.Duration
}

// StatisticsConfig governs the short-lived statistics cache.
type StatisticsConfig struct {
	CacheTTL time.Duration
}

// MediaConfig points at the local media store.
type MediaConfig struct {
	StorageDir  string
	MaxFileSize int64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Slack = SlackConfig{
		Enabled:       v.GetBool("SLACK_ENABLED"),
		WebhookURL:    v.GetString("SLACK_WEBHOOK_URL"),
		BotToken:      v.GetString("SLACK_BOT_TOKEN"),
		MainChannelID: v.GetString("SLACK_MAIN_CHANNEL_ID"),
		FrontendURL:   v.GetString("FRONTEND_URL"),
	}

	cfg.AI = AIConfig{
		Enabled:          v.GetBool("AI_ANALYSIS_ENABLED"),
		BaseURL:          v.GetString("AI_BASE_URL"),
		APIKey:           v.GetString("AI_API_KEY"),
		Model:            v.GetString("AI_MODEL"),
		MaxTokens:        v.GetInt("AI_MAX_TOKENS"),
		BackfillInterval: parseDuration(v.GetString("AI_BACKFILL_INTERVAL"), 5*time.Minute),
		WorkerRetries:    v.GetInt("AI_WORKER_RETRIES"),
	}

	cfg.Lifecycle = LifecycleConfig{
		Enabled:       v.GetBool("LIFECYCLE_SWEEP_ENABLED"),
		SweepInterval: parseDuration(v.GetString("LIFECYCLE_SWEEP_INTERVAL"), time.Minute),
	}

	cfg.Statistics = StatisticsConfig{
		CacheTTL: parseDuration(v.GetString("STATISTICS_CACHE_TTL"), 30*time.Second),
	}

	maxMediaSize := v.GetInt64("MEDIA_MAX_FILE_SIZE")
	if maxMediaSize <= 0 {
		maxMediaSize = 5 * 1024 * 1024
	}
	cfg.Media = MediaConfig{
		StorageDir:  v.GetString("MEDIA_STORAGE_DIR"),
		MaxFileSize: maxMediaSize,
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "survey_pulse")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "survey-pulse-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SLACK_ENABLED", false)
	v.SetDefault("SLACK_WEBHOOK_URL", "")
	v.SetDefault("SLACK_BOT_TOKEN", "")
	v.SetDefault("SLACK_MAIN_CHANNEL_ID", "")
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")

	v.SetDefault("AI_ANALYSIS_ENABLED", false)
	v.SetDefault("AI_BASE_URL", "http://localhost:11434/v1")
	v.SetDefault("AI_API_KEY", "ollama")
	v.SetDefault("AI_MODEL", "phi3:mini")
	v.SetDefault("AI_MAX_TOKENS", 500)
	v.SetDefault("AI_BACKFILL_INTERVAL", "5m")
	v.SetDefault("AI_WORKER_RETRIES", 3)

	v.SetDefault("LIFECYCLE_SWEEP_ENABLED", true)
	v.SetDefault("LIFECYCLE_SWEEP_INTERVAL", "1m")

	v.SetDefault("STATISTICS_CACHE_TTL", "30s")

	v.SetDefault("MEDIA_STORAGE_DIR", "./media")
	v.SetDefault("MEDIA_MAX_FILE_SIZE", 5*1024*1024)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
