package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Redis     RedisConfig
	Speech    SpeechConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type LogConfig struct {
	Level string // debug, info, warn, error
}

type RedisConfig struct {
	Addr     string // empty disables Redis
	Password string
	DB       int
}

type SpeechConfig struct {
	SubscriptionKey string
	Region          string
	DefaultVoice    string
	UserAgent       string
	HTTPTimeout     time.Duration
	TokenTTL        time.Duration // 0 fetches a fresh token for every request

	// Fixed upstream URLs for on-prem speech containers or an egress proxy.
	// Both are set or neither; the region then only labels tokens.
	SynthesisURL string
	TokenURLs    []string
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	httpTimeout, err := getEnvDuration("SPEECH_HTTP_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SPEECH_HTTP_TIMEOUT: %w", err)
	}

	tokenTTL, err := getEnvDuration("SPEECH_TOKEN_TTL", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid SPEECH_TOKEN_TTL: %w", err)
	}
	if tokenTTL < 0 {
		return nil, fmt.Errorf("invalid SPEECH_TOKEN_TTL: must not be negative")
	}

	synthesisURL := strings.TrimSpace(getEnv("SPEECH_SYNTHESIS_URL", ""))
	tokenURLs := getEnvList("SPEECH_TOKEN_URLS", nil)
	if (synthesisURL == "") != (len(tokenURLs) == 0) {
		return nil, fmt.Errorf("invalid SPEECH_SYNTHESIS_URL/SPEECH_TOKEN_URLS: set both or neither")
	}

	rps, err := getEnvFloat("RATE_LIMIT_RPS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	burst, err := getEnvInt("RATE_LIMIT_BURST", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Speech: SpeechConfig{
			SubscriptionKey: strings.TrimSpace(getEnv("AZURE_SPEECH_KEY", "")),
			Region:          strings.TrimSpace(getEnv("AZURE_SPEECH_REGION", "")),
			DefaultVoice:    getEnv("SPEECH_DEFAULT_VOICE", "en-US-JennyNeural"),
			UserAgent:       getEnv("SPEECH_USER_AGENT", "speechrelay"),
			HTTPTimeout:     httpTimeout,
			TokenTTL:        tokenTTL,
			SynthesisURL:    synthesisURL,
			TokenURLs:       tokenURLs,
		},
		RateLimit: RateLimitConfig{
			RPS:   rps,
			Burst: burst,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate reports the speech credentials that are missing. The server still
// starts without them; synthesis requests fail until they are provided.
func (c *Config) Validate() error {
	var missing []string
	if c.Speech.SubscriptionKey == "" {
		missing = append(missing, "AZURE_SPEECH_KEY")
	}
	if c.Speech.Region == "" {
		missing = append(missing, "AZURE_SPEECH_REGION")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
