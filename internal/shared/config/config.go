package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"slidebanai-backend/internal/shared/telemetry"
)

var productionOrigins = []string{
	"https://slidebanai.com",
	"https://www.slidebanai.com",
	"https://app.slidebanai.com",
}

// Config holds application configuration.
type Config struct {
	Env             string
	Port            string
	APIURL          string
	CORSAllowOrigin []string

	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	ObjectStoreType   string
	LocalStoreDir     string
	AWSRegion         string
	S3Bucket          string
	S3Prefix          string
	SSEKMSKeyID       string

	SQSQueueURL             string
	RedisURL                string
	WorkerConcurrency       int
	WorkerVisibilityTimeout time.Duration
	ShutdownTimeout         time.Duration

	LLMProvider       string
	OpenAIAPIKey      string
	LLMModel          string
	OpenAIMaxTokens   int
	OpenAITemperature float64

	GoogleServiceAccountKey  string
	GoogleServiceAccountFile string

	OCRTesseractPath string
	OCRLanguage      string

	RateLimitPerMinute int
	RateLimitBurst     int

	MaxUploadBytes int64

	MinSlides     int
	MaxSlides     int
	DefaultSlides int

	ExtractTimeout    time.Duration
	GenerationTimeout time.Duration
	ExportTimeout     time.Duration
	HTTPClientTimeout time.Duration

	CreditsPlan         string
	CreditsLimit        int
	CreditsOutlineCost  int
	CreditsFinalizeCost int

	JWTSecret string

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	cfg := Config{
		Env:    env,
		Port:   getEnv("PORT", "8080"),
		APIURL: getEnv("API_URL", ""),

		DatabaseURL:       os.Getenv("DATABASE_URL"),
		DBMaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		ObjectStoreType:   normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:     getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:         getEnv("AWS_REGION", ""),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3Prefix:          getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:       getEnv("SSE_KMS_KEY_ID", ""),

		SQSQueueURL:             getEnv("SQS_QUEUE_URL", ""),
		RedisURL:                getEnv("REDIS_URL", ""),
		WorkerConcurrency:       getInt("WORKER_CONCURRENCY", 4),
		WorkerVisibilityTimeout: getDuration("SQS_VISIBILITY_TIMEOUT", 20*time.Minute),
		ShutdownTimeout:         getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		LLMProvider:       strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		LLMModel:          getEnv("LLM_MODEL", "gpt-4o"),
		OpenAIMaxTokens:   getInt("OPENAI_MAX_TOKENS", 4000),
		OpenAITemperature: getFloat("OPENAI_TEMPERATURE", 0.7),

		GoogleServiceAccountKey:  os.Getenv("GOOGLE_SERVICE_ACCOUNT_KEY"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		OCRTesseractPath: getEnv("OCR_TESSERACT_PATH", "tesseract"),
		OCRLanguage:      getEnv("OCR_LANGUAGE", "eng"),

		RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 60),
		RateLimitBurst:     getInt("RATE_LIMIT_BURST", 100),

		MaxUploadBytes: int64(getInt("MAX_UPLOAD_SIZE_MB", 50)) << 20,

		MinSlides:     getInt("AI_PRESENTATION_MIN_SLIDES", 3),
		MaxSlides:     getInt("AI_PRESENTATION_MAX_SLIDES", 30),
		DefaultSlides: getInt("AI_PRESENTATION_DEFAULT_SLIDES", 10),

		ExtractTimeout:    getDuration("EXTRACT_TIMEOUT", 2*time.Minute),
		GenerationTimeout: getDuration("GENERATION_TIMEOUT", time.Minute),
		ExportTimeout:     getDuration("EXPORT_TIMEOUT", 2*time.Minute),
		HTTPClientTimeout: getDuration("HTTP_CLIENT_TIMEOUT", 30*time.Second),

		CreditsPlan:         getEnv("CREDITS_PLAN", "Starter"),
		CreditsLimit:        getInt("CREDITS_LIMIT", 10),
		CreditsOutlineCost:  getInt("CREDITS_OUTLINE_COST", 1),
		CreditsFinalizeCost: getInt("CREDITS_FINALIZE_COST", 1),

		JWTSecret: os.Getenv("JWT_SECRET"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if raw := os.Getenv("CORS_ALLOW_ORIGINS"); raw != "" {
		cfg.CORSAllowOrigin = splitAndTrim(raw)
	} else if env == "production" {
		cfg.CORSAllowOrigin = append([]string(nil), productionOrigins...)
	} else {
		cfg.CORSAllowOrigin = []string{"http://localhost:5173", "http://localhost:3000"}
	}

	if env == "production" && cfg.DatabaseURL == "" {
		telemetry.Warn("config.missing", map[string]any{"key": "DATABASE_URL", "env": env})
	}
	if cfg.LLMProvider == "openai" && cfg.OpenAIAPIKey == "" {
		telemetry.Warn("config.missing", map[string]any{"key": "OPENAI_API_KEY", "env": env})
	}
	return cfg
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		telemetry.Warn("config.invalid", map[string]any{"key": key, "value": raw})
		return def
	}
	return v
}

func getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		telemetry.Warn("config.invalid", map[string]any{"key": key, "value": raw})
		return def
	}
	return v
}

// getDuration accepts Go durations ("90s") or a bare number of seconds.
func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	telemetry.Warn("config.invalid", map[string]any{"key": key, "value": raw})
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
