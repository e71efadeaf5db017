package config

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Env         string
	Port        int
	MetricsPort int

	Storage    string
	DBURL      string
	DBMaxConns int32

	JWTSecret           string
	JWTAccessTTLMinutes int

	AdminUsername string
	AdminPassword string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AuthRateLimit  int
	AuthRateWindow time.Duration

	CORSAllowedOrigins []string

	OTLPEndpoint string
	ServiceName  string

	// Poster extraction
	GCPProject         string
	GCPLocation        string
	GCPCredentialsFile string
	GeminiModel        string
	LLMTimeout         time.Duration
	LLMRateLimit       float64
	OCRLanguages       []string
	OCRTimeout         time.Duration

	GCSBucket      string
	MaxUploadBytes int64
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:         getEnv("APP_ENV", "dev"),
		Port:        getEnvInt("PORT", 8080),
		MetricsPort: getEnvInt("METRICS_PORT", 9090),

		Storage:    strings.ToLower(getEnv("STORAGE", StoragePostgres)),
		DBURL:      buildDBURL(),
		DBMaxConns: int32(getEnvInt("DB_MAX_CONNS", 5)),

		JWTSecret:           getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTAccessTTLMinutes: getEnvInt("JWT_ACCESS_TTL_MINUTES", 60),

		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AuthRateLimit:  getEnvInt("AUTH_RATE_LIMIT", 20),
		AuthRateWindow: getEnvDuration("AUTH_RATE_WINDOW", time.Minute),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:  getEnv("OTEL_SERVICE_NAME", "eventparser-api"),

		GCPProject:         getEnv("GCP_PROJECT", ""),
		GCPLocation:        getEnv("GCP_LOCATION", "us-central1"),
		GCPCredentialsFile: getEnv("GCP_CREDENTIALS_FILE", ""),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		LLMTimeout:         getEnvDuration("LLM_TIMEOUT", 30*time.Second),
		LLMRateLimit:       getEnvFloat("LLM_RATE_LIMIT", 2),
		OCRLanguages:       splitList(getEnv("OCR_LANGUAGES", "rus,eng")),
		OCRTimeout:         getEnvDuration("OCR_TIMEOUT", 20*time.Second),

		GCSBucket:      getEnv("GCS_BUCKET", ""),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
	}
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

func buildDBURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "eventparser")
	pass := getEnv("DB_PASSWORD", "eventparser")
	name := getEnv("DB_NAME", "eventparser")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid int in environment, using default", "key", key, "err", err, "default", fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			slog.Warn("invalid float in environment, using default", "key", key, "err", err, "default", fallback)
			return fallback
		}
		return f
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration in environment, using default", "key", key, "err", err, "default", fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
