package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL    string
	MigrateOnStart bool
	JWTSecretKey   string
	JWTTTL         time.Duration
	ServerPort     int
	Environment    string

	CORSAllowedOrigins []string

	// Пусто: блокировка в памяти процесса.
	RedisURL  string
	SentryDSN string

	// Архив сетки в Cloudflare R2; без бакета архивирование выключено.
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	RegistrationRateLimit float64 // запросов в секунду на IP
	RegistrationRateBurst int
	RegistrationClosesAt  *time.Time
	RegistrationCheckSpec string

	AdminUsername string
	AdminPassword string
}

func (c *Config) ArchiveEnabled() bool {
	return c.R2BucketName != ""
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080" // Порт по умолчанию
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	jwtTTL, err := durationEnv("JWT_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	migrate, err := boolEnv("MIGRATE_ON_START", true)
	if err != nil {
		return nil, err
	}

	rateLimit, err := floatEnv("REGISTRATION_RATE_LIMIT", 0.2)
	if err != nil {
		return nil, err
	}
	rateBurst, err := intEnv("REGISTRATION_RATE_BURST", 3)
	if err != nil {
		return nil, err
	}
	if rateLimit <= 0 || rateBurst <= 0 {
		return nil, fmt.Errorf("REGISTRATION_RATE_LIMIT and REGISTRATION_RATE_BURST must be positive")
	}

	var closesAt *time.Time
	if raw := os.Getenv("REGISTRATION_CLOSES_AT"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid REGISTRATION_CLOSES_AT (want RFC3339): %w", err)
		}
		closesAt = &t
	}

	checkSpec := os.Getenv("REGISTRATION_CHECK_SPEC")
	if checkSpec == "" {
		checkSpec = "@every 1m"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	cfg := &Config{
		DatabaseURL:    dbURL,
		MigrateOnStart: migrate,
		JWTSecretKey:   jwtKey,
		JWTTTL:         jwtTTL,
		ServerPort:     port,
		Environment:    env,

		CORSAllowedOrigins: listEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),

		RedisURL:  os.Getenv("REDIS_URL"),
		SentryDSN: os.Getenv("SENTRY_DSN"),

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),

		RegistrationRateLimit: rateLimit,
		RegistrationRateBurst: rateBurst,
		RegistrationClosesAt:  closesAt,
		RegistrationCheckSpec: checkSpec,

		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	if cfg.ArchiveEnabled() && (cfg.R2AccountID == "" || cfg.R2AccessKeyID == "" || cfg.R2SecretAccessKey == "") {
		return nil, fmt.Errorf("R2_BUCKET_NAME is set but R2 credentials are incomplete")
	}
	if (cfg.AdminUsername == "") != (cfg.AdminPassword == "") {
		return nil, fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD must be set together")
	}

	return cfg, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return d, nil
}

func boolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return b, nil
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return n, nil
}

func floatEnv(key string, def float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return f, nil
}

func listEnv(key string, def []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
