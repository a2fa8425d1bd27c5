package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Kafka
	Kafka KafkaConfig

	// Analytics
	Analytics AnalyticsConfig

	// API
	API APIConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	PoolSize int
	Timeout  time.Duration // dial/read/write
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// KafkaConfig holds report publication settings
// Brokers가 비어 있으면 발행 비활성화
type KafkaConfig struct {
	Brokers     []string
	ReportTopic string
}

// Enabled reports whether a broker list is configured
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// AnalyticsConfig holds the analysis service settings
type AnalyticsConfig struct {
	ProfilePath      string        // YAML 프로파일 경로 (비어 있으면 기본값)
	CacheTTL         time.Duration // 리포트 캐시 TTL
	BatchConcurrency int           // AnalyzeBatch 동시 실행 수
	RefreshSchedule  string        // cron 표현식 (초 포함)
	Portfolios       []string      // 스케줄러가 갱신할 포트폴리오
}

// APIConfig holds HTTP rate limiting
type APIConfig struct {
	RateLimitRPS    float64
	RateLimitBurst  int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration // 리포트 계산 + 저장 포함
	ShutdownTimeout time.Duration
	TrustedProxies  []string // IP/CIDR, 비어 있으면 X-Forwarded-For 무시
	AllowedOrigins  []string // WebSocket Origin, 비어 있으면 같은 호스트만
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 10),
			Timeout:  getEnvAsDuration("REDIS_TIMEOUT", "3s"),
		},

		// Kafka
		Kafka: KafkaConfig{
			Brokers:     getEnvAsList("KAFKA_BROKERS"),
			ReportTopic: getEnv("KAFKA_REPORT_TOPIC", "perf.reports"),
		},

		// Analytics
		Analytics: AnalyticsConfig{
			ProfilePath:      getEnv("ANALYTICS_PROFILE", ""),
			CacheTTL:         getEnvAsDuration("ANALYTICS_CACHE_TTL", "10m"),
			BatchConcurrency: getEnvAsInt("ANALYTICS_BATCH_CONCURRENCY", 4),
			RefreshSchedule:  getEnv("ANALYTICS_REFRESH_SCHEDULE", "0 30 17 * * *"),
			Portfolios:       getEnvAsList("ANALYTICS_PORTFOLIOS"),
		},

		// API
		API: APIConfig{
			RateLimitRPS:    getEnvAsFloat("API_RATE_LIMIT_RPS", 20),
			RateLimitBurst:  getEnvAsInt("API_RATE_LIMIT_BURST", 40),
			ReadTimeout:     getEnvAsDuration("API_READ_TIMEOUT", "15s"),
			WriteTimeout:    getEnvAsDuration("API_WRITE_TIMEOUT", "60s"),
			ShutdownTimeout: getEnvAsDuration("API_SHUTDOWN_TIMEOUT", "30s"),
			TrustedProxies:  getEnvAsList("API_TRUSTED_PROXIES"),
			AllowedOrigins:  getEnvAsList("API_ALLOWED_ORIGINS"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Database URL is required
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Analytics.BatchConcurrency < 1 {
		return fmt.Errorf("ANALYTICS_BATCH_CONCURRENCY must be >= 1")
	}

	if c.API.RateLimitRPS <= 0 || c.API.RateLimitBurst < 1 {
		return fmt.Errorf("API_RATE_LIMIT_RPS and API_RATE_LIMIT_BURST must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma separated value, dropping blanks
func getEnvAsList(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}

	out := make([]string, 0)
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
