package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	DispatchModeLocal = "local"
	DispatchModeAMQP  = "amqp"

	DefaultAPIKey = "hackathon-demo-key-2024"
)

type EnvConfig struct {
	Postgres struct {
		HOST     string
		Database string
		Username string
		Password string
		Port     string
		SSLMode  string
	}
	Store struct {
		Driver string
	}
	CORS struct {
		AllowDomains string
	}
	Redis struct {
		Password  string
		Database  int
		RedisHost string
		RedisPort string
	}
	RabbitMQ struct {
		Host     string
		Port     string
		Username string
		Password string
	}
	Minio struct {
		Endpoint      string
		AccessKey     string
		SecretKey     string
		UseSSL        bool
		Bucket        string
		Region        string
		PresignExpiry time.Duration
	}
	Auth struct {
		APIKeys      []string
		JWTSecretKey string
	}
	RateLimit struct {
		MaxRequests int
		Window      time.Duration
		KeySecret   string // HMAC key for bucket ids
	}
	Pipeline struct {
		ProcessTimeout  time.Duration
		UploadTimeout   time.Duration
		ProcessingDelay time.Duration
		VideoQuality    string
		DispatchMode    string
	}
	Grafana struct {
		OTLPEndpoint string
		ServiceName  string
	}
	Environment struct {
		Mode  string
		Group string
	}
	Port    string
	Version string
}

func LoadEnvConfig() *EnvConfig {
	var config EnvConfig

	// Postgres
	config.Postgres.HOST = os.Getenv("PGPOOL_HOST")
	config.Postgres.Database = os.Getenv("PGPOOL_DB")
	config.Postgres.Username = os.Getenv("PGPOOL_USER")
	config.Postgres.Password = os.Getenv("PGPOOL_PASSWORD")
	config.Postgres.Port = getEnv("PGPOOL_PORT", "5432")
	config.Postgres.SSLMode = getEnv("PGPOOL_SSLMODE", "disable")

	config.Store.Driver = strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres))

	config.CORS.AllowDomains = os.Getenv("ALLOWED_DOMAINS")

	config.Redis.Password = os.Getenv("REDIS_PASSWORD")
	config.Redis.Database, _ = strconv.Atoi(os.Getenv("REDIS_DB"))
	config.Redis.RedisHost = os.Getenv("REDIS_HOST")
	config.Redis.RedisPort = getEnv("REDIS_PORT", "6379")

	// RabbitMQ
	config.RabbitMQ.Host = getEnv("RABBITMQ_HOST", "localhost")
	config.RabbitMQ.Port = getEnv("RABBITMQ_PORT", "5672")
	config.RabbitMQ.Username = getEnv("RABBITMQ_USER", "guest")
	config.RabbitMQ.Password = getEnv("RABBITMQ_PASSWORD", "guest")

	// MinIO is only used to sign URLs, so the endpoint defaults to S3 itself
	config.Minio.Endpoint = getEnv("MINIO_ENDPOINT", "s3.amazonaws.com")
	config.Minio.AccessKey = getEnv("MINIO_ACCESS_KEY", "focus-tracker")
	config.Minio.SecretKey = getEnv("MINIO_SECRET_KEY", "focus-tracker-secret")
	config.Minio.UseSSL = getEnvBool("MINIO_USE_SSL", true)
	config.Minio.Bucket = getEnv("MINIO_BUCKET", "focus-tracker-media-bucket")
	config.Minio.Region = getEnv("MINIO_REGION", "us-east-1")
	config.Minio.PresignExpiry = getEnvDuration("PRESIGN_EXPIRY", time.Hour)

	// Auth
	primaryKey := getEnv("API_KEY", DefaultAPIKey)
	config.Auth.APIKeys = append([]string{primaryKey}, splitList(os.Getenv("API_KEYS"))...)
	config.Auth.JWTSecretKey = os.Getenv("JWT_SECRET_KEY")

	// 100 requests per 15 minutes per credential
	config.RateLimit.MaxRequests = getEnvInt("RATE_LIMIT_MAX", 100)
	config.RateLimit.Window = getEnvDuration("RATE_LIMIT_WINDOW", 15*time.Minute)
	config.RateLimit.KeySecret = rateLimitSecret(config.Auth.JWTSecretKey)

	config.Pipeline.ProcessTimeout = getEnvDuration("PROCESS_TIMEOUT", 30*time.Second)
	config.Pipeline.UploadTimeout = getEnvDuration("UPLOAD_TIMEOUT", 30*time.Second)
	config.Pipeline.ProcessingDelay = getEnvDuration("PROCESSING_DELAY", 0)
	config.Pipeline.VideoQuality = getEnv("VIDEO_QUALITY", "720p")
	config.Pipeline.DispatchMode = strings.ToLower(getEnv("DISPATCH_MODE", DispatchModeLocal))

	// Grafana/OpenTelemetry
	grafanaEndpoint := os.Getenv("GRAFANA_OTLP_ENDPOINT")
	// Remove protocol for OpenTelemetry client to avoid duplicate protocols
	if strings.HasPrefix(grafanaEndpoint, "https://") {
		config.Grafana.OTLPEndpoint = strings.TrimPrefix(grafanaEndpoint, "https://")
	} else if strings.HasPrefix(grafanaEndpoint, "http://") {
		config.Grafana.OTLPEndpoint = strings.TrimPrefix(grafanaEndpoint, "http://")
	} else {
		config.Grafana.OTLPEndpoint = grafanaEndpoint
	}
	config.Grafana.ServiceName = getEnv("SERVICE_NAME", "gau-focus-service")

	config.Environment.Mode = getEnv("DEPLOY_ENV", "development")
	config.Environment.Group = getEnv("GROUP_NAME", "local")

	config.Port = getEnv("PORT", "5000")
	config.Version = getEnv("SERVICE_VERSION", "2.0.0")

	return &config
}

// IsDevelopment reports whether logs should go to stdout instead of OTLP.
func (c *EnvConfig) IsDevelopment() bool {
	return c.Environment.Mode == "development" || c.Grafana.OTLPEndpoint == ""
}

// PostgresDSN builds the libpq connection string for gorm.
func (c *EnvConfig) PostgresDSN() string {
	return "host=" + c.Postgres.HOST +
		" user=" + c.Postgres.Username +
		" password=" + c.Postgres.Password +
		" dbname=" + c.Postgres.Database +
		" port=" + c.Postgres.Port +
		" sslmode=" + c.Postgres.SSLMode
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("30s") or bare seconds ("30").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// rateLimitSecret prefers RATE_LIMIT_SECRET, then the JWT secret. Without
// either a random key is generated, so buckets are not shared across instances.
func rateLimitSecret(jwtSecret string) string {
	if secret := os.Getenv("RATE_LIMIT_SECRET"); secret != "" {
		return secret
	}
	if jwtSecret != "" {
		return jwtSecret
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic("Failed to generate rate limit secret: " + err.Error())
	}
	log.Println("Warning: RATE_LIMIT_SECRET not set, using a per-process key")
	return hex.EncodeToString(buf)
}
