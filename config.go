package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/yashrajoria/storefront-service/database"
	aws_pkg "github.com/yashrajoria/storefront-service/pkg/aws"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	dbCredentialsSecret = "storefront/DB_CREDENTIALS"
	serviceName         = "storefront-service"
)

type Config struct {
	Port   string
	Env    string
	Driver string

	Postgres database.PostgresConfig

	RedisURL           string
	CatalogCacheTTL    time.Duration
	NewAdditionsWindow time.Duration

	KafkaBrokers     []string
	OrderEventsTopic string
	OrderSNSTopicArn string

	ImagesBucket string
	ImageURLTTL  time.Duration

	JWTSecret string

	// TrustGatewayHeaders accepts X-User-ID/X-User-Role and the user
	// cookies even when JWT_SECRET is set.
	TrustGatewayHeaders bool

	CloudWatchEnabled   bool
	CloudWatchNamespace string
	CloudWatchLogGroup  string

	RateLimitPerMinute int
	AllowedOrigins     []string
}

// UsesAWS reports whether any AWS-backed component is configured.
func (c *Config) UsesAWS() bool {
	return c.CloudWatchEnabled || c.OrderSNSTopicArn != "" || c.ImagesBucket != ""
}

func LoadConfig() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	cfg := &Config{
		Port:   getEnv("PORT", "8084"),
		Env:    getEnv("APP_ENV", "development"),
		Driver: strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		Postgres: database.PostgresConfig{
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DB:       os.Getenv("POSTGRES_DB"),
			Host:     os.Getenv("POSTGRES_HOST"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			TimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),
		},
		RedisURL:            os.Getenv("REDIS_URL"),
		KafkaBrokers:        splitList(os.Getenv("KAFKA_BROKERS")),
		OrderEventsTopic:    getEnv("ORDER_EVENTS_TOPIC", "order.completed"),
		OrderSNSTopicArn:    os.Getenv("ORDER_SNS_TOPIC_ARN"),
		ImagesBucket:        os.Getenv("ITEM_IMAGES_BUCKET"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		CloudWatchNamespace: getEnv("CLOUDWATCH_NAMESPACE", "Storefront"),
		CloudWatchLogGroup:  os.Getenv("CLOUDWATCH_LOG_GROUP"),
		AllowedOrigins:      splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	var err error
	if cfg.CatalogCacheTTL, err = getDuration("CATALOG_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.NewAdditionsWindow, err = getDuration("NEW_ADDITIONS_WINDOW", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ImageURLTTL, err = getDuration("IMAGE_URL_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.CloudWatchEnabled, err = getBool("CLOUDWATCH_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.TrustGatewayHeaders, err = getBool("TRUST_GATEWAY_HEADERS", false); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = getInt("RATE_LIMIT_PER_MINUTE", 100); err != nil {
		return nil, err
	}

	if os.Getenv("AWS_USE_SECRETS") == "true" {
		if awsCfg, err := aws_pkg.LoadAWSConfig(context.Background()); err == nil {
			sm := aws_pkg.NewSecretsClient(awsCfg)
			if creds, err := sm.GetDBCredentials(context.Background(), dbCredentialsSecret); err == nil {
				cfg.applyDBCredentials(creds)
			}
		}
	}

	switch cfg.Driver {
	case DriverMemory:
	case DriverPostgres:
		p := cfg.Postgres
		if p.User == "" || p.Password == "" || p.DB == "" || p.Host == "" {
			return nil, fmt.Errorf("database config incomplete")
		}
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.Driver)
	}

	return cfg, nil
}

// applyDBCredentials overrides the env values with the non-empty secret
// fields.
func (c *Config) applyDBCredentials(creds *aws_pkg.DBCredentials) {
	if creds.User != "" {
		c.Postgres.User = creds.User
	}
	if creds.Password != "" {
		c.Postgres.Password = creds.Password
	}
	if creds.DBName != "" {
		c.Postgres.DB = creds.DBName
	}
	if creds.Host != "" {
		c.Postgres.Host = creds.Host
	}
	if creds.Port != "" {
		c.Postgres.Port = creds.Port
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
