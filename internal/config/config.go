package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	AppName string
	Env     string
	Host    string
	Port    int

	JWTSecret          string
	AccessTokenMinutes int
	BcryptCost         int

	// StoreDriver selects the document store backend:
	// memory | sqlite | postgres | redis | scylla.
	StoreDriver    string
	SQLitePath     string
	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	ScyllaHosts    []string
	ScyllaKeyspace string
	ScyllaNodeID   int64

	// FeedDriver selects the change feed: local | redis | nats | kafka.
	FeedDriver   string
	NatsURL      string
	KafkaBrokers []string
	KafkaTopic   string

	UploadDir      string
	PublicBaseURL  string
	MaxUploadBytes int64

	PresenceWriteTimeout time.Duration
	StatusWriteWorkers   int

	CORSOrigins []string
	LogLevel    string
	LogFormat   string
	Debug       bool
}

// Load reads configuration from the environment and, when CONFIG_FILE is set,
// from that yaml file. Environment variables win over file values.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return nil, errors.New("config file not found")
			}
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return parse(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "ErroOps chat core")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 8000)

	v.SetDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 60*24)
	v.SetDefault("BCRYPT_COST", 0)

	v.SetDefault("STORE_DRIVER", "sqlite")
	v.SetDefault("SQLITE_PATH", "chat.db")
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_PASSWORD", "postgres")
	v.SetDefault("POSTGRES_DB", "chat")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SCYLLA_HOSTS", "localhost:9042")
	v.SetDefault("SCYLLA_KEYSPACE", "chat")
	v.SetDefault("SCYLLA_NODE_ID", 1)

	v.SetDefault("FEED_DRIVER", "local")
	v.SetDefault("NATS_URL", "nats://127.0.0.1:4222")
	v.SetDefault("KAFKA_BROKERS", "localhost:19092")
	v.SetDefault("KAFKA_TOPIC", "chat-changes")

	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8000")
	v.SetDefault("MAX_UPLOAD_BYTES", 50<<20)

	v.SetDefault("PRESENCE_WRITE_TIMEOUT", "5s")
	v.SetDefault("STATUS_WRITE_WORKERS", 8)

	v.SetDefault("CORS_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("DEBUG", true)
}

func parse(v *viper.Viper) (*Config, error) {
	dbURL := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(v.GetString("POSTGRES_USER"), v.GetString("POSTGRES_PASSWORD")),
		Host:     fmt.Sprintf("%s:%s", v.GetString("POSTGRES_HOST"), v.GetString("POSTGRES_PORT")),
		Path:     v.GetString("POSTGRES_DB"),
		RawQuery: "sslmode=disable",
	}

	cfg := &Config{
		AppName: v.GetString("APP_NAME"),
		Env:     v.GetString("APP_ENV"),
		Host:    v.GetString("HTTP_HOST"),
		Port:    v.GetInt("HTTP_PORT"),

		JWTSecret:          v.GetString("JWT_SECRET"),
		AccessTokenMinutes: v.GetInt("ACCESS_TOKEN_EXPIRE_MINUTES"),
		BcryptCost:         v.GetInt("BCRYPT_COST"),

		StoreDriver:    strings.ToLower(v.GetString("STORE_DRIVER")),
		SQLitePath:     v.GetString("SQLITE_PATH"),
		DatabaseURL:    dbURL.String(),
		RedisAddr:      v.GetString("REDIS_ADDR"),
		RedisPassword:  v.GetString("REDIS_PASSWORD"),
		RedisDB:        v.GetInt("REDIS_DB"),
		ScyllaHosts:    splitList(v.GetString("SCYLLA_HOSTS")),
		ScyllaKeyspace: v.GetString("SCYLLA_KEYSPACE"),
		ScyllaNodeID:   v.GetInt64("SCYLLA_NODE_ID"),

		FeedDriver:   strings.ToLower(v.GetString("FEED_DRIVER")),
		NatsURL:      v.GetString("NATS_URL"),
		KafkaBrokers: splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:   v.GetString("KAFKA_TOPIC"),

		UploadDir:      v.GetString("UPLOAD_DIR"),
		PublicBaseURL:  strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		MaxUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),

		PresenceWriteTimeout: v.GetDuration("PRESENCE_WRITE_TIMEOUT"),
		StatusWriteWorkers:   v.GetInt("STATUS_WRITE_WORKERS"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),
		Debug:     v.GetBool("DEBUG"),
	}

	if dsn := v.GetString("DATABASE_URL"); dsn != "" {
		cfg.DatabaseURL = dsn
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	switch cfg.StoreDriver {
	case "memory", "sqlite", "postgres", "redis", "scylla":
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	switch cfg.FeedDriver {
	case "local", "redis", "nats", "kafka":
	default:
		return nil, fmt.Errorf("unknown FEED_DRIVER %q", cfg.FeedDriver)
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}

	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
