package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	SyncLive   = "live"
	SyncOnRead = "onread"

	FeedAuto  = "auto"
	FeedMongo = "mongo"
	FeedRedis = "redis"
	FeedKafka = "kafka"
	FeedNone  = "none"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Keycloak  KeycloakConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Kafka     KafkaConfig
	MinIO     MinIOConfig
	Places    PlacesConfig
	Nominatim NominatimConfig
	LogLevel  string
}

type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// MongoDBConfig; an empty URI selects the in-memory collection.
type MongoDBConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Channel  string
}

func (r RedisConfig) Addr() string { return r.Host + ":" + r.Port }

type KeycloakConfig struct {
	URL      string
	Realm    string
	ClientID string
}

type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
	AllowInsecure  bool
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type PlacesConfig struct {
	SyncMode   string
	ChangeFeed string
}

type NominatimConfig struct {
	URL       string
	UserAgent string
	Limit     int
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "5001")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", 10)
	v.SetDefault("MONGODB_DATABASE", "snacktacular")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_CHANNEL", "places:changed")
	v.SetDefault("JWT_ACCESS_TOKEN_TTL", 15)
	v.SetDefault("RATE_LIMIT_RPS", 10.0)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	v.SetDefault("KAFKA_TOPIC", "places.changed")
	v.SetDefault("KAFKA_GROUP_ID", "")
	v.SetDefault("MINIO_BUCKET", "snacktacular")
	v.SetDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org")
	v.SetDefault("NOMINATIM_USER_AGENT", "snacktacular-places/1.0")
	v.SetDefault("NOMINATIM_LIMIT", 5)
	v.SetDefault("PLACES_SYNC_MODE", SyncLive)
	v.SetDefault("CHANGE_FEED", FeedAuto)
	v.SetDefault("LOG_LEVEL", "info")

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetString("SERVER_PORT"),
			Host:            v.GetString("SERVER_HOST"),
			Environment:     v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: time.Duration(v.GetInt("SERVER_SHUTDOWN_TIMEOUT")) * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:        v.GetString("MONGODB_URI"),
			Database:   v.GetString("MONGODB_DATABASE"),
			Collection: "places",
			Timeout:    time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Channel:  v.GetString("REDIS_CHANNEL"),
		},
		Keycloak: KeycloakConfig{
			URL:      v.GetString("KEYCLOAK_URL"),
			Realm:    v.GetString("KEYCLOAK_REALM"),
			ClientID: v.GetString("KEYCLOAK_CLIENT_ID"),
		},
		JWT: JWTConfig{
			Secret:         os.Getenv("JWT_SECRET"),
			AccessTokenTTL: time.Duration(v.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
			AllowInsecure:  v.GetBool("ALLOW_INSECURE_TOKEN"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
			GroupID: v.GetString("KAFKA_GROUP_ID"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
		},
		Places: PlacesConfig{
			SyncMode:   strings.ToLower(strings.TrimSpace(v.GetString("PLACES_SYNC_MODE"))),
			ChangeFeed: strings.ToLower(strings.TrimSpace(v.GetString("CHANGE_FEED"))),
		},
		Nominatim: NominatimConfig{
			URL:       v.GetString("NOMINATIM_URL"),
			UserAgent: v.GetString("NOMINATIM_USER_AGENT"),
			Limit:     v.GetInt("NOMINATIM_LIMIT"),
		},
		LogLevel: v.GetString("LOG_LEVEL"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings that cannot be wired at startup.
func (c *Config) Validate() error {
	switch c.Places.SyncMode {
	case SyncLive, SyncOnRead:
	default:
		return fmt.Errorf("PLACES_SYNC_MODE must be %q or %q, got %q", SyncLive, SyncOnRead, c.Places.SyncMode)
	}
	switch c.Places.ChangeFeed {
	case FeedAuto, FeedMongo, FeedNone:
	case FeedRedis:
		if c.Redis.Host == "" {
			return fmt.Errorf("CHANGE_FEED=redis requires REDIS_HOST")
		}
	case FeedKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("CHANGE_FEED=kafka requires KAFKA_BROKERS")
		}
	default:
		return fmt.Errorf("unknown CHANGE_FEED %q", c.Places.ChangeFeed)
	}
	if c.Places.ChangeFeed == FeedMongo && c.MongoDB.URI == "" {
		return fmt.Errorf("CHANGE_FEED=mongo requires MONGODB_URI")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
