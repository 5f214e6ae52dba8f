package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	// empty values count as unset and fall back to the defaults
	t.Setenv("MONGODB_URI", "")
	t.Setenv("PLACES_SYNC_MODE", "")
	t.Setenv("CHANGE_FEED", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg.MongoDB.URI, "no URI selects the memory backend")
	assert.Equal(t, "places", cfg.MongoDB.Collection)
	assert.Equal(t, SyncLive, cfg.Places.SyncMode)
	assert.Equal(t, FeedAuto, cfg.Places.ChangeFeed)
	assert.Equal(t, 10*time.Second, cfg.MongoDB.Timeout)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("MONGODB_DATABASE", "snack_test")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("JWT_SECRET", "testsecret123456789012345678901234")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("PLACES_SYNC_MODE", "OnRead")
	t.Setenv("CHANGE_FEED", "kafka")
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "snack_test", cfg.MongoDB.Database)
	assert.Equal(t, "localhost:6380", cfg.Redis.Addr())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, SyncOnRead, cfg.Places.SyncMode)
	assert.Equal(t, FeedKafka, cfg.Places.ChangeFeed)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 2.5, cfg.RateLimit.RPS)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{Places: PlacesConfig{SyncMode: SyncLive, ChangeFeed: FeedAuto}}
	}
	require.NoError(t, base().Validate())

	c := base()
	c.Places.SyncMode = "sometimes"
	require.Error(t, c.Validate())

	c = base()
	c.Places.ChangeFeed = FeedRedis
	require.Error(t, c.Validate())
	c.Redis.Host = "localhost"
	require.NoError(t, c.Validate())

	c = base()
	c.Places.ChangeFeed = FeedKafka
	require.Error(t, c.Validate())

	c = base()
	c.Places.ChangeFeed = FeedMongo
	require.Error(t, c.Validate())

	c = base()
	c.Places.ChangeFeed = "carrier-pigeon"
	require.Error(t, c.Validate())
}
