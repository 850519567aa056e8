package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FIREBASE_PROJECT_ID", "campus-errands")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "errand-lifecycle-events", cfg.KafkaTopic)
	assert.Equal(t, "errand:lifecycle_events", cfg.EventStream)
	assert.Equal(t, 60, cfg.MutateRateLimit)
	assert.Equal(t, time.Minute, cfg.MutateRateWindow)
	assert.Equal(t, "campus-errands", cfg.FirebaseProjectID)
	assert.False(t, cfg.DevMode)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FIREBASE_PROJECT_ID", "campus-errands")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092 ,")
	t.Setenv("MUTATE_RATE_LIMIT", "10")
	t.Setenv("MUTATE_RATE_WINDOW_SEC", "5")
	t.Setenv("DEV_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 10, cfg.MutateRateLimit)
	assert.Equal(t, 5*time.Second, cfg.MutateRateWindow)
	assert.True(t, cfg.DevMode)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("FIREBASE_PROJECT_ID", "campus-errands")

	t.Run("non-numeric redis db", func(t *testing.T) {
		t.Setenv("REDIS_DB", "abc")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("zero rate limit", func(t *testing.T) {
		t.Setenv("MUTATE_RATE_LIMIT", "0")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("negative rate window", func(t *testing.T) {
		t.Setenv("MUTATE_RATE_WINDOW_SEC", "-1")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoadRequiresFirebaseProject(t *testing.T) {
	t.Setenv("FIREBASE_PROJECT_ID", "")
	_, err := Load()
	assert.Error(t, err)
}
