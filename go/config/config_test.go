package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5173", c.FrontendURL)
	assert.Equal(t, "http://localhost:8081", c.LocustURL)
	assert.Equal(t, uint32(80), c.GridRadius)
	assert.Equal(t, uint8(8), c.GridBatchDiv)
	assert.False(t, c.UseBenchmarkData)
	assert.Equal(t, "redis://127.0.0.1:6379", c.RedisURL)
	assert.False(t, c.WithRedisTests)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("GRID_RADIUS", "10")
	t.Setenv("GRID_BATCH_DIV", "2")
	t.Setenv("USE_BENCHMARK_DATA", "true")
	t.Setenv("REDIS_URL", "redis://store:6379")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, uint32(10), c.GridRadius)
	assert.Equal(t, uint8(2), c.GridBatchDiv)
	assert.True(t, c.UseBenchmarkData)
	assert.Equal(t, "redis://store:6379", c.RedisURL)
}

func TestFromEnv_MalformedValue(t *testing.T) {
	t.Setenv("GRID_RADIUS", "not-a-number")
	_, err := FromEnv()
	assert.Error(t, err)
}
