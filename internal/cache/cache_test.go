package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/weathernow/internal/models"
	"github.com/valpere/weathernow/tests/helpers"
)

func TestCache_GetJSON(t *testing.T) {
	ctx := context.Background()

	t.Run("hit", func(t *testing.T) {
		mockRedis := helpers.NewMockRedis()
		defer mockRedis.Close()
		c := New(mockRedis.Client)

		mockRedis.ExpectCacheHit("geocode:en:5:london", `[{"id":2643743,"name":"London","country":"United Kingdom"}]`)

		var got []models.Suggestion
		ok, err := c.GetJSON(ctx, "geocode:en:5:london", &got)

		require.NoError(t, err)
		assert.True(t, ok)
		require.Len(t, got, 1)
		assert.Equal(t, "London", got[0].Name)
		mockRedis.ExpectationsWereMet(t)
	})

	t.Run("miss", func(t *testing.T) {
		mockRedis := helpers.NewMockRedis()
		defer mockRedis.Close()
		c := New(mockRedis.Client)

		mockRedis.ExpectCacheMiss("geocode:en:5:nowhere")

		var got []models.Suggestion
		ok, err := c.GetJSON(ctx, "geocode:en:5:nowhere", &got)

		require.NoError(t, err)
		assert.False(t, ok)
		mockRedis.ExpectationsWereMet(t)
	})

	t.Run("redis error", func(t *testing.T) {
		mockRedis := helpers.NewMockRedis()
		defer mockRedis.Close()
		c := New(mockRedis.Client)

		mockRedis.ExpectCacheError("forecast:1.0000:1.0000", errors.New("connection reset"))

		var got models.WeatherReport
		ok, err := c.GetJSON(ctx, "forecast:1.0000:1.0000", &got)

		assert.False(t, ok)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset")
	})

	t.Run("corrupt value", func(t *testing.T) {
		mockRedis := helpers.NewMockRedis()
		defer mockRedis.Close()
		c := New(mockRedis.Client)

		mockRedis.ExpectCacheHit("forecast:2.0000:2.0000", "{not json")

		var got models.WeatherReport
		ok, err := c.GetJSON(ctx, "forecast:2.0000:2.0000", &got)

		assert.False(t, ok)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode cache key")
	})
}

func TestCache_SetJSON(t *testing.T) {
	mockRedis := helpers.NewMockRedis()
	defer mockRedis.Close()
	c := New(mockRedis.Client)

	value := []models.Suggestion{{ID: 1, Name: "Oslo", Country: "Norway", Latitude: 59.91, Longitude: 10.75}}
	mockRedis.Mock.ExpectSet("geocode:en:5:oslo",
		`[{"id":1,"name":"Oslo","country":"Norway","latitude":59.91,"longitude":10.75}]`, time.Hour).SetVal("OK")

	require.NoError(t, c.SetJSON(context.Background(), "geocode:en:5:oslo", value, time.Hour))
	mockRedis.ExpectationsWereMet(t)
}

func TestCache_NilIsAlwaysMissing(t *testing.T) {
	var c *Cache

	var out models.WeatherReport
	ok, err := c.GetJSON(context.Background(), "any", &out)
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, c.SetJSON(context.Background(), "any", out, time.Minute))
	assert.NoError(t, c.Close())
}
