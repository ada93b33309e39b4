package helpers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// MockRedis pairs a go-redis client with the redismock that scripts it.
// Expectations are ordered: set them in the order the code under test will
// issue the commands.
type MockRedis struct {
	Client *redis.Client
	Mock   redismock.ClientMock
}

func NewMockRedis() *MockRedis {
	client, mock := redismock.NewClientMock()
	return &MockRedis{Client: client, Mock: mock}
}

func (m *MockRedis) Close() error {
	return m.Client.Close()
}

// ExpectationsWereMet fails the test if a scripted command was not issued.
func (m *MockRedis) ExpectationsWereMet(t testing.TB) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet())
}

// ExpectCacheHit answers GET key with a raw value.
func (m *MockRedis) ExpectCacheHit(key, raw string) {
	m.Mock.ExpectGet(key).SetVal(raw)
}

// ExpectCachedJSON answers GET key with v encoded the way the cache stores it.
func (m *MockRedis) ExpectCachedJSON(t testing.TB, key string, v any) {
	t.Helper()
	m.ExpectCacheHit(key, mustJSON(t, v))
}

// ExpectCacheMiss answers GET key with redis.Nil.
func (m *MockRedis) ExpectCacheMiss(key string) {
	m.Mock.ExpectGet(key).RedisNil()
}

// ExpectCacheError fails GET key.
func (m *MockRedis) ExpectCacheError(key string, err error) {
	m.Mock.ExpectGet(key).SetErr(err)
}

// ExpectCacheStoreJSON expects SET key with v as JSON and the given TTL.
func (m *MockRedis) ExpectCacheStoreJSON(t testing.TB, key string, v any, ttl time.Duration) {
	t.Helper()
	m.Mock.ExpectSet(key, mustJSON(t, v), ttl).SetVal("OK")
}

func mustJSON(t testing.TB, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
