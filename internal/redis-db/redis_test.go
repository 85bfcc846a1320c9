package redis_db

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected *redis.Options
		wantErr  bool
	}{
		{
			name:     "simple docker style",
			url:      "redis:6379",
			expected: &redis.Options{Addr: "redis:6379"},
		},
		{
			name:     "redis url with password",
			url:      "redis://:password123@localhost:6379",
			expected: &redis.Options{Addr: "localhost:6379", Password: "password123"},
		},
		{
			name:     "redis url with bare password",
			url:      "redis://secret@localhost:6379",
			expected: &redis.Options{Addr: "localhost:6379", Password: "secret"},
		},
		{
			name:     "azure redis url",
			url:      "myinstance.redis.cache.windows.net:6380",
			expected: &redis.Options{Addr: "myinstance.redis.cache.windows.net:6380"},
		},
		{
			name:    "empty address",
			url:     "  ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRedisURL(tt.url, false)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected.Addr, got.Addr)
			assert.Equal(t, tt.expected.Password, got.Password)
		})
	}
}

func TestNewRedisClient_EmptyAddresses(t *testing.T) {
	client, err := NewRedisClient([]string{}, false)
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client, err := NewRedisClient([]string{addr}, false)
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestNewRedisClient_Miniredis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient([]string{mr.Addr()}, false)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	err = client.Client().Set(ctx, "test_key", "test_value", time.Minute).Err()
	assert.NoError(t, err)

	got, err := client.Client().Get(ctx, "test_key").Result()
	assert.NoError(t, err)
	assert.Equal(t, "test_value", got)

	assert.NoError(t, client.Client().Del(ctx, "test_key").Err())
	_, err = client.Client().Get(ctx, "test_key").Result()
	assert.Equal(t, redis.Nil, err)
}
