package redis

import (
	"context"
	"testing"
	"time"

	"court-reservation-engine/config"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Connects(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.RedisConfig{Host: mr.Host(), Port: atoiPort(t, mr.Port())}

	client, err := NewClient(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	hc := NewHealthCheck(client)
	assert.Equal(t, "redis", hc.Name())
	assert.NoError(t, hc.Ping(context.Background()))
}

func TestNewClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.RedisConfig{Host: mr.Host(), Port: atoiPort(t, mr.Port())}
	mr.Close()

	_, err := NewClient(context.Background(), cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "pinging redis")
}

func TestHealthCheck_ReportsOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.RedisConfig{Host: mr.Host(), Port: atoiPort(t, mr.Port())}

	client, err := NewClient(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	mr.Close()
	assert.Error(t, NewHealthCheck(client).Ping(context.Background()))
}

func TestHealthCheck_HoldIndexWrongType(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()
	hc := NewHealthCheck(client)

	require.NoError(t, mr.Set("holds:expiry", "oops"))
	assert.ErrorContains(t, hc.Ping(context.Background()), "want zset")

	mr.Del("holds:expiry")
	_, err := mr.ZAdd("holds:expiry", 1, "slot")
	require.NoError(t, err)
	assert.NoError(t, hc.Ping(context.Background()))
}

func TestOptions_OpTimeout(t *testing.T) {
	opts := options(config.RedisConfig{Host: "redis.local", Port: 6379, DB: 2, OpTimeout: 250 * time.Millisecond})
	assert.Equal(t, "redis.local:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 250*time.Millisecond, opts.ReadTimeout)
	assert.Equal(t, 250*time.Millisecond, opts.WriteTimeout)

	opts = options(config.RedisConfig{Host: "redis.local", Port: 6379})
	assert.Zero(t, opts.ReadTimeout, "zero keeps the client default")
}
