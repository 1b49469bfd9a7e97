package payments

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, func() {
		client.Close()
		mr.Close()
	}
}

func TestVelocityChecker_CheckOrderVelocity(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	config := DefaultVelocityConfig()
	config.MaxOrdersPerPatient = 3
	config.OrderWindow = time.Hour

	checker := NewVelocityChecker(redisClient, config, nil)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		result, err := checker.CheckOrderVelocity(ctx, "patient-1")
		require.NoError(t, err)
		assert.True(t, result.Allowed, "attempt %d should be allowed", i)
		assert.Equal(t, i, result.CurrentCount)
	}

	result, err := checker.CheckOrderVelocity(ctx, "patient-1")
	require.NoError(t, err)
	assert.False(t, result.Allowed, "fourth attempt should be throttled")
	assert.NotEmpty(t, result.Message)

	// Other patients are counted independently.
	other, err := checker.CheckOrderVelocity(ctx, "patient-2")
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestVelocityChecker_ResetOrderVelocity(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	config := DefaultVelocityConfig()
	config.MaxOrdersPerPatient = 1

	checker := NewVelocityChecker(redisClient, config, nil)
	ctx := context.Background()

	_, err := checker.CheckOrderVelocity(ctx, "patient-1")
	require.NoError(t, err)
	blocked, err := checker.CheckOrderVelocity(ctx, "patient-1")
	require.NoError(t, err)
	assert.False(t, blocked.Allowed)

	require.NoError(t, checker.ResetOrderVelocity(ctx, "patient-1"))

	fresh, err := checker.CheckOrderVelocity(ctx, "patient-1")
	require.NoError(t, err)
	assert.True(t, fresh.Allowed)
}

func TestVelocityChecker_DisabledWithoutRedis(t *testing.T) {
	checker := NewVelocityChecker(nil, DefaultVelocityConfig(), nil)

	result, err := checker.CheckOrderVelocity(context.Background(), "patient-1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	var nilChecker *VelocityChecker
	result, err = nilChecker.CheckOrderVelocity(context.Background(), "patient-1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}
