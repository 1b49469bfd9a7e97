package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medibook/medibook-platform/pkg/logging"
)

// VelocityChecker throttles payment order creation per patient. It exists
// to keep a misbehaving client from minting unbounded gateway orders.
type VelocityChecker struct {
	redis  *redis.Client
	logger *logging.Logger
	config VelocityConfig
}

// VelocityConfig contains velocity check configuration.
type VelocityConfig struct {
	// Max order creations per patient per window
	MaxOrdersPerPatient int
	OrderWindow         time.Duration

	Enabled bool
}

// DefaultVelocityConfig returns default velocity limits.
func DefaultVelocityConfig() VelocityConfig {
	return VelocityConfig{
		MaxOrdersPerPatient: 5,
		OrderWindow:         time.Hour,
		Enabled:             true,
	}
}

// VelocityResult contains the result of a velocity check.
type VelocityResult struct {
	Allowed      bool
	CurrentCount int
	MaxAllowed   int
	WindowExpiry time.Time
	Message      string
}

// NewVelocityChecker creates a new velocity checker. A nil redis client
// disables the check entirely.
func NewVelocityChecker(redisClient *redis.Client, config VelocityConfig, logger *logging.Logger) *VelocityChecker {
	if logger == nil {
		logger = logging.Default()
	}
	return &VelocityChecker{
		redis:  redisClient,
		logger: logger,
		config: config,
	}
}

// CheckOrderVelocity checks whether the patient may create another gateway
// order. Redis failures fail open: an unavailable counter must not block
// payments.
func (v *VelocityChecker) CheckOrderVelocity(ctx context.Context, patientID string) (*VelocityResult, error) {
	if v == nil || v.redis == nil || !v.config.Enabled {
		return &VelocityResult{Allowed: true}, nil
	}

	key := fmt.Sprintf("velocity:orders:%s", patientID)
	count, expiry, err := v.incrementAndGet(ctx, key, v.config.OrderWindow)
	if err != nil {
		v.logger.Error("velocity check failed", "error", err, "key", key)
		return &VelocityResult{Allowed: true, Message: "velocity check unavailable"}, nil
	}

	result := &VelocityResult{
		Allowed:      count <= v.config.MaxOrdersPerPatient,
		CurrentCount: count,
		MaxAllowed:   v.config.MaxOrdersPerPatient,
		WindowExpiry: expiry,
	}
	if !result.Allowed {
		result.Message = fmt.Sprintf("exceeded %d payment orders in %s", v.config.MaxOrdersPerPatient, v.config.OrderWindow)
		v.logger.Warn("order velocity exceeded",
			"patient_id", patientID,
			"count", count,
			"max", v.config.MaxOrdersPerPatient,
		)
	}
	return result, nil
}

// ResetOrderVelocity clears the counter for a patient (admin use).
func (v *VelocityChecker) ResetOrderVelocity(ctx context.Context, patientID string) error {
	if v == nil || v.redis == nil {
		return nil
	}
	return v.redis.Del(ctx, fmt.Sprintf("velocity:orders:%s", patientID)).Err()
}

func (v *VelocityChecker) incrementAndGet(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	count, err := v.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, time.Time{}, err
	}

	// Set expiry only on first increment
	if count == 1 {
		v.redis.Expire(ctx, key, window)
	}

	ttl, err := v.redis.TTL(ctx, key).Result()
	if err != nil {
		ttl = window
	}
	return int(count), time.Now().Add(ttl), nil
}
