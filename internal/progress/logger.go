package progress

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Metadata fields kept alongside step entries in each attempt-log hash.
const (
	fieldFuelID = "fuel_id"
	fieldIndex  = "index"
)

// Logger writes append-only attempt logs into Redis and publishes every
// entry on the live progress channel.
type Logger struct {
	client *redis.Client
	logger *zap.Logger
}

// NewLogger constructs a runtime logger.
func NewLogger(client *redis.Client, logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{client: client, logger: logger}
}

// Start opens the attempt log for one goal, resetting any stale log under the
// same key and recording which token and wish-list slot it belongs to.
func (l *Logger) Start(ctx context.Context, key, fuelID string, index int) (*RunLog, error) {
	pipe := l.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fieldFuelID, fuelID, fieldIndex, strconv.Itoa(index))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("start attempt log %s: %w", key, err)
	}
	return &RunLog{parent: l, key: key, attempt: 1}, nil
}

// Subscribe opens the live progress stream. The returned cancel function
// closes the subscription.
func (l *Logger) Subscribe(ctx context.Context) (<-chan *redis.Message, func()) {
	sub := l.client.Subscribe(ctx, Channel)
	return sub.Channel(), func() { _ = sub.Close() }
}

func (l *Logger) publish(ctx context.Context, raw string) {
	if err := l.client.Publish(ctx, Channel, raw).Err(); err != nil {
		l.logger.Warn("progress publish failed", zap.String("event", raw), zap.Error(err))
	}
}

// RunLog is the per-goal view of the attempt log. Step entries are suffixed
// with the attempt number so retries append instead of overwriting.
type RunLog struct {
	parent  *Logger
	key     string
	attempt int
}

// Key returns the log key (username-coursename).
func (r *RunLog) Key() string { return r.key }

// Step records one step outcome and publishes it.
func (r *RunLog) Step(ctx context.Context, field, message string) {
	entry := fmt.Sprintf("%s-%d", field, r.attempt)
	if err := r.parent.client.HSet(ctx, r.key, entry, message).Err(); err != nil {
		r.parent.logger.Warn("attempt log write failed",
			zap.String("key", r.key), zap.String("field", entry), zap.Error(err))
	}
	r.parent.publish(ctx, FormatEvent(r.key, field, message))
}

// Retry bumps the retry counter, advances the attempt suffix and publishes
// the running count.
func (r *RunLog) Retry(ctx context.Context) {
	count, err := r.parent.client.HIncrBy(ctx, r.key, RetryField, 1).Result()
	if err != nil {
		r.parent.logger.Warn("retry counter write failed", zap.String("key", r.key), zap.Error(err))
		count = int64(r.attempt)
	}
	r.attempt++
	r.parent.publish(ctx, FormatEvent(r.key, RetryField, strconv.FormatInt(count, 10)))
}
