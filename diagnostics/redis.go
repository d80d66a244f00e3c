package diagnostics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisReporter struct {
	rdb *redis.Client

	prefix string
	// ttl only applies to the time series keys, totals don't expire.
	ttl    time.Duration
	bucket string // "minute" (default) or "none".
}

// RedisOption configures the redis reporter.
type RedisOption func(*redisReporter)

// WithRedisPrefix sets the prefix of the keys.
func WithRedisPrefix(prefix string) RedisOption {
	return func(r *redisReporter) {
		r.prefix = strings.Trim(prefix, ":")
	}
}

// WithRedisTTL sets the expiration of the time series keys.
func WithRedisTTL(d time.Duration) RedisOption {
	return func(r *redisReporter) { r.ttl = d }
}

// WithRedisBucket sets the time series bucket, "minute" or "none".
func WithRedisBucket(bucket string) RedisOption {
	return func(r *redisReporter) { r.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

// NewRedisReporter returns a reporter that keeps counters of the events on redis so
// they can be aggregated across the processes. For every event it increments:
//
//   - <prefix>:total hash, field <operation>:<state>.
//   - <prefix>:minute:<yyyymmddhhmm> hash, same field (if minute buckets are enabled).
//   - <prefix>:cause hash, field <operation>:<cause>.
//
// A nil client reports nothing.
func NewRedisReporter(rdb *redis.Client, opts ...RedisOption) Reporter {
	r := &redisReporter{
		rdb:    rdb,
		prefix: "gorchestrator:diagnostics",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *redisReporter) Report(ctx context.Context, ev Event) error {
	if r == nil || r.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	field := ev.Info.Name + ":" + string(ev.State)

	pipe := r.rdb.Pipeline()
	pipe.HIncrBy(ctx, r.prefix+":total", field, 1)

	if r.bucket == "minute" {
		bucketKey := fmt.Sprintf("%s:minute:%s", r.prefix, at.UTC().Format("200601021504"))
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if r.ttl > 0 {
			pipe.Expire(ctx, bucketKey, r.ttl)
		}
	}

	pipe.HIncrBy(ctx, r.prefix+":cause", ev.Info.Name+":"+ev.Cause(), 1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("could not store diagnostic event on redis: %w", err)
	}

	return nil
}
