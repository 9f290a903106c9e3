package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter implements Limiter on Redis so that multiple gateway
// instances share the same bucket counts. Each (identifier, window, bucket)
// triple maps to one key incremented with INCR and expired after two window
// lengths, which makes the periodic sweep unnecessary on this backend.
//
// Check and Record stay separate round trips, preserving the same relaxed
// check-then-act semantics as the in-memory limiter.
type RedisLimiter struct {
	client *redis.Client

	maxPerMinute int
	maxPerHour   int
	now          func() time.Time
}

func NewRedis(redisURL string, maxPerMinute, maxPerHour int) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisLimiter{
		client:       client,
		maxPerMinute: maxPerMinute,
		maxPerHour:   maxPerHour,
		now:          time.Now,
	}, nil
}

func (r *RedisLimiter) redisKey(identifier, window string, t time.Time) string {
	switch window {
	case WindowMinute:
		return fmt.Sprintf("ratelimit:%s:minute:%d", identifier, t.Unix()/60)
	default:
		return fmt.Sprintf("ratelimit:%s:hour:%d", identifier, t.Unix()/3600)
	}
}

func (r *RedisLimiter) Check(ctx context.Context, identifier string) (Decision, error) {
	now := r.now()

	minuteCount, err := r.client.Get(ctx, r.redisKey(identifier, WindowMinute, now)).Int()
	if err != nil && err != redis.Nil {
		return Decision{}, err
	}
	if minuteCount >= r.maxPerMinute {
		return Decision{Window: WindowMinute, ResetAt: nextBucket(now, time.Minute)}, nil
	}

	hourCount, err := r.client.Get(ctx, r.redisKey(identifier, WindowHour, now)).Int()
	if err != nil && err != redis.Nil {
		return Decision{}, err
	}
	if hourCount >= r.maxPerHour {
		return Decision{Window: WindowHour, ResetAt: nextBucket(now, time.Hour)}, nil
	}

	return Decision{Allowed: true}, nil
}

func (r *RedisLimiter) Record(ctx context.Context, identifier string) error {
	now := r.now()

	pipe := r.client.Pipeline()
	minuteKey := r.redisKey(identifier, WindowMinute, now)
	hourKey := r.redisKey(identifier, WindowHour, now)

	pipe.Incr(ctx, minuteKey)
	pipe.Expire(ctx, minuteKey, 2*time.Minute)
	pipe.Incr(ctx, hourKey)
	pipe.Expire(ctx, hourKey, 2*time.Hour)

	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisLimiter) Usage(ctx context.Context, identifier string) (Usage, error) {
	now := r.now()

	var u Usage
	minuteCount, err := r.client.Get(ctx, r.redisKey(identifier, WindowMinute, now)).Int()
	if err != nil && err != redis.Nil {
		return u, err
	}
	hourCount, err := r.client.Get(ctx, r.redisKey(identifier, WindowHour, now)).Int()
	if err != nil && err != redis.Nil {
		return u, err
	}

	u.Minute = minuteCount
	u.Hour = hourCount
	return u, nil
}

func (r *RedisLimiter) Reset(ctx context.Context, identifier string) error {
	now := r.now()

	return r.client.Del(ctx,
		r.redisKey(identifier, WindowMinute, now),
		r.redisKey(identifier, WindowHour, now),
	).Err()
}

func (r *RedisLimiter) Close() error {
	return r.client.Close()
}
