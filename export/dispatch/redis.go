package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ncobase/docport/config"
	"github.com/ncobase/docport/logging/logger"
)

const defaultRedisKey = "docport:export:jobs"

// RedisDispatcher queues job ids on a Redis list so any process holding the
// same key can consume them. Producers LPUSH, consumers BRPOP.
type RedisDispatcher struct {
	client    *redis.Client
	key       string
	run       Runner
	consumers int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRedis connects to Redis and builds a dispatcher over the configured
// list key. The worker count sets how many consumer goroutines Start spawns.
func NewRedis(cfg *config.Queue, run Runner) (*RedisDispatcher, error) {
	if cfg.Redis == nil || cfg.Redis.Addr == "" {
		return nil, errors.New("dispatch: redis queue requires an address")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Username:     cfg.Redis.Username,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.Db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	key := cfg.Redis.Key
	if key == "" {
		key = defaultRedisKey
	}
	consumers := cfg.Workers
	if consumers < 1 {
		consumers = 1
	}
	return &RedisDispatcher{client: client, key: key, run: run, consumers: consumers}, nil
}

// Start launches the consumer goroutines.
func (d *RedisDispatcher) Start(ctx context.Context) error {
	consumeCtx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	for i := 0; i < d.consumers; i++ {
		d.wg.Add(1)
		go d.consume(consumeCtx)
	}
	return nil
}

func (d *RedisDispatcher) Stop(ctx context.Context) {
	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	_ = d.client.Close()
}

func (d *RedisDispatcher) Dispatch(ctx context.Context, jobID string) error {
	return d.client.LPush(ctx, d.key, jobID).Err()
}

func (d *RedisDispatcher) consume(ctx context.Context) {
	defer d.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		values, err := d.client.BRPop(ctx, 2*time.Second, d.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Errorf(ctx, "redis queue read failed: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if len(values) < 2 {
			continue
		}

		jobID := values[1]
		if err := d.run(context.Background(), jobID); err != nil {
			logger.Errorf(ctx, "export job %s failed: %v", jobID, err)
		}
	}
}
