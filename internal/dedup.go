package internal

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"wxpay/services"
)

const (
	dedupPrefix = "wxpay:notify"
	dedupTTL    = 24 * time.Hour
)

// redisDeduper claims notification keys with SETNX so that every instance
// behind the notify URL shares one view of processed transactions.
type redisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeduper(client *redis.Client, ttl time.Duration) services.Deduper {
	return &redisDeduper{client: client, ttl: ttl}
}

func (d *redisDeduper) key(transactionId string) string {
	return dedupPrefix + ":" + transactionId
}

func (d *redisDeduper) Seen(ctx context.Context, transactionId string) (bool, error) {
	claimed, err := d.client.SetNX(ctx, d.key(transactionId), time.Now().Unix(), d.ttl).Result()
	if err != nil {
		return false, err
	}
	return !claimed, nil
}

func (d *redisDeduper) Forget(ctx context.Context, transactionId string) error {
	return d.client.Del(ctx, d.key(transactionId)).Err()
}

// memoryDeduper keeps claimed keys in process; expired entries are purged
// once per ttl period.
type memoryDeduper struct {
	mu        sync.Mutex
	expires   map[string]time.Time
	ttl       time.Duration
	lastPurge time.Time
}

func NewMemoryDeduper(ttl time.Duration) services.Deduper {
	return &memoryDeduper{
		expires:   make(map[string]time.Time),
		ttl:       ttl,
		lastPurge: time.Now(),
	}
}

func (d *memoryDeduper) Seen(_ context.Context, transactionId string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if now.Sub(d.lastPurge) > d.ttl {
		d.purge(now)
	}
	if expires, ok := d.expires[transactionId]; ok && now.Before(expires) {
		return true, nil
	}
	d.expires[transactionId] = now.Add(d.ttl)
	return false, nil
}

func (d *memoryDeduper) Forget(_ context.Context, transactionId string) error {
	d.mu.Lock()
	delete(d.expires, transactionId)
	d.mu.Unlock()
	return nil
}

func (d *memoryDeduper) purge(now time.Time) {
	for key, expires := range d.expires {
		if !now.Before(expires) {
			delete(d.expires, key)
		}
	}
	d.lastPurge = now
}

// NewDeduper connects to Redis at addr. Without an address, or when Redis
// does not answer the ping, notifications are tracked in memory; the ping
// error is returned alongside the fallback.
func NewDeduper(addr, pass string, db int, ttl time.Duration) (services.Deduper, error) {
	if ttl <= 0 {
		ttl = dedupTTL
	}
	if addr == "" {
		return NewMemoryDeduper(ttl), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pass,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return NewMemoryDeduper(ttl), err
	}

	return NewRedisDeduper(client, ttl), nil
}
