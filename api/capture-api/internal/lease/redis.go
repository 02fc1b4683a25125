// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_lease

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	internal_type "github.com/rapidaai/voice-capture/api/capture-api/internal/type"
	"github.com/rapidaai/voice-capture/pkg/commons"
)

const (
	// Uses hash tag {capture:device} so every lease key hashes to the same
	// Redis Cluster slot.
	leaseKeyPrefix = "{capture:device}:"

	DefaultLeaseTTL = 15 * time.Minute
)

// ErrLeaseLost is returned when a renewal finds the lease expired or held by
// another owner.
var ErrLeaseLost = errors.New("device lease lost")

// RedisLease shares device ownership between service instances. A held lease
// is renewed every third of its TTL and expires only when its holder stops
// renewing, so a crashed instance cannot hold a device forever.
type RedisLease struct {
	client     *redis.Client
	logger     commons.Logger
	ttl        time.Duration
	renewEvery time.Duration

	mu         sync.Mutex
	keepalives map[string]*keepalive
}

type keepalive struct {
	owner  string
	cancel context.CancelFunc
}

func NewRedisLease(client *redis.Client, logger commons.Logger, ttl time.Duration) *RedisLease {
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}
	return &RedisLease{
		client:     client,
		logger:     logger,
		ttl:        ttl,
		renewEvery: ttl / 3,
		keepalives: make(map[string]*keepalive),
	}
}

func leaseKey(deviceID string) string {
	return leaseKeyPrefix + deviceID
}

func (l *RedisLease) Acquire(ctx context.Context, deviceID, owner string) error {
	if l.client == nil {
		return fmt.Errorf("redis connection not available for device lease")
	}
	ok, err := l.client.SetNX(ctx, leaseKey(deviceID), owner, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire device lease: %w", err)
	}
	if !ok {
		return internal_type.ErrDeviceBusy
	}
	l.logger.Debugw("Acquired device lease", "device", deviceID, "owner", owner)
	l.keepAlive(deviceID, owner)
	return nil
}

// renewLuaScript extends the lease only while owner still holds it.
var renewLuaScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('PEXPIRE', KEYS[1], ARGV[2])
	end
	return 0
`)

func (l *RedisLease) renew(ctx context.Context, deviceID, owner string) error {
	renewed, err := renewLuaScript.Run(ctx, l.client, []string{leaseKey(deviceID)}, owner, l.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to renew device lease: %w", err)
	}
	if renewed == 0 {
		return ErrLeaseLost
	}
	return nil
}

func (l *RedisLease) keepAlive(deviceID, owner string) {
	ctx, cancel := context.WithCancel(context.Background())
	ka := &keepalive{owner: owner, cancel: cancel}
	l.mu.Lock()
	if prev, ok := l.keepalives[deviceID]; ok {
		prev.cancel()
	}
	l.keepalives[deviceID] = ka
	l.mu.Unlock()

	go func() {
		defer l.stopKeepAlive(deviceID, ka)
		ticker := time.NewTicker(l.renewEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			err := l.renew(ctx, deviceID, owner)
			switch {
			case err == nil:
			case ctx.Err() != nil:
				return
			case errors.Is(err, ErrLeaseLost):
				l.logger.Errorw("Device lease lost while held", "device", deviceID, "owner", owner)
				return
			default:
				l.logger.Warnw("Device lease renewal failed", "device", deviceID, "owner", owner, "error", err)
			}
		}
	}()
}

// stopKeepAlive ends the renewal loop ka if it is still the registered one.
func (l *RedisLease) stopKeepAlive(deviceID string, ka *keepalive) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ka.cancel()
	if l.keepalives[deviceID] == ka {
		delete(l.keepalives, deviceID)
	}
}

func (l *RedisLease) renewing(deviceID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.keepalives[deviceID]
	return ok
}

// releaseLuaScript deletes the lease only while owner still holds it.
var releaseLuaScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

func (l *RedisLease) Release(ctx context.Context, deviceID, owner string) error {
	if l.client == nil {
		return fmt.Errorf("redis connection not available for device lease")
	}
	l.mu.Lock()
	ka, ok := l.keepalives[deviceID]
	l.mu.Unlock()
	if ok && ka.owner == owner {
		l.stopKeepAlive(deviceID, ka)
	}
	released, err := releaseLuaScript.Run(ctx, l.client, []string{leaseKey(deviceID)}, owner).Int()
	if err != nil {
		return fmt.Errorf("failed to release device lease: %w", err)
	}
	if released == 0 {
		l.logger.Warnw("Device lease already expired or taken over", "device", deviceID, "owner", owner)
		return nil
	}
	l.logger.Debugw("Released device lease", "device", deviceID, "owner", owner)
	return nil
}
