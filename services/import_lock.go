package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/eveternet/styleseeker-worker/internal/logger"
)

// ErrImportRunning is returned when an import job is already holding the
// tenant's lock. The caller reports it; nothing is retried automatically.
var ErrImportRunning = errors.New("an import is already running for this tenant")

// ImportLocker serializes import jobs per tenant so two concurrent runs
// cannot race on the mirror upserts.
type ImportLocker interface {
	// Acquire takes the tenant's lock and returns a release func, or
	// ErrImportRunning when another job holds it.
	Acquire(ctx context.Context, tenantID string) (func(), error)
}

// RedisImportLock implements ImportLocker with a SetNX lease. The TTL
// bounds how long a crashed job can block its tenant.
type RedisImportLock struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisImportLock(rdb *redis.Client, ttl time.Duration) *RedisImportLock {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisImportLock{rdb: rdb, ttl: ttl}
}

func (l *RedisImportLock) Acquire(ctx context.Context, tenantID string) (func(), error) {
	key := "import_lock:" + tenantID
	token := uuid.NewString()

	acquired, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrImportRunning
	}

	release := func() {
		// Only delete a lease we still own; an expired lease may have been
		// re-acquired by a newer job.
		current, err := l.rdb.Get(context.Background(), key).Result()
		if err != nil {
			if err != redis.Nil {
				logger.Warn("Import lock release lookup failed", "tenant_id", tenantID, "error", err)
			}
			return
		}
		if current == token {
			if err := l.rdb.Del(context.Background(), key).Err(); err != nil {
				logger.Warn("Import lock release failed", "tenant_id", tenantID, "error", err)
			}
		}
	}
	return release, nil
}
