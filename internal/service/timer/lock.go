package timer

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StartLock is a short-lived SETNX lock taken around session creation so
// duplicate start requests from the same engineer are rejected before
// they reach the insert. The database unique constraint remains the
// durable guarantee; this only absorbs the common double-click case.
type StartLock struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewStartLock(rdb *redis.Client, logger *zap.Logger) *StartLock {
	return &StartLock{
		rdb:    rdb,
		ttl:    5 * time.Second,
		logger: logger,
	}
}

func (l *StartLock) key(engineerID int64) string {
	return fmt.Sprintf("timer:start_lock:%d", engineerID)
}

// Acquire returns true when this caller holds the lock. When redis is
// unavailable it fails open and lets the database constraint decide.
func (l *StartLock) Acquire(ctx context.Context, engineerID int64) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, l.key(engineerID), 1, l.ttl).Result()
	if err != nil {
		l.logger.Warn("Redis start-lock check failed, falling back to db constraint",
			zap.Int64("engineer_id", engineerID),
			zap.Error(err),
		)
		return true, nil
	}
	return ok, nil
}

func (l *StartLock) Release(ctx context.Context, engineerID int64) {
	if err := l.rdb.Del(ctx, l.key(engineerID)).Err(); err != nil {
		l.logger.Warn("Failed to release start lock",
			zap.Int64("engineer_id", engineerID),
			zap.Error(err),
		)
	}
}
