package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/hireflow/pkg/locking"
)

// NewLocker returns a Redis locker for redisURL, or an in-process one when it is empty.
// The returned close function releases the Redis connection.
func NewLocker(ctx context.Context, logger *slog.Logger, redisURL string) (locking.Locker, func() error, error) {
	if redisURL == "" {
		logger.Info("No Redis URL configured, using in-process rule locks")

		return locking.NewMemory(), func() error { return nil }, nil
	}

	locker, err := locking.NewRedisFromURL(redisURL)
	if err != nil {
		return nil, nil, err
	}

	if err := locker.Ping(ctx); err != nil {
		_ = locker.Close()

		return nil, nil, fmt.Errorf("failed to reach redis: %w", err)
	}

	return locker, locker.Close, nil
}
