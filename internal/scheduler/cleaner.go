package scheduler

import (
	"context"
	"log/slog"
	"time"
)

type ExpiredRoomRemover interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// RoomCleaner periodically removes rooms past their expiration horizon.
// Sessions need no cleaner, their TTL lives in the cache.
type RoomCleaner struct {
	repository   ExpiredRoomRemover
	interval     time.Duration
	initialDelay time.Duration
	logger       *slog.Logger
}

func NewRoomCleaner(repository ExpiredRoomRemover, interval, initialDelay time.Duration) *RoomCleaner {
	if interval <= 0 {
		interval = 2 * time.Hour
	}

	return &RoomCleaner{
		repository:   repository,
		interval:     interval,
		initialDelay: initialDelay,
		logger:       slog.Default(),
	}
}

func (c *RoomCleaner) Run(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(c.initialDelay):
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		c.cleanUp(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *RoomCleaner) cleanUp(ctx context.Context) {
	start := time.Now()
	items, err := c.repository.DeleteExpired(ctx)
	if err != nil {
		c.logger.Error("rooms cleanup failed", slog.String("error", err.Error()))
		return
	}
	c.logger.Debug("rooms cleanup finished",
		slog.Int64("items", items),
		slog.Duration("took", time.Since(start)))
}
