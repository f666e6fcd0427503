package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/justsurfingit/KarirConnect/internal/config"
)

const (
	TaskExpireListings     = "expire_listings"
	TaskPruneNotifications = "prune_notifications"
)

// ListingExpirer closes open listings past their deadline
type ListingExpirer interface {
	CloseExpired(ctx context.Context) (int, error)
}

// NotificationPruner deletes read notifications older than retention
type NotificationPruner interface {
	PruneRead(ctx context.Context, retention time.Duration) (int64, error)
}

// Register adds the housekeeping tasks
func Register(s *Scheduler, cfg config.SchedulerConfig, listings ListingExpirer, notifications NotificationPruner) error {
	err := s.Add(TaskExpireListings, cfg.ExpireSchedule, func(ctx context.Context) error {
		_, err := listings.CloseExpired(ctx)
		return err
	})
	if err != nil {
		return err
	}

	retention := time.Duration(cfg.NotificationRetainD) * 24 * time.Hour
	return s.Add(TaskPruneNotifications, cfg.PruneSchedule, func(ctx context.Context) error {
		n, err := notifications.PruneRead(ctx, retention)
		if err != nil {
			return err
		}
		if n > 0 {
			s.log.Info("pruned read notifications", zap.Int64("count", n))
		}
		return nil
	})
}
