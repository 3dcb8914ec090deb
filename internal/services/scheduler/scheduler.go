// Package services содержит ежедневную фоновую обработку подписок.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/raminazmi/RoseDye-backend/internal/lib/sl"
	"github.com/raminazmi/RoseDye-backend/internal/models"
	"github.com/raminazmi/RoseDye-backend/internal/rabbitmq"
)

// SubscriptionExpirer переводит просроченные подписки в expired.
type SubscriptionExpirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

// ExpiringFinder находит подписки, истекающие в заданном интервале.
type ExpiringFinder interface {
	FindExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.SubscriptionInfo, error)
}

// SchedulerService запускает ежедневную проверку подписок: просроченные
// закрываются, об истекающих публикуются уведомления в брокер.
type SchedulerService struct {
	expirer       SubscriptionExpirer
	finder        ExpiringFinder
	log           *slog.Logger
	location      *time.Location
	sweepInterval time.Duration
	lookaheadDays int
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(expirer SubscriptionExpirer, finder ExpiringFinder,
	log *slog.Logger, location *time.Location,
	sweepInterval time.Duration, lookaheadDays int) *SchedulerService {
	return &SchedulerService{
		expirer:       expirer,
		finder:        finder,
		log:           log,
		location:      location,
		sweepInterval: sweepInterval,
		lookaheadDays: lookaheadDays,
	}
}

// Run выполняет проверку сразу и далее по тикеру до отмены контекста.
func (s *SchedulerService) Run(ctx context.Context, channel *amqp.Channel) {
	s.runSweep(ctx, channel)

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runSweep(ctx, channel)
		case <-ctx.Done():
			return
		}
	}
}

func (s *SchedulerService) runSweep(ctx context.Context, channel *amqp.Channel) {
	s.log.Info("starting subscription sweep")

	expired, err := s.expirer.ExpireOverdue(ctx)
	if err != nil {
		s.log.Error("failed to expire overdue subscriptions", sl.Err(err))
	} else if expired > 0 {
		s.log.Info("expired overdue subscriptions", slog.Int("count", expired))
	}

	now := time.Now().In(s.location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	expiring, err := s.finder.FindExpiringBetween(ctx, today, today.AddDate(0, 0, s.lookaheadDays))
	if err != nil {
		s.log.Error("failed to find expiring subscriptions", sl.Err(err))
		return
	}
	if len(expiring) == 0 {
		s.log.Info("no expiring subscriptions found")
		return
	}
	s.log.Info("found expiring subscriptions", slog.Int("count", len(expiring)))

	for _, info := range expiring {
		err = rabbitmq.PublishMessage(channel, rabbitmq.NotificationsExchange,
			rabbitmq.ExpiringRoutingKey, info)
		if err != nil {
			s.log.Error("failed to publish message", sl.Err(err))
		}
	}
}
