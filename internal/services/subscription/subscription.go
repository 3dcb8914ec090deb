// Package services содержит бизнес-логику продления подписок и управления их статусом.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/raminazmi/RoseDye-backend/internal/ledger"
	"github.com/raminazmi/RoseDye-backend/internal/lib/sl"
	"github.com/raminazmi/RoseDye-backend/internal/models"
	"github.com/raminazmi/RoseDye-backend/internal/notifier"
)

// ErrInvalidDuration возвращается при продлении подписки без заданной длительности.
var ErrInvalidDuration = errors.New("subscription duration must be positive")

// SubscriptionRepository определяет методы хранилища для работы с подписками.
type SubscriptionRepository interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	GetSubscription(ctx context.Context, id int64) (*models.Subscription, error)
	GetSubscriptionForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Subscription, error)
	UpdateSubscriptionPeriod(ctx context.Context, tx *sql.Tx, id int64, start, end time.Time, durationInDays int, status string) error
	UpdateSubscriptionStatus(ctx context.Context, tx *sql.Tx, id int64, status string) error
	ListSubscriptionInfos(ctx context.Context, limit, offset int) ([]*models.SubscriptionInfo, error)
	FindOverdueActive(ctx context.Context, moment time.Time) ([]*models.Subscription, error)
	GetClient(ctx context.Context, id int64) (*models.Client, error)
	GetClientForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Client, error)
	UpdateClientBuckets(ctx context.Context, tx *sql.Tx, id int64, b ledger.Buckets) error
	LinkSubscriptionNumber(ctx context.Context, tx *sql.Tx, clientID int64, numberID *int64, number *string) error
	SetNumberAvailability(ctx context.Context, tx *sql.Tx, id int64, isAvailable bool) error
}

// SubscriptionService реализует операции над подписками.
type SubscriptionService struct {
	repo     SubscriptionRepository
	notifier notifier.Notifier
	log      *slog.Logger
	location *time.Location
}

// NewSubscriptionService создает новый экземпляр SubscriptionService.
func NewSubscriptionService(repo SubscriptionRepository, n notifier.Notifier,
	log *slog.Logger, location *time.Location) *SubscriptionService {
	return &SubscriptionService{
		repo:     repo,
		notifier: n,
		log:      log,
		location: location,
	}
}

func bucketsOf(c *models.Client) ledger.Buckets {
	return ledger.Buckets{
		Current:        c.CurrentBalance,
		Renewal:        c.RenewalBalance,
		OriginalGift:   c.OriginalGift,
		AdditionalGift: c.AdditionalGift,
	}
}

func (s *SubscriptionService) today() time.Time {
	now := time.Now().In(s.location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
}

// Renew продлевает подписку: гасит долг клиента стоимостью продления,
// начисляет бонусный кредит и открывает новый период с сегодняшнего дня.
func (s *SubscriptionService) Renew(ctx context.Context, subID int64, req models.DummyRenewal) (*models.Client, error) {
	var updated models.Client
	var phone string
	var endDate time.Time

	err := s.repo.WithTx(ctx, func(tx *sql.Tx) error {
		sub, err := s.repo.GetSubscriptionForUpdate(ctx, tx, subID)
		if err != nil {
			return err
		}
		if sub.DurationInDays <= 0 {
			return ErrInvalidDuration
		}

		client, err := s.repo.GetClientForUpdate(ctx, tx, sub.ClientID)
		if err != nil {
			return err
		}
		phone = client.Phone

		after, _, err := ledger.Renew(bucketsOf(client), req.RenewalCost, req.Gift)
		if err != nil {
			return err
		}
		if err := s.repo.UpdateClientBuckets(ctx, tx, client.ID, after); err != nil {
			return err
		}

		start := s.today()
		endDate = start.AddDate(0, 0, sub.DurationInDays)
		if err := s.repo.UpdateSubscriptionPeriod(ctx, tx, sub.ID, start, endDate,
			sub.DurationInDays, models.StatusActive); err != nil {
			return err
		}

		updated = *client
		updated.CurrentBalance = after.Current
		updated.RenewalBalance = after.Renewal
		updated.AdditionalGift = after.AdditionalGift
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("renewed subscription",
		slog.Int64("id", subID),
		sl.Amount("cost", req.RenewalCost),
		sl.Amount("gift", req.Gift))

	s.notifyRenewed(ctx, phone, req.RenewalCost, updated.RenewalBalance, updated.AdditionalGift, endDate)
	return &updated, nil
}

// UpdateStatus вручную переключает подписку между active и canceled.
// Отмена освобождает абонентский номер клиента; повторная активация
// возможна только если номер всё ещё закреплён.
func (s *SubscriptionService) UpdateStatus(ctx context.Context, subID int64, status string) error {
	err := s.repo.WithTx(ctx, func(tx *sql.Tx) error {
		sub, err := s.repo.GetSubscriptionForUpdate(ctx, tx, subID)
		if err != nil {
			return err
		}
		client, err := s.repo.GetClientForUpdate(ctx, tx, sub.ClientID)
		if err != nil {
			return err
		}

		switch status {
		case models.StatusCanceled:
			if client.SubscriptionNumberID != nil {
				if err := s.repo.SetNumberAvailability(ctx, tx, *client.SubscriptionNumberID, true); err != nil {
					return err
				}
				if err := s.repo.LinkSubscriptionNumber(ctx, tx, client.ID, nil, nil); err != nil {
					return err
				}
			}
		case models.StatusActive:
			if client.SubscriptionNumberID == nil {
				return fmt.Errorf("client %d has no subscription number", client.ID)
			}
		}
		return s.repo.UpdateSubscriptionStatus(ctx, tx, subID, status)
	})
	if err != nil {
		return err
	}

	s.log.Info("updated subscription status",
		slog.Int64("id", subID), slog.String("status", status))
	return nil
}

// ExpireOverdue переводит просроченные активные подписки в expired и
// освобождает их абонентские номера. Возвращает количество обработанных.
func (s *SubscriptionService) ExpireOverdue(ctx context.Context) (int, error) {
	overdue, err := s.repo.FindOverdueActive(ctx, s.today())
	if err != nil {
		return 0, err
	}

	var expired int
	for _, sub := range overdue {
		err := s.repo.WithTx(ctx, func(tx *sql.Tx) error {
			client, err := s.repo.GetClientForUpdate(ctx, tx, sub.ClientID)
			if err != nil {
				return err
			}
			if client.SubscriptionNumberID != nil {
				if err := s.repo.SetNumberAvailability(ctx, tx, *client.SubscriptionNumberID, true); err != nil {
					return err
				}
				if err := s.repo.LinkSubscriptionNumber(ctx, tx, client.ID, nil, nil); err != nil {
					return err
				}
			}
			return s.repo.UpdateSubscriptionStatus(ctx, tx, sub.ID, models.StatusExpired)
		})
		if err != nil {
			s.log.Error("failed to expire subscription",
				slog.Int64("id", sub.ID), sl.Err(err))
			continue
		}
		expired++
	}
	return expired, nil
}

// Read возвращает подписку по ID.
func (s *SubscriptionService) Read(ctx context.Context, id int64) (*models.Subscription, error) {
	return s.repo.GetSubscription(ctx, id)
}

// List возвращает сводки подписок с пагинацией.
func (s *SubscriptionService) List(ctx context.Context, limit, offset int) ([]*models.SubscriptionInfo, error) {
	return s.repo.ListSubscriptionInfos(ctx, limit, offset)
}

// Notify отправляет клиенту подписки произвольное сообщение.
func (s *SubscriptionService) Notify(ctx context.Context, subID int64, message string) error {
	sub, err := s.repo.GetSubscription(ctx, subID)
	if err != nil {
		return err
	}
	client, err := s.repo.GetClient(ctx, sub.ClientID)
	if err != nil {
		return err
	}
	return s.notifier.Send(ctx, client.Phone, message)
}

func (s *SubscriptionService) notifyRenewed(ctx context.Context, phone string,
	cost, renewal, gift decimal.Decimal, endDate time.Time) {
	var b strings.Builder
	b.WriteString("عزيزي العميل، تم تجديد اشتراكك بمبلغ ")
	b.WriteString(cost.StringFixed(3))
	b.WriteString(" د.ك\n")
	b.WriteString("رصيد الاشتراك الحالي: " + renewal.StringFixed(3) + " د.ك\n")
	b.WriteString("الرصيد الهدية: " + gift.StringFixed(3) + " د.ك\n")
	b.WriteString("تاريخ انتهاء الاشتراك: " + endDate.Format("2006-01-02"))

	if err := s.notifier.Send(ctx, phone, b.String()); err != nil {
		s.log.Error("failed to send renewal notification",
			slog.String("phone", phone), sl.Err(err))
	}
}
