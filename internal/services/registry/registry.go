// Package services содержит бизнес-логику реестра абонентских номеров.
// Реестр гарантирует: номер закреплён не более чем за одним клиентом,
// клиент держит не более одного номера.
package services

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/raminazmi/RoseDye-backend/internal/models"
)

// Ошибки реестра.
var (
	// ErrNumberTaken возвращается при попытке занять номер, держатель
	// которого сохраняет активную подписку.
	ErrNumberTaken = errors.New("subscription number is held by an active client")
	// ErrNumberLinked возвращается при попытке удалить закреплённый номер.
	ErrNumberLinked = errors.New("subscription number is linked to a client")
)

// RegistryRepository определяет методы хранилища для работы с реестром.
type RegistryRepository interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	GetNumberForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.SubscriptionNumber, error)
	BulkInsertNumbers(ctx context.Context, start, end int) (int, error)
	SetNumberAvailability(ctx context.Context, tx *sql.Tx, id int64, isAvailable bool) error
	UpdateNumber(ctx context.Context, tx *sql.Tx, id int64, number string, isAvailable bool) error
	DeleteNumber(ctx context.Context, tx *sql.Tx, id int64) error
	ListNumbers(ctx context.Context, limit, offset int) ([]*models.SubscriptionNumber, error)
	GetHolderByNumberID(ctx context.Context, tx *sql.Tx, numberID int64) (*models.Client, error)
	GetClientForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Client, error)
	LinkSubscriptionNumber(ctx context.Context, tx *sql.Tx, clientID int64, numberID *int64, number *string) error
	GetLatestSubscriptionByClient(ctx context.Context, tx *sql.Tx, clientID int64) (*models.Subscription, error)
}

// RegistryService реализует операции над реестром номеров.
type RegistryService struct {
	repo RegistryRepository
	log  *slog.Logger
}

// NewRegistryService создает новый экземпляр RegistryService.
func NewRegistryService(repo RegistryRepository, log *slog.Logger) *RegistryService {
	return &RegistryService{
		repo: repo,
		log:  log,
	}
}

// Assign закрепляет номер за клиентом. Nil clientID освобождает номер.
// Номер, занятый другим клиентом, можно перехватить только если подписка
// держателя отменена.
func (s *RegistryService) Assign(ctx context.Context, numberID int64, clientID *int64) error {
	err := s.repo.WithTx(ctx, func(tx *sql.Tx) error {
		number, err := s.repo.GetNumberForUpdate(ctx, tx, numberID)
		if err != nil {
			return err
		}

		holder, err := s.repo.GetHolderByNumberID(ctx, tx, numberID)
		if err != nil {
			return err
		}

		if clientID == nil {
			if holder != nil {
				if err := s.repo.LinkSubscriptionNumber(ctx, tx, holder.ID, nil, nil); err != nil {
					return err
				}
			}
			return s.repo.SetNumberAvailability(ctx, tx, numberID, true)
		}

		if holder != nil && holder.ID != *clientID {
			sub, err := s.repo.GetLatestSubscriptionByClient(ctx, tx, holder.ID)
			if err != nil {
				return err
			}
			if sub == nil || sub.Status != models.StatusCanceled {
				return ErrNumberTaken
			}
			if err := s.repo.LinkSubscriptionNumber(ctx, tx, holder.ID, nil, nil); err != nil {
				return err
			}
		}

		client, err := s.repo.GetClientForUpdate(ctx, tx, *clientID)
		if err != nil {
			return err
		}
		// Предыдущий номер нового держателя возвращается в пул.
		if client.SubscriptionNumberID != nil && *client.SubscriptionNumberID != numberID {
			if err := s.repo.SetNumberAvailability(ctx, tx, *client.SubscriptionNumberID, true); err != nil {
				return err
			}
			if err := s.repo.LinkSubscriptionNumber(ctx, tx, client.ID, nil, nil); err != nil {
				return err
			}
		}

		if err := s.repo.LinkSubscriptionNumber(ctx, tx, client.ID, &number.ID, &number.Number); err != nil {
			return err
		}
		return s.repo.SetNumberAvailability(ctx, tx, numberID, false)
	})
	if err != nil {
		return err
	}

	if clientID != nil {
		s.log.Info("assigned subscription number",
			slog.Int64("number_id", numberID), slog.Int64("client_id", *clientID))
	} else {
		s.log.Info("released subscription number", slog.Int64("number_id", numberID))
	}
	return nil
}

// BulkCreate добавляет в реестр все отсутствующие номера диапазона.
func (s *RegistryService) BulkCreate(ctx context.Context, start, end int) (int, error) {
	added, err := s.repo.BulkInsertNumbers(ctx, start, end)
	if err != nil {
		return 0, err
	}
	s.log.Info("bulk created subscription numbers",
		slog.Int("start", start), slog.Int("end", end), slog.Int("added", added))
	return added, nil
}

// Update меняет значение номера и его доступность. Перевод номера
// в доступные отвязывает его от держателя.
func (s *RegistryService) Update(ctx context.Context, id int64, number string, isAvailable bool) error {
	err := s.repo.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.repo.GetNumberForUpdate(ctx, tx, id); err != nil {
			return err
		}
		if isAvailable {
			holder, err := s.repo.GetHolderByNumberID(ctx, tx, id)
			if err != nil {
				return err
			}
			if holder != nil {
				if err := s.repo.LinkSubscriptionNumber(ctx, tx, holder.ID, nil, nil); err != nil {
					return err
				}
			}
		}
		return s.repo.UpdateNumber(ctx, tx, id, number, isAvailable)
	})
	if err != nil {
		return err
	}

	s.log.Info("updated subscription number", slog.Int64("id", id))
	return nil
}

// Remove удаляет номер из реестра. Закреплённые номера не удаляются.
func (s *RegistryService) Remove(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.repo.GetNumberForUpdate(ctx, tx, id); err != nil {
			return err
		}
		holder, err := s.repo.GetHolderByNumberID(ctx, tx, id)
		if err != nil {
			return err
		}
		if holder != nil {
			return ErrNumberLinked
		}
		return s.repo.DeleteNumber(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.log.Info("removed subscription number", slog.Int64("id", id))
	return nil
}

// List возвращает реестр с телефонами держателей.
func (s *RegistryService) List(ctx context.Context, limit, offset int) ([]*models.SubscriptionNumber, error) {
	return s.repo.ListNumbers(ctx, limit, offset)
}
