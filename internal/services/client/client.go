// Package services содержит бизнес-логику управления клиентами и кеширование их чтения.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/raminazmi/RoseDye-backend/internal/ledger"
	"github.com/raminazmi/RoseDye-backend/internal/lib/password"
	"github.com/raminazmi/RoseDye-backend/internal/lib/sl"
	"github.com/raminazmi/RoseDye-backend/internal/models"
)

// ClientRepository определяет методы хранилища для работы с клиентами.
type ClientRepository interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	CreateClient(ctx context.Context, tx *sql.Tx, c models.Client) (int64, error)
	GetClient(ctx context.Context, id int64) (*models.Client, error)
	GetClientForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Client, error)
	UpdateClient(ctx context.Context, tx *sql.Tx, c models.Client) error
	DeleteClient(ctx context.Context, tx *sql.Tx, id int64) error
	ListClients(ctx context.Context, limit, offset int) ([]*models.Client, error)
	LinkSubscriptionNumber(ctx context.Context, tx *sql.Tx, clientID int64, numberID *int64, number *string) error
	GetNumberByValue(ctx context.Context, tx *sql.Tx, number string) (*models.SubscriptionNumber, error)
	CreateNumber(ctx context.Context, tx *sql.Tx, number string, isAvailable bool) (int64, error)
	SetNumberAvailability(ctx context.Context, tx *sql.Tx, id int64, isAvailable bool) error
	CreateSubscription(ctx context.Context, tx *sql.Tx, sub models.Subscription) (int64, error)
	DeleteSubscriptionsByClient(ctx context.Context, tx *sql.Tx, clientID int64) error
	RegisterUser(ctx context.Context, user models.User) (string, error)
	UpdateUserPhone(ctx context.Context, tx *sql.Tx, oldPhone, newPhone string) error
	DeleteUserByPhone(ctx context.Context, tx *sql.Tx, phone string) error
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
	InvalidatePrefix(prefix string) error
}

// ClientService реализует бизнес-логику работы с клиентами.
type ClientService struct {
	repo  ClientRepository
	cache Cache
	log   *slog.Logger
}

// NewClientService создает новый экземпляр ClientService.
func NewClientService(repo ClientRepository, cache Cache, log *slog.Logger) *ClientService {
	return &ClientService{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

const listCachePrefix = "clients:list:"

// Create создаёт клиента вместе с его окружением: закрепляет абонентский
// номер из реестра (создавая его при отсутствии), открывает стартовую
// подписку на заданный период и заводит клиентский аккаунт портала
// с телефоном в качестве логина и пароля.
func (s *ClientService) Create(ctx context.Context, req models.DummyClient) (int64, error) {
	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return 0, fmt.Errorf("invalid start date: %w", err)
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return 0, fmt.Errorf("invalid end date: %w", err)
	}
	if !endDate.After(startDate) {
		return 0, fmt.Errorf("end date must be after start date")
	}

	buckets := ledger.Buckets{
		Current:        req.CurrentBalance,
		Renewal:        req.RenewalBalance,
		OriginalGift:   req.OriginalGift,
		AdditionalGift: req.AdditionalGift,
	}
	if err := buckets.Validate(); err != nil {
		return 0, err
	}

	var clientID int64
	err = s.repo.WithTx(ctx, func(tx *sql.Tx) error {
		clientID, err = s.repo.CreateClient(ctx, tx, models.Client{
			Phone:          req.Phone,
			CurrentBalance: req.CurrentBalance,
			RenewalBalance: req.RenewalBalance,
			OriginalGift:   req.OriginalGift,
			AdditionalGift: req.AdditionalGift,
		})
		if err != nil {
			return err
		}

		numberID, err := s.resolveNumber(ctx, tx, req.SubscriptionNumber)
		if err != nil {
			return err
		}
		number := req.SubscriptionNumber
		if err := s.repo.LinkSubscriptionNumber(ctx, tx, clientID, &numberID, &number); err != nil {
			return err
		}
		if err := s.repo.SetNumberAvailability(ctx, tx, numberID, false); err != nil {
			return err
		}

		_, err = s.repo.CreateSubscription(ctx, tx, models.Subscription{
			ClientID:       clientID,
			PlanName:       "standard",
			StartDate:      startDate,
			EndDate:        endDate,
			DurationInDays: int(endDate.Sub(startDate).Hours() / 24),
			Status:         models.StatusActive,
		})
		return err
	})
	if err != nil {
		return 0, err
	}

	// Аккаунт портала создаётся вне транзакции: клиент уже консистентен,
	// а повторная регистрация того же телефона не критична.
	hashed, err := password.GetHash(req.Phone)
	if err == nil {
		if _, err := s.repo.RegisterUser(ctx, models.User{
			Username:     req.Phone,
			Phone:        req.Phone,
			PasswordHash: hashed,
			Role:         "client",
		}); err != nil {
			s.log.Warn("failed to create portal account",
				slog.String("phone", req.Phone), sl.Err(err))
		}
	}

	s.log.Info("created new client", slog.Int64("id", clientID))
	if err := s.cache.InvalidatePrefix(listCachePrefix); err != nil {
		s.log.Warn("failed to invalidate list cache", sl.Err(err))
	}
	return clientID, nil
}

// resolveNumber находит свободный номер в реестре или регистрирует новый.
func (s *ClientService) resolveNumber(ctx context.Context, tx *sql.Tx, number string) (int64, error) {
	existing, err := s.repo.GetNumberByValue(ctx, tx, number)
	if err == nil {
		if !existing.IsAvailable {
			return 0, fmt.Errorf("subscription number %s is already taken", number)
		}
		return existing.ID, nil
	}
	return s.repo.CreateNumber(ctx, tx, number, true)
}

// Read возвращает клиента по ID, используя кеш или репозиторий.
func (s *ClientService) Read(ctx context.Context, id int64) (*models.Client, error) {
	var result *models.Client
	cacheKey := fmt.Sprintf("client:%d", id)
	found, err := s.cache.Get(cacheKey, &result)
	if err != nil {
		s.log.Warn("cache lookup failed", slog.String("key", cacheKey), sl.Err(err))
	}
	if found {
		return result, nil
	}
	result, err = s.repo.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(cacheKey, result, time.Hour); err != nil {
		s.log.Warn("failed to add to cache", slog.String("key", cacheKey), sl.Err(err))
	}
	return result, nil
}

// List возвращает список клиентов с пагинацией, кешируя страницы.
func (s *ClientService) List(ctx context.Context, limit, offset int) ([]*models.Client, error) {
	var result []*models.Client
	cacheKey := fmt.Sprintf("%s%d:%d", listCachePrefix, limit, offset)
	found, err := s.cache.Get(cacheKey, &result)
	if err != nil {
		s.log.Warn("cache lookup failed", slog.String("key", cacheKey), sl.Err(err))
	}
	if found {
		return result, nil
	}
	result, err = s.repo.ListClients(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(cacheKey, result, 5*time.Minute); err != nil {
		s.log.Warn("failed to add to cache", slog.String("key", cacheKey), sl.Err(err))
	}
	return result, nil
}

// Update меняет данные клиента. Балансы здесь не трогаются: они меняются
// только операциями над счетами и продлением. Смена телефона переносится
// на аккаунт портала.
func (s *ClientService) Update(ctx context.Context, id int64, req models.DummyClient) error {
	err := s.repo.WithTx(ctx, func(tx *sql.Tx) error {
		client, err := s.repo.GetClientForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		oldPhone := client.Phone
		client.Phone = req.Phone
		if err := s.repo.UpdateClient(ctx, tx, *client); err != nil {
			return err
		}
		if oldPhone != req.Phone {
			return s.repo.UpdateUserPhone(ctx, tx, oldPhone, req.Phone)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("updated client", slog.Int64("id", id))
	s.invalidate(id)
	return nil
}

// Remove удаляет клиента, освобождая его абонентский номер и аккаунт портала.
// Подписки и счета удаляются каскадом.
func (s *ClientService) Remove(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(tx *sql.Tx) error {
		client, err := s.repo.GetClientForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if client.SubscriptionNumberID != nil {
			numberID := *client.SubscriptionNumberID
			if err := s.repo.LinkSubscriptionNumber(ctx, tx, id, nil, nil); err != nil {
				return err
			}
			if err := s.repo.SetNumberAvailability(ctx, tx, numberID, true); err != nil {
				return err
			}
		}
		if err := s.repo.DeleteSubscriptionsByClient(ctx, tx, id); err != nil {
			return err
		}
		if err := s.repo.DeleteUserByPhone(ctx, tx, client.Phone); err != nil {
			return err
		}
		return s.repo.DeleteClient(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.log.Info("removed client", slog.Int64("id", id))
	s.invalidate(id)
	return nil
}

func (s *ClientService) invalidate(id int64) {
	if err := s.cache.Invalidate(fmt.Sprintf("client:%d", id)); err != nil {
		s.log.Warn("failed to invalidate client cache", sl.Err(err))
	}
	if err := s.cache.InvalidatePrefix(listCachePrefix); err != nil {
		s.log.Warn("failed to invalidate list cache", sl.Err(err))
	}
}
