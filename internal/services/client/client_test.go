package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/raminazmi/RoseDye-backend/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) WithTx(_ context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

func (m *RepoMock) CreateClient(ctx context.Context, tx *sql.Tx, c models.Client) (int64, error) {
	args := m.Called(ctx, tx, c)
	return args.Get(0).(int64), args.Error(1)
}
func (m *RepoMock) GetClient(ctx context.Context, id int64) (*models.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}
func (m *RepoMock) GetClientForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Client, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}
func (m *RepoMock) UpdateClient(ctx context.Context, tx *sql.Tx, c models.Client) error {
	return m.Called(ctx, tx, c).Error(0)
}
func (m *RepoMock) DeleteClient(ctx context.Context, tx *sql.Tx, id int64) error {
	return m.Called(ctx, tx, id).Error(0)
}
func (m *RepoMock) ListClients(ctx context.Context, limit, offset int) ([]*models.Client, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Client), args.Error(1)
}
func (m *RepoMock) LinkSubscriptionNumber(ctx context.Context, tx *sql.Tx, clientID int64, numberID *int64, number *string) error {
	return m.Called(ctx, tx, clientID, numberID, number).Error(0)
}
func (m *RepoMock) GetNumberByValue(ctx context.Context, tx *sql.Tx, number string) (*models.SubscriptionNumber, error) {
	args := m.Called(ctx, tx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SubscriptionNumber), args.Error(1)
}
func (m *RepoMock) CreateNumber(ctx context.Context, tx *sql.Tx, number string, isAvailable bool) (int64, error) {
	args := m.Called(ctx, tx, number, isAvailable)
	return args.Get(0).(int64), args.Error(1)
}
func (m *RepoMock) SetNumberAvailability(ctx context.Context, tx *sql.Tx, id int64, isAvailable bool) error {
	return m.Called(ctx, tx, id, isAvailable).Error(0)
}
func (m *RepoMock) CreateSubscription(ctx context.Context, tx *sql.Tx, sub models.Subscription) (int64, error) {
	args := m.Called(ctx, tx, sub)
	return args.Get(0).(int64), args.Error(1)
}
func (m *RepoMock) DeleteSubscriptionsByClient(ctx context.Context, tx *sql.Tx, clientID int64) error {
	return m.Called(ctx, tx, clientID).Error(0)
}
func (m *RepoMock) RegisterUser(ctx context.Context, user models.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}
func (m *RepoMock) UpdateUserPhone(ctx context.Context, tx *sql.Tx, oldPhone, newPhone string) error {
	return m.Called(ctx, tx, oldPhone, newPhone).Error(0)
}
func (m *RepoMock) DeleteUserByPhone(ctx context.Context, tx *sql.Tx, phone string) error {
	return m.Called(ctx, tx, phone).Error(0)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}
func (m *CacheMock) Set(key string, value any, expiration time.Duration) error {
	return m.Called(key, value, expiration).Error(0)
}
func (m *CacheMock) Invalidate(key string) error {
	return m.Called(key).Error(0)
}
func (m *CacheMock) InvalidatePrefix(prefix string) error {
	return m.Called(prefix).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func validRequest() models.DummyClient {
	return models.DummyClient{
		Phone:              "+96550001122",
		OriginalGift:       d("15"),
		AdditionalGift:     d("10"),
		StartDate:          "2025-06-01",
		EndDate:            "2025-07-01",
		SubscriptionNumber: "1001",
	}
}

func TestClientService_Create(t *testing.T) {
	t.Run("клиент создаётся с номером, подпиской и аккаунтом портала", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		svc := NewClientService(repo, cache, newNoopLogger())

		req := validRequest()
		repo.On("CreateClient", mock.Anything, mock.Anything,
			mock.MatchedBy(func(c models.Client) bool {
				return c.Phone == req.Phone && c.AdditionalGift.Equal(d("10"))
			})).Return(int64(7), nil).Once()
		repo.On("GetNumberByValue", mock.Anything, mock.Anything, "1001").
			Return(&models.SubscriptionNumber{ID: 42, Number: "1001", IsAvailable: true}, nil).Once()
		repo.On("LinkSubscriptionNumber", mock.Anything, mock.Anything, int64(7),
			mock.Anything, mock.Anything).Return(nil).Once()
		repo.On("SetNumberAvailability", mock.Anything, mock.Anything, int64(42), false).Return(nil).Once()
		repo.On("CreateSubscription", mock.Anything, mock.Anything,
			mock.MatchedBy(func(sub models.Subscription) bool {
				return sub.ClientID == 7 &&
					sub.DurationInDays == 30 &&
					sub.Status == models.StatusActive
			})).Return(int64(3), nil).Once()
		repo.On("RegisterUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
			return u.Username == req.Phone && u.Role == "client"
		})).Return("uid-9", nil).Once()
		cache.On("InvalidatePrefix", "clients:list:").Return(nil).Once()

		id, err := svc.Create(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, int64(7), id)
		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("занятый номер отклоняется", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		svc := NewClientService(repo, cache, newNoopLogger())

		repo.On("CreateClient", mock.Anything, mock.Anything, mock.Anything).
			Return(int64(7), nil).Once()
		repo.On("GetNumberByValue", mock.Anything, mock.Anything, "1001").
			Return(&models.SubscriptionNumber{ID: 42, Number: "1001", IsAvailable: false}, nil).Once()

		_, err := svc.Create(context.Background(), validRequest())
		assert.Error(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("отсутствующий номер регистрируется в реестре", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		svc := NewClientService(repo, cache, newNoopLogger())

		repo.On("CreateClient", mock.Anything, mock.Anything, mock.Anything).
			Return(int64(7), nil).Once()
		repo.On("GetNumberByValue", mock.Anything, mock.Anything, "1001").
			Return(nil, errors.New("not found")).Once()
		repo.On("CreateNumber", mock.Anything, mock.Anything, "1001", true).
			Return(int64(43), nil).Once()
		repo.On("LinkSubscriptionNumber", mock.Anything, mock.Anything, int64(7),
			mock.Anything, mock.Anything).Return(nil).Once()
		repo.On("SetNumberAvailability", mock.Anything, mock.Anything, int64(43), false).Return(nil).Once()
		repo.On("CreateSubscription", mock.Anything, mock.Anything, mock.Anything).
			Return(int64(3), nil).Once()
		repo.On("RegisterUser", mock.Anything, mock.Anything).Return("uid-9", nil).Once()
		cache.On("InvalidatePrefix", "clients:list:").Return(nil).Once()

		_, err := svc.Create(context.Background(), validRequest())
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("подарочный кредит выше первоначального отклоняется", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		svc := NewClientService(repo, cache, newNoopLogger())

		req := validRequest()
		req.OriginalGift = d("5")
		req.AdditionalGift = d("10")

		_, err := svc.Create(context.Background(), req)
		assert.Error(t, err)
	})
}

func TestClientService_Read(t *testing.T) {
	t.Run("попадание в кеш", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		svc := NewClientService(repo, cache, newNoopLogger())

		cache.On("Get", "client:7", mock.Anything).Return(true, nil).Once()

		_, err := svc.Read(context.Background(), 7)
		require.NoError(t, err)
		cache.AssertExpectations(t)
	})

	t.Run("промах кеша читает из хранилища", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		svc := NewClientService(repo, cache, newNoopLogger())

		want := &models.Client{ID: 7, Phone: "+96550001122"}
		cache.On("Get", "client:7", mock.Anything).Return(false, nil).Once()
		repo.On("GetClient", mock.Anything, int64(7)).Return(want, nil).Once()
		cache.On("Set", "client:7", want, time.Hour).Return(nil).Once()

		got, err := svc.Read(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})
}

func TestClientService_Update(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)
	svc := NewClientService(repo, cache, newNoopLogger())

	repo.On("GetClientForUpdate", mock.Anything, mock.Anything, int64(7)).
		Return(&models.Client{ID: 7, Phone: "+96550000000"}, nil).Once()
	repo.On("UpdateClient", mock.Anything, mock.Anything,
		mock.MatchedBy(func(c models.Client) bool {
			return c.Phone == "+96550001122"
		})).Return(nil).Once()
	repo.On("UpdateUserPhone", mock.Anything, mock.Anything,
		"+96550000000", "+96550001122").Return(nil).Once()
	cache.On("Invalidate", "client:7").Return(nil).Once()
	cache.On("InvalidatePrefix", "clients:list:").Return(nil).Once()

	err := svc.Update(context.Background(), 7, validRequest())
	require.NoError(t, err)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestClientService_Remove(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)
	svc := NewClientService(repo, cache, newNoopLogger())

	numberID := int64(42)
	repo.On("GetClientForUpdate", mock.Anything, mock.Anything, int64(7)).
		Return(&models.Client{
			ID:                   7,
			Phone:                "+96550001122",
			SubscriptionNumberID: &numberID,
		}, nil).Once()
	repo.On("LinkSubscriptionNumber", mock.Anything, mock.Anything, int64(7),
		(*int64)(nil), (*string)(nil)).Return(nil).Once()
	repo.On("SetNumberAvailability", mock.Anything, mock.Anything, numberID, true).Return(nil).Once()
	repo.On("DeleteSubscriptionsByClient", mock.Anything, mock.Anything, int64(7)).Return(nil).Once()
	repo.On("DeleteUserByPhone", mock.Anything, mock.Anything, "+96550001122").Return(nil).Once()
	repo.On("DeleteClient", mock.Anything, mock.Anything, int64(7)).Return(nil).Once()
	cache.On("Invalidate", "client:7").Return(nil).Once()
	cache.On("InvalidatePrefix", "clients:list:").Return(nil).Once()

	err := svc.Remove(context.Background(), 7)
	require.NoError(t, err)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}
