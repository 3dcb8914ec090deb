package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/raminazmi/RoseDye-backend/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) WithTx(_ context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

func (m *RepoMock) GetNumberForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.SubscriptionNumber, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SubscriptionNumber), args.Error(1)
}
func (m *RepoMock) BulkInsertNumbers(ctx context.Context, start, end int) (int, error) {
	args := m.Called(ctx, start, end)
	return args.Int(0), args.Error(1)
}
func (m *RepoMock) SetNumberAvailability(ctx context.Context, tx *sql.Tx, id int64, isAvailable bool) error {
	return m.Called(ctx, tx, id, isAvailable).Error(0)
}
func (m *RepoMock) UpdateNumber(ctx context.Context, tx *sql.Tx, id int64, number string, isAvailable bool) error {
	return m.Called(ctx, tx, id, number, isAvailable).Error(0)
}
func (m *RepoMock) DeleteNumber(ctx context.Context, tx *sql.Tx, id int64) error {
	return m.Called(ctx, tx, id).Error(0)
}
func (m *RepoMock) ListNumbers(ctx context.Context, limit, offset int) ([]*models.SubscriptionNumber, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SubscriptionNumber), args.Error(1)
}
func (m *RepoMock) GetHolderByNumberID(ctx context.Context, tx *sql.Tx, numberID int64) (*models.Client, error) {
	args := m.Called(ctx, tx, numberID)
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
func (m *RepoMock) LinkSubscriptionNumber(ctx context.Context, tx *sql.Tx, clientID int64, numberID *int64, number *string) error {
	return m.Called(ctx, tx, clientID, numberID, number).Error(0)
}
func (m *RepoMock) GetLatestSubscriptionByClient(ctx context.Context, tx *sql.Tx, clientID int64) (*models.Subscription, error) {
	args := m.Called(ctx, tx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func freeNumber() *models.SubscriptionNumber {
	return &models.SubscriptionNumber{ID: 42, Number: "1001", IsAvailable: true}
}

func TestRegistryService_Assign(t *testing.T) {
	clientID := int64(7)

	t.Run("свободный номер закрепляется за клиентом", func(t *testing.T) {
		repo := new(RepoMock)
		svc := NewRegistryService(repo, newNoopLogger())

		n := freeNumber()
		repo.On("GetNumberForUpdate", mock.Anything, mock.Anything, int64(42)).Return(n, nil).Once()
		repo.On("GetHolderByNumberID", mock.Anything, mock.Anything, int64(42)).Return(nil, nil).Once()
		repo.On("GetClientForUpdate", mock.Anything, mock.Anything, clientID).
			Return(&models.Client{ID: clientID}, nil).Once()
		repo.On("LinkSubscriptionNumber", mock.Anything, mock.Anything, clientID,
			&n.ID, &n.Number).Return(nil).Once()
		repo.On("SetNumberAvailability", mock.Anything, mock.Anything, int64(42), false).Return(nil).Once()

		err := svc.Assign(context.Background(), 42, &clientID)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("номер активного клиента перехватить нельзя", func(t *testing.T) {
		repo := new(RepoMock)
		svc := NewRegistryService(repo, newNoopLogger())

		repo.On("GetNumberForUpdate", mock.Anything, mock.Anything, int64(42)).
			Return(&models.SubscriptionNumber{ID: 42, Number: "1001", IsAvailable: false}, nil).Once()
		repo.On("GetHolderByNumberID", mock.Anything, mock.Anything, int64(42)).
			Return(&models.Client{ID: 9}, nil).Once()
		repo.On("GetLatestSubscriptionByClient", mock.Anything, mock.Anything, int64(9)).
			Return(&models.Subscription{Status: models.StatusActive}, nil).Once()

		err := svc.Assign(context.Background(), 42, &clientID)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNumberTaken)
		repo.AssertExpectations(t)
	})

	t.Run("номер клиента с отменённой подпиской перехватывается", func(t *testing.T) {
		repo := new(RepoMock)
		svc := NewRegistryService(repo, newNoopLogger())

		n := &models.SubscriptionNumber{ID: 42, Number: "1001", IsAvailable: false}
		repo.On("GetNumberForUpdate", mock.Anything, mock.Anything, int64(42)).Return(n, nil).Once()
		repo.On("GetHolderByNumberID", mock.Anything, mock.Anything, int64(42)).
			Return(&models.Client{ID: 9}, nil).Once()
		repo.On("GetLatestSubscriptionByClient", mock.Anything, mock.Anything, int64(9)).
			Return(&models.Subscription{Status: models.StatusCanceled}, nil).Once()
		repo.On("LinkSubscriptionNumber", mock.Anything, mock.Anything, int64(9),
			(*int64)(nil), (*string)(nil)).Return(nil).Once()
		repo.On("GetClientForUpdate", mock.Anything, mock.Anything, clientID).
			Return(&models.Client{ID: clientID}, nil).Once()
		repo.On("LinkSubscriptionNumber", mock.Anything, mock.Anything, clientID,
			&n.ID, &n.Number).Return(nil).Once()
		repo.On("SetNumberAvailability", mock.Anything, mock.Anything, int64(42), false).Return(nil).Once()

		err := svc.Assign(context.Background(), 42, &clientID)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("прежний номер нового держателя возвращается в пул", func(t *testing.T) {
		repo := new(RepoMock)
		svc := NewRegistryService(repo, newNoopLogger())

		n := freeNumber()
		oldNumberID := int64(11)
		oldNumber := "0900"
		repo.On("GetNumberForUpdate", mock.Anything, mock.Anything, int64(42)).Return(n, nil).Once()
		repo.On("GetHolderByNumberID", mock.Anything, mock.Anything, int64(42)).Return(nil, nil).Once()
		repo.On("GetClientForUpdate", mock.Anything, mock.Anything, clientID).
			Return(&models.Client{
				ID:                   clientID,
				SubscriptionNumber:   &oldNumber,
				SubscriptionNumberID: &oldNumberID,
			}, nil).Once()
		repo.On("SetNumberAvailability", mock.Anything, mock.Anything, oldNumberID, true).Return(nil).Once()
		repo.On("LinkSubscriptionNumber", mock.Anything, mock.Anything, clientID,
			(*int64)(nil), (*string)(nil)).Return(nil).Once()
		repo.On("LinkSubscriptionNumber", mock.Anything, mock.Anything, clientID,
			&n.ID, &n.Number).Return(nil).Once()
		repo.On("SetNumberAvailability", mock.Anything, mock.Anything, int64(42), false).Return(nil).Once()

		err := svc.Assign(context.Background(), 42, &clientID)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("nil clientID освобождает номер", func(t *testing.T) {
		repo := new(RepoMock)
		svc := NewRegistryService(repo, newNoopLogger())

		repo.On("GetNumberForUpdate", mock.Anything, mock.Anything, int64(42)).
			Return(&models.SubscriptionNumber{ID: 42, Number: "1001", IsAvailable: false}, nil).Once()
		repo.On("GetHolderByNumberID", mock.Anything, mock.Anything, int64(42)).
			Return(&models.Client{ID: 9}, nil).Once()
		repo.On("LinkSubscriptionNumber", mock.Anything, mock.Anything, int64(9),
			(*int64)(nil), (*string)(nil)).Return(nil).Once()
		repo.On("SetNumberAvailability", mock.Anything, mock.Anything, int64(42), true).Return(nil).Once()

		err := svc.Assign(context.Background(), 42, nil)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})
}

func TestRegistryService_BulkCreate(t *testing.T) {
	repo := new(RepoMock)
	svc := NewRegistryService(repo, newNoopLogger())

	repo.On("BulkInsertNumbers", mock.Anything, 100, 200).Return(85, nil).Once()

	added, err := svc.BulkCreate(context.Background(), 100, 200)
	require.NoError(t, err)
	assert.Equal(t, 85, added)
	repo.AssertExpectations(t)
}

func TestRegistryService_Remove(t *testing.T) {
	t.Run("закреплённый номер не удаляется", func(t *testing.T) {
		repo := new(RepoMock)
		svc := NewRegistryService(repo, newNoopLogger())

		repo.On("GetNumberForUpdate", mock.Anything, mock.Anything, int64(42)).
			Return(&models.SubscriptionNumber{ID: 42, IsAvailable: false}, nil).Once()
		repo.On("GetHolderByNumberID", mock.Anything, mock.Anything, int64(42)).
			Return(&models.Client{ID: 9}, nil).Once()

		err := svc.Remove(context.Background(), 42)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNumberLinked)
		repo.AssertExpectations(t)
	})

	t.Run("свободный номер удаляется", func(t *testing.T) {
		repo := new(RepoMock)
		svc := NewRegistryService(repo, newNoopLogger())

		repo.On("GetNumberForUpdate", mock.Anything, mock.Anything, int64(42)).
			Return(freeNumber(), nil).Once()
		repo.On("GetHolderByNumberID", mock.Anything, mock.Anything, int64(42)).
			Return(nil, nil).Once()
		repo.On("DeleteNumber", mock.Anything, mock.Anything, int64(42)).Return(nil).Once()

		err := svc.Remove(context.Background(), 42)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})
}

func TestRegistryService_Update(t *testing.T) {
	repo := new(RepoMock)
	svc := NewRegistryService(repo, newNoopLogger())

	repo.On("GetNumberForUpdate", mock.Anything, mock.Anything, int64(42)).
		Return(&models.SubscriptionNumber{ID: 42, IsAvailable: false}, nil).Once()
	repo.On("GetHolderByNumberID", mock.Anything, mock.Anything, int64(42)).
		Return(&models.Client{ID: 9}, nil).Once()
	repo.On("LinkSubscriptionNumber", mock.Anything, mock.Anything, int64(9),
		(*int64)(nil), (*string)(nil)).Return(nil).Once()
	repo.On("UpdateNumber", mock.Anything, mock.Anything, int64(42), "2002", true).Return(nil).Once()

	err := svc.Update(context.Background(), 42, "2002", true)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}
