package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raminazmi/RoseDye-backend/internal/ledger"
	"github.com/raminazmi/RoseDye-backend/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestStorage_ApplyInvoiceRoundTrip(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	clientID := factory.CreateClient(t, "+96550000001",
		dec("0"), dec("0"), dec("15"), dec("0"))
	_, err := storage.DB.Exec(`UPDATE clients SET additional_gift = 10 WHERE id = $1`, clientID)
	require.NoError(t, err)

	amount := dec("12")
	var breakdown ledger.Breakdown

	// Списание суммы счёта внутри одной транзакции с блокировкой строки.
	err = storage.WithTx(ctx, func(tx *sql.Tx) error {
		client, err := storage.GetClientForUpdate(ctx, tx, clientID)
		if err != nil {
			return err
		}
		after, br, err := ledger.Apply(ledger.Buckets{
			Current:        client.CurrentBalance,
			Renewal:        client.RenewalBalance,
			OriginalGift:   client.OriginalGift,
			AdditionalGift: client.AdditionalGift,
		}, amount)
		if err != nil {
			return err
		}
		breakdown = br
		return storage.UpdateClientBuckets(ctx, tx, clientID, after)
	})
	require.NoError(t, err)

	got, err := storage.GetClient(ctx, clientID)
	require.NoError(t, err)
	assert.True(t, got.AdditionalGift.IsZero(), "gift = %s", got.AdditionalGift)
	assert.True(t, got.RenewalBalance.Equal(dec("-2")), "renewal = %s", got.RenewalBalance)
	assert.True(t, got.CurrentBalance.Equal(dec("12")), "current = %s", got.CurrentBalance)

	// Сторнирование по сохранённой разбивке возвращает исходное состояние.
	err = storage.WithTx(ctx, func(tx *sql.Tx) error {
		client, err := storage.GetClientForUpdate(ctx, tx, clientID)
		if err != nil {
			return err
		}
		after, _, err := ledger.Reverse(ledger.Buckets{
			Current:        client.CurrentBalance,
			Renewal:        client.RenewalBalance,
			OriginalGift:   client.OriginalGift,
			AdditionalGift: client.AdditionalGift,
		}, breakdown)
		if err != nil {
			return err
		}
		return storage.UpdateClientBuckets(ctx, tx, clientID, after)
	})
	require.NoError(t, err)

	got, err = storage.GetClient(ctx, clientID)
	require.NoError(t, err)
	assert.True(t, got.AdditionalGift.Equal(dec("10")), "gift = %s", got.AdditionalGift)
	assert.True(t, got.RenewalBalance.IsZero(), "renewal = %s", got.RenewalBalance)
	assert.True(t, got.CurrentBalance.IsZero(), "current = %s", got.CurrentBalance)
}

func TestStorage_ConcurrentBucketUpdates(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	clientID := factory.CreateClient(t, "+96550000002",
		dec("0"), dec("100"), dec("0"), dec("0"))

	const workers = 8
	amount := dec("5")

	errCh := make(chan error, workers)
	for range workers {
		go func() {
			errCh <- storage.WithTx(ctx, func(tx *sql.Tx) error {
				client, err := storage.GetClientForUpdate(ctx, tx, clientID)
				if err != nil {
					return err
				}
				after, _, err := ledger.Apply(ledger.Buckets{
					Current:        client.CurrentBalance,
					Renewal:        client.RenewalBalance,
					OriginalGift:   client.OriginalGift,
					AdditionalGift: client.AdditionalGift,
				}, amount)
				if err != nil {
					return err
				}
				return storage.UpdateClientBuckets(ctx, tx, clientID, after)
			})
		}()
	}
	for range workers {
		require.NoError(t, <-errCh)
	}

	got, err := storage.GetClient(ctx, clientID)
	require.NoError(t, err)
	// 100 - 8*5: блокировка строки исключает потерянные обновления.
	assert.True(t, got.RenewalBalance.Equal(dec("60")), "renewal = %s", got.RenewalBalance)
	assert.True(t, got.CurrentBalance.Equal(dec("40")), "current = %s", got.CurrentBalance)
}

func TestStorage_NumberExclusivity(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	numberID := factory.CreateNumberRow(t, "1001", true)
	firstID := factory.CreateClient(t, "+96550000003", dec("0"), dec("0"), dec("0"), dec("0"))
	secondID := factory.CreateClient(t, "+96550000004", dec("0"), dec("0"), dec("0"), dec("0"))

	number := "1001"
	err := storage.WithTx(ctx, func(tx *sql.Tx) error {
		if err := storage.LinkSubscriptionNumber(ctx, tx, firstID, &numberID, &number); err != nil {
			return err
		}
		return storage.SetNumberAvailability(ctx, tx, numberID, false)
	})
	require.NoError(t, err)

	// Второй клиент не может занять тот же номер: уникальный индекс.
	err = storage.WithTx(ctx, func(tx *sql.Tx) error {
		return storage.LinkSubscriptionNumber(ctx, tx, secondID, &numberID, &number)
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicate), "got: %v", err)

	holder := func() *models.Client {
		var c *models.Client
		require.NoError(t, storage.WithTx(ctx, func(tx *sql.Tx) error {
			var err error
			c, err = storage.GetHolderByNumberID(ctx, tx, numberID)
			return err
		}))
		return c
	}()
	require.NotNil(t, holder)
	assert.Equal(t, firstID, holder.ID)
}

func TestStorage_ListNumbers(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	added, err := storage.BulkInsertNumbers(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, added)

	// Повторная вставка пересекающегося диапазона добавляет только новые номера.
	added, err = storage.BulkInsertNumbers(ctx, 4, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	clientID := factory.CreateClient(t, "+96550000005", dec("0"), dec("0"), dec("0"), dec("0"))
	err = storage.WithTx(ctx, func(tx *sql.Tx) error {
		n, err := storage.GetNumberByValue(ctx, tx, "3")
		if err != nil {
			return err
		}
		number := n.Number
		if err := storage.LinkSubscriptionNumber(ctx, tx, clientID, &n.ID, &number); err != nil {
			return err
		}
		return storage.SetNumberAvailability(ctx, tx, n.ID, false)
	})
	require.NoError(t, err)

	numbers, err := storage.ListNumbers(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, numbers, 7)

	var taken int
	for _, n := range numbers {
		if !n.IsAvailable {
			taken++
			require.NotNil(t, n.ClientPhone)
			assert.Equal(t, "+96550000005", *n.ClientPhone)
		}
	}
	assert.Equal(t, 1, taken)
}

func TestStorage_FindOverdueAndExpiring(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	makeClient := func(i int) int64 {
		return factory.CreateClient(t, fmt.Sprintf("+9655000010%d", i),
			dec("0"), dec("0"), dec("0"), dec("0"))
	}

	overdueClient := makeClient(1)
	expiringClient := makeClient(2)
	healthyClient := makeClient(3)

	factory.CreateSubscription(t, overdueClient, "monthly", dec("20"),
		now.AddDate(0, -1, 0), now.AddDate(0, 0, -1), 30, models.StatusActive)
	factory.CreateSubscription(t, expiringClient, "monthly", dec("20"),
		now.AddDate(0, 0, -28), now.AddDate(0, 0, 2), 30, models.StatusActive)
	factory.CreateSubscription(t, healthyClient, "monthly", dec("20"),
		now, now.AddDate(0, 1, 0), 30, models.StatusActive)

	overdue, err := storage.FindOverdueActive(ctx, now)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, overdueClient, overdue[0].ClientID)

	expiring, err := storage.FindExpiringBetween(ctx, now, now.AddDate(0, 0, 3))
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, "+96550000102", expiring[0].ClientPhone)
}

func TestStorage_ListInvoices(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	ctx := context.Background()

	uid := factory.CreateUser(t, "manager", "+96550000200", "hashedpassword", "admin")
	clientID := factory.CreateClient(t, "+96550000201", dec("0"), dec("0"), dec("0"), dec("0"))

	date := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 3; i++ {
		factory.CreateInvoice(t, uid, clientID, fmt.Sprintf("0000%d", i),
			date.AddDate(0, 0, i), dec("10"), dec("0"), dec("10"))
	}

	got, err := storage.ListInvoices(ctx, uid, 2, 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = storage.ListInvoices(ctx, uid, 10, 2)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	maxNumber, err := func() (string, error) {
		var n string
		err := storage.WithTx(ctx, func(tx *sql.Tx) error {
			var err error
			n, err = storage.MaxInvoiceNumber(ctx, tx, uid)
			return err
		})
		return n, err
	}()
	require.NoError(t, err)
	assert.Equal(t, "00003", maxNumber)
}
