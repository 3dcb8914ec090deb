// Package repository реализует хранилище данных на основе PostgreSQL
// для клиентов, подписок, счетов и реестра абонентских номеров. Все
// изменения денежных корзин выполняются внутри одной транзакции с
// блокировкой строки клиента (SELECT ... FOR UPDATE): два одновременных
// счёта на одного клиента не могут повредить арифметику корзин.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Ошибки хранилища, на которые сервисы отвечают конкретными HTTP-статусами.
var (
	ErrClientNotFound             = errors.New("client not found")
	ErrInvoiceNotFound            = errors.New("invoice not found")
	ErrSubscriptionNotFound       = errors.New("subscription not found")
	ErrSubscriptionNumberNotFound = errors.New("subscription number not found")
	ErrUserNotFound               = errors.New("user not found")
	ErrDuplicate                  = errors.New("duplicate value")
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL и проверяет его доступность.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady проверяет готовность базы данных.
func CheckDatabaseReady(storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'clients'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table clients missing or query error: %w", err)
	}
	return nil
}

// WithTx выполняет fn внутри транзакции: при ошибке — полный откат,
// при успехе — фиксация. Ручная «обратная» арифметика по корзинам запрещена,
// любой сбой внутри fn не оставляет частичных изменений.
func (s *Storage) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	const op = "storage.WithTx"
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%s: rollback failed: %v: %w", op, rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
