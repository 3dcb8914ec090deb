package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/raminazmi/RoseDye-backend/internal/models"
)

// RegisterUser сохраняет нового пользователя в базу данных и возвращает его UID.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newUID string
	query := `INSERT INTO users (uid, username, phone, password_hash, role)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING uid;`
	if err := s.DB.QueryRowContext(ctx, query,
		uuid.New().String(), user.Username, user.Phone, user.PasswordHash, user.Role).Scan(&newUID); err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%s: %w", op, ErrDuplicate)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// GetUserByUsername возвращает пользователя по его username.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUserByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, username, phone, password_hash, role
			  FROM users
			  WHERE username = $1`
	u := &models.User{}
	row := s.DB.QueryRowContext(ctx, query, username)
	if err := row.Scan(&u.UID, &u.Username, &u.Phone, &u.PasswordHash, &u.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByPhone возвращает пользователя по номеру телефона.
func (s *Storage) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	const op = "storage.GetUserByPhone"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, username, phone, password_hash, role
			  FROM users
			  WHERE phone = $1`
	u := &models.User{}
	row := s.DB.QueryRowContext(ctx, query, phone)
	if err := row.Scan(&u.UID, &u.Username, &u.Phone, &u.PasswordHash, &u.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpdateUserPhone меняет номер телефона пользователя портала. Используется
// при смене телефона клиента, чтобы его учётная запись осталась связанной.
func (s *Storage) UpdateUserPhone(ctx context.Context, tx *sql.Tx, oldPhone, newPhone string) error {
	const op = "storage.UpdateUserPhone"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	_, err := tx.ExecContext(ctx,
		`UPDATE users SET phone = $1, username = $1 WHERE phone = $2 AND role = 'client'`,
		newPhone, oldPhone)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, ErrDuplicate)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteUserByPhone удаляет учётную запись портала по номеру телефона.
func (s *Storage) DeleteUserByPhone(ctx context.Context, tx *sql.Tx, phone string) error {
	const op = "storage.DeleteUserByPhone"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	_, err := tx.ExecContext(ctx,
		`DELETE FROM users WHERE phone = $1 AND role = 'client'`, phone)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
