package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/raminazmi/RoseDye-backend/internal/ledger"
	"github.com/raminazmi/RoseDye-backend/internal/models"
)

const clientColumns = `id, phone, current_balance, renewal_balance, original_gift,
			      additional_gift, subscription_number, subscription_number_id`

func scanClient(row *sql.Row) (*models.Client, error) {
	var c models.Client
	var number sql.NullString
	var numberID sql.NullInt64
	if err := row.Scan(&c.ID, &c.Phone, &c.CurrentBalance, &c.RenewalBalance,
		&c.OriginalGift, &c.AdditionalGift, &number, &numberID); err != nil {
		return nil, err
	}
	if number.Valid {
		c.SubscriptionNumber = &number.String
	}
	if numberID.Valid {
		c.SubscriptionNumberID = &numberID.Int64
	}
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// CreateClient вставляет нового клиента и возвращает его ID.
func (s *Storage) CreateClient(ctx context.Context, tx *sql.Tx, c models.Client) (int64, error) {
	const op = "storage.CreateClient"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO clients (phone, current_balance, renewal_balance, original_gift,
			      additional_gift, subscription_number, subscription_number_id)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id`
	var newID int64
	err := tx.QueryRowContext(ctx, query,
		c.Phone, c.CurrentBalance, c.RenewalBalance, c.OriginalGift,
		c.AdditionalGift, c.SubscriptionNumber, c.SubscriptionNumberID).Scan(&newID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%s: %w", op, ErrDuplicate)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetClient возвращает клиента по его ID.
func (s *Storage) GetClient(ctx context.Context, id int64) (*models.Client, error) {
	const op = "storage.GetClient"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
	c, err := scanClient(s.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrClientNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// GetClientForUpdate блокирует строку клиента до конца транзакции и
// возвращает её. Все мутации корзин обязаны начинаться с этого вызова.
func (s *Storage) GetClientForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Client, error) {
	const op = "storage.GetClientForUpdate"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1 FOR UPDATE`
	c, err := scanClient(tx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrClientNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// UpdateClientBuckets записывает новое состояние денежных корзин клиента.
func (s *Storage) UpdateClientBuckets(ctx context.Context, tx *sql.Tx, id int64, b ledger.Buckets) error {
	const op = "storage.UpdateClientBuckets"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE clients
			  SET current_balance = $1, renewal_balance = $2, additional_gift = $3
			  WHERE id = $4`
	result, err := tx.ExecContext(ctx, query, b.Current, b.Renewal, b.AdditionalGift, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrClientNotFound)
	}
	return nil
}

// UpdateClient обновляет телефон и корзины клиента.
func (s *Storage) UpdateClient(ctx context.Context, tx *sql.Tx, c models.Client) error {
	const op = "storage.UpdateClient"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE clients
			  SET phone = $1, current_balance = $2, renewal_balance = $3, additional_gift = $4
			  WHERE id = $5`
	result, err := tx.ExecContext(ctx, query,
		c.Phone, c.CurrentBalance, c.RenewalBalance, c.AdditionalGift, c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, ErrDuplicate)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrClientNotFound)
	}
	return nil
}

// LinkSubscriptionNumber закрепляет абонентский номер за клиентом;
// nil-значения снимают закрепление.
func (s *Storage) LinkSubscriptionNumber(ctx context.Context, tx *sql.Tx, clientID int64, numberID *int64, number *string) error {
	const op = "storage.LinkSubscriptionNumber"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE clients
			  SET subscription_number_id = $1, subscription_number = $2
			  WHERE id = $3`
	result, err := tx.ExecContext(ctx, query, numberID, number, clientID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, ErrDuplicate)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrClientNotFound)
	}
	return nil
}

// ListClients возвращает список клиентов с пагинацией.
func (s *Storage) ListClients(ctx context.Context, limit, offset int) ([]*models.Client, error) {
	const op = "storage.ListClients"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + clientColumns + `
			  FROM clients
			  ORDER BY id
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Client
	for rows.Next() {
		var c models.Client
		var number sql.NullString
		var numberID sql.NullInt64
		if err := rows.Scan(&c.ID, &c.Phone, &c.CurrentBalance, &c.RenewalBalance,
			&c.OriginalGift, &c.AdditionalGift, &number, &numberID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if number.Valid {
			c.SubscriptionNumber = &number.String
		}
		if numberID.Valid {
			c.SubscriptionNumberID = &numberID.Int64
		}
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// DeleteClient удаляет клиента; его счета удаляются каскадно.
func (s *Storage) DeleteClient(ctx context.Context, tx *sql.Tx, id int64) error {
	const op = "storage.DeleteClient"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrClientNotFound)
	}
	return nil
}
