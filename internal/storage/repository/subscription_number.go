package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/raminazmi/RoseDye-backend/internal/models"
)

func scanNumberRow(row *sql.Row) (*models.SubscriptionNumber, error) {
	var n models.SubscriptionNumber
	if err := row.Scan(&n.ID, &n.Number, &n.IsAvailable); err != nil {
		return nil, err
	}
	return &n, nil
}

// GetNumber возвращает запись реестра по её ID.
func (s *Storage) GetNumber(ctx context.Context, id int64) (*models.SubscriptionNumber, error) {
	const op = "storage.GetNumber"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, number, is_available FROM subscription_numbers WHERE id = $1`
	n, err := scanNumberRow(s.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrSubscriptionNumberNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// GetNumberForUpdate блокирует запись реестра до конца транзакции.
func (s *Storage) GetNumberForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.SubscriptionNumber, error) {
	const op = "storage.GetNumberForUpdate"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, number, is_available FROM subscription_numbers WHERE id = $1 FOR UPDATE`
	n, err := scanNumberRow(tx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrSubscriptionNumberNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// GetNumberByValue возвращает запись реестра по значению номера,
// блокируя её до конца транзакции.
func (s *Storage) GetNumberByValue(ctx context.Context, tx *sql.Tx, number string) (*models.SubscriptionNumber, error) {
	const op = "storage.GetNumberByValue"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, number, is_available FROM subscription_numbers WHERE number = $1 FOR UPDATE`
	n, err := scanNumberRow(tx.QueryRowContext(ctx, query, number))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrSubscriptionNumberNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// CreateNumber вставляет новый номер в реестр и возвращает его ID.
func (s *Storage) CreateNumber(ctx context.Context, tx *sql.Tx, number string, isAvailable bool) (int64, error) {
	const op = "storage.CreateNumber"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscription_numbers (number, is_available)
			  VALUES ($1, $2)
			  RETURNING id`
	var newID int64
	if err := tx.QueryRowContext(ctx, query, number, isAvailable).Scan(&newID); err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%s: %w", op, ErrDuplicate)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// BulkInsertNumbers вставляет все номера диапазона [start, end], которых ещё
// нет в реестре, как свободные. Возвращает количество добавленных.
func (s *Storage) BulkInsertNumbers(ctx context.Context, start, end int) (int, error) {
	const op = "storage.BulkInsertNumbers"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscription_numbers (number, is_available)
			  SELECT n::text, true FROM generate_series($1::int, $2::int) AS n
			  ON CONFLICT (number) DO NOTHING`
	result, err := s.DB.ExecContext(ctx, query, start, end)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// SetNumberAvailability меняет флаг доступности номера.
func (s *Storage) SetNumberAvailability(ctx context.Context, tx *sql.Tx, id int64, isAvailable bool) error {
	const op = "storage.SetNumberAvailability"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE subscription_numbers SET is_available = $1 WHERE id = $2`, isAvailable, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrSubscriptionNumberNotFound)
	}
	return nil
}

// UpdateNumber перезаписывает значение номера и его доступность.
func (s *Storage) UpdateNumber(ctx context.Context, tx *sql.Tx, id int64, number string, isAvailable bool) error {
	const op = "storage.UpdateNumber"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE subscription_numbers SET number = $1, is_available = $2 WHERE id = $3`,
		number, isAvailable, id)
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
		return fmt.Errorf("%s: %w", op, ErrSubscriptionNumberNotFound)
	}
	return nil
}

// DeleteNumber удаляет номер из реестра.
func (s *Storage) DeleteNumber(ctx context.Context, tx *sql.Tx, id int64) error {
	const op = "storage.DeleteNumber"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM subscription_numbers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrSubscriptionNumberNotFound)
	}
	return nil
}

// GetHolderByNumberID возвращает клиента, за которым закреплён номер,
// блокируя его строку; nil — если номер свободен.
func (s *Storage) GetHolderByNumberID(ctx context.Context, tx *sql.Tx, numberID int64) (*models.Client, error) {
	const op = "storage.GetHolderByNumberID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + clientColumns + ` FROM clients WHERE subscription_number_id = $1 FOR UPDATE`
	c, err := scanClient(tx.QueryRowContext(ctx, query, numberID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// ListNumbers возвращает реестр с телефоном держателя, с пагинацией.
func (s *Storage) ListNumbers(ctx context.Context, limit, offset int) ([]*models.SubscriptionNumber, error) {
	const op = "storage.ListNumbers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT n.id, n.number, n.is_available, c.id, c.phone
			  FROM subscription_numbers n
			  LEFT JOIN clients c ON c.subscription_number_id = n.id
			  ORDER BY n.id
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.SubscriptionNumber
	for rows.Next() {
		var n models.SubscriptionNumber
		var clientID sql.NullInt64
		var clientPhone sql.NullString
		if err := rows.Scan(&n.ID, &n.Number, &n.IsAvailable, &clientID, &clientPhone); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if clientID.Valid {
			n.ClientID = &clientID.Int64
		}
		if clientPhone.Valid {
			n.ClientPhone = &clientPhone.String
		}
		result = append(result, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
