package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/raminazmi/RoseDye-backend/internal/models"
)

const invoiceColumns = `id, user_uid, client_id, invoice_number, date, amount,
			      gift_amount, renewal_amount`

// CreateInvoice вставляет новый счёт и возвращает его ID.
func (s *Storage) CreateInvoice(ctx context.Context, tx *sql.Tx, inv models.Invoice) (int64, error) {
	const op = "storage.CreateInvoice"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO invoices (user_uid, client_id, invoice_number, date, amount,
			      gift_amount, renewal_amount)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id`
	var newID int64
	err := tx.QueryRowContext(ctx, query,
		inv.UserUID, inv.ClientID, inv.InvoiceNumber, inv.Date, inv.Amount,
		inv.GiftAmount, inv.RenewalAmount).Scan(&newID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%s: %w", op, ErrDuplicate)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetInvoice возвращает счёт по его ID.
func (s *Storage) GetInvoice(ctx context.Context, id int64) (*models.Invoice, error) {
	const op = "storage.GetInvoice"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	inv, err := scanInvoiceRow(s.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvoiceNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return inv, nil
}

// GetInvoiceForUpdate блокирует строку счёта до конца транзакции.
func (s *Storage) GetInvoiceForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Invoice, error) {
	const op = "storage.GetInvoiceForUpdate"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 FOR UPDATE`
	inv, err := scanInvoiceRow(tx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvoiceNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return inv, nil
}

func scanInvoiceRow(row *sql.Row) (*models.Invoice, error) {
	var inv models.Invoice
	if err := row.Scan(&inv.ID, &inv.UserUID, &inv.ClientID, &inv.InvoiceNumber,
		&inv.Date, &inv.Amount, &inv.GiftAmount, &inv.RenewalAmount); err != nil {
		return nil, err
	}
	return &inv, nil
}

// UpdateInvoice перезаписывает дату, сумму и разбивку счёта.
func (s *Storage) UpdateInvoice(ctx context.Context, tx *sql.Tx, inv models.Invoice) error {
	const op = "storage.UpdateInvoice"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE invoices
			  SET date = $1, amount = $2, gift_amount = $3, renewal_amount = $4
			  WHERE id = $5`
	result, err := tx.ExecContext(ctx, query, inv.Date, inv.Amount, inv.GiftAmount, inv.RenewalAmount, inv.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrInvoiceNotFound)
	}
	return nil
}

// DeleteInvoice удаляет счёт по ID.
func (s *Storage) DeleteInvoice(ctx context.Context, tx *sql.Tx, id int64) error {
	const op = "storage.DeleteInvoice"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrInvoiceNotFound)
	}
	return nil
}

// ListInvoices возвращает счета, выписанные пользователем, с пагинацией.
func (s *Storage) ListInvoices(ctx context.Context, userUID string, limit, offset int) ([]*models.Invoice, error) {
	const op = "storage.ListInvoices"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + invoiceColumns + `
			  FROM invoices
			  WHERE user_uid = $1
			  ORDER BY id DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Invoice
	for rows.Next() {
		var inv models.Invoice
		if err := rows.Scan(&inv.ID, &inv.UserUID, &inv.ClientID, &inv.InvoiceNumber,
			&inv.Date, &inv.Amount, &inv.GiftAmount, &inv.RenewalAmount); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// MaxInvoiceNumber возвращает наибольший номер счёта пользователя
// (пустая строка, если счетов ещё нет).
func (s *Storage) MaxInvoiceNumber(ctx context.Context, tx *sql.Tx, userUID string) (string, error) {
	const op = "storage.MaxInvoiceNumber"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var number sql.NullString
	query := `SELECT MAX(invoice_number) FROM invoices WHERE user_uid = $1`
	if err := tx.QueryRowContext(ctx, query, userUID).Scan(&number); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !number.Valid {
		return "", nil
	}
	return number.String, nil
}

// InvoiceNumberExists проверяет глобальную занятость номера счёта.
func (s *Storage) InvoiceNumberExists(ctx context.Context, tx *sql.Tx, number string) (bool, error) {
	const op = "storage.InvoiceNumberExists"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM invoices WHERE invoice_number = $1)`
	if err := tx.QueryRowContext(ctx, query, number).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}
