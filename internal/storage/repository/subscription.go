package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/raminazmi/RoseDye-backend/internal/models"
)

const subscriptionColumns = `id, client_id, plan_name, price, start_date, end_date,
			      duration_in_days, status`

func scanSubscriptionRow(row *sql.Row) (*models.Subscription, error) {
	var sub models.Subscription
	if err := row.Scan(&sub.ID, &sub.ClientID, &sub.PlanName, &sub.Price,
		&sub.StartDate, &sub.EndDate, &sub.DurationInDays, &sub.Status); err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateSubscription вставляет новую подписку и возвращает её ID.
func (s *Storage) CreateSubscription(ctx context.Context, tx *sql.Tx, sub models.Subscription) (int64, error) {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (client_id, plan_name, price, start_date, end_date,
			      duration_in_days, status)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id`
	var newID int64
	err := tx.QueryRowContext(ctx, query,
		sub.ClientID, sub.PlanName, sub.Price, sub.StartDate, sub.EndDate,
		sub.DurationInDays, sub.Status).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetSubscription возвращает подписку по её ID.
func (s *Storage) GetSubscription(ctx context.Context, id int64) (*models.Subscription, error) {
	const op = "storage.GetSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	sub, err := scanSubscriptionRow(s.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrSubscriptionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// GetSubscriptionForUpdate блокирует строку подписки до конца транзакции.
func (s *Storage) GetSubscriptionForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Subscription, error) {
	const op = "storage.GetSubscriptionForUpdate"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1 FOR UPDATE`
	sub, err := scanSubscriptionRow(tx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrSubscriptionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// GetActiveSubscriptionByClient возвращает активную подписку клиента.
func (s *Storage) GetActiveSubscriptionByClient(ctx context.Context, clientID int64) (*models.Subscription, error) {
	const op = "storage.GetActiveSubscriptionByClient"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE client_id = $1 AND status = $2
			  ORDER BY end_date DESC
			  LIMIT 1`
	sub, err := scanSubscriptionRow(s.DB.QueryRowContext(ctx, query, clientID, models.StatusActive))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrSubscriptionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// GetLatestSubscriptionByClient возвращает последнюю подписку клиента
// независимо от статуса.
func (s *Storage) GetLatestSubscriptionByClient(ctx context.Context, tx *sql.Tx, clientID int64) (*models.Subscription, error) {
	const op = "storage.GetLatestSubscriptionByClient"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE client_id = $1
			  ORDER BY id DESC
			  LIMIT 1`
	sub, err := scanSubscriptionRow(tx.QueryRowContext(ctx, query, clientID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrSubscriptionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// UpdateSubscriptionPeriod записывает новый период и статус подписки.
func (s *Storage) UpdateSubscriptionPeriod(ctx context.Context, tx *sql.Tx, id int64, start, end time.Time, durationInDays int, status string) error {
	const op = "storage.UpdateSubscriptionPeriod"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET start_date = $1, end_date = $2, duration_in_days = $3, status = $4
			  WHERE id = $5`
	result, err := tx.ExecContext(ctx, query, start, end, durationInDays, status, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrSubscriptionNotFound)
	}
	return nil
}

// UpdateSubscriptionStatus меняет только статус подписки.
func (s *Storage) UpdateSubscriptionStatus(ctx context.Context, tx *sql.Tx, id int64, status string) error {
	const op = "storage.UpdateSubscriptionStatus"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE subscriptions SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrSubscriptionNotFound)
	}
	return nil
}

// DeleteSubscriptionsByClient удаляет все подписки клиента.
func (s *Storage) DeleteSubscriptionsByClient(ctx context.Context, tx *sql.Tx, clientID int64) error {
	const op = "storage.DeleteSubscriptionsByClient"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE client_id = $1`, clientID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListSubscriptionInfos возвращает подписки с данными клиента и количеством
// счетов, с пагинацией.
func (s *Storage) ListSubscriptionInfos(ctx context.Context, limit, offset int) ([]*models.SubscriptionInfo, error) {
	const op = "storage.ListSubscriptionInfos"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT s.id,
			      COALESCE(c.subscription_number, ''),
			      c.phone,
			      s.end_date,
			      (SELECT COUNT(*) FROM invoices i WHERE i.client_id = c.id),
			      c.renewal_balance,
			      c.additional_gift
			  FROM subscriptions s
			  JOIN clients c ON c.id = s.client_id
			  ORDER BY s.id
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.SubscriptionInfo
	for rows.Next() {
		var si models.SubscriptionInfo
		if err := rows.Scan(&si.ID, &si.SubscriptionNumber, &si.ClientPhone, &si.EndDate,
			&si.InvoicesCount, &si.RenewalBalance, &si.AdditionalGift); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &si)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// FindOverdueActive возвращает активные подписки, чей срок истёк к moment.
func (s *Storage) FindOverdueActive(ctx context.Context, moment time.Time) ([]*models.Subscription, error) {
	const op = "storage.FindOverdueActive"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE status = $1 AND end_date < $2`
	rows, err := s.DB.QueryContext(ctx, query, models.StatusActive, moment)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		var sub models.Subscription
		if err := rows.Scan(&sub.ID, &sub.ClientID, &sub.PlanName, &sub.Price,
			&sub.StartDate, &sub.EndDate, &sub.DurationInDays, &sub.Status); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// FindExpiringBetween возвращает активные подписки с датой окончания в
// интервале [from, to] вместе с данными клиента для уведомления.
func (s *Storage) FindExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.SubscriptionInfo, error) {
	const op = "storage.FindExpiringBetween"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT s.id,
			      COALESCE(c.subscription_number, ''),
			      c.phone,
			      s.end_date,
			      (SELECT COUNT(*) FROM invoices i WHERE i.client_id = c.id),
			      c.renewal_balance,
			      c.additional_gift
			  FROM subscriptions s
			  JOIN clients c ON c.id = s.client_id
			  WHERE s.status = $1 AND s.end_date BETWEEN $2 AND $3`
	rows, err := s.DB.QueryContext(ctx, query, models.StatusActive, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.SubscriptionInfo
	for rows.Next() {
		var si models.SubscriptionInfo
		if err := rows.Scan(&si.ID, &si.SubscriptionNumber, &si.ClientPhone, &si.EndDate,
			&si.InvoicesCount, &si.RenewalBalance, &si.AdditionalGift); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &si)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
