package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/raminazmi/RoseDye-backend/internal/models"
)

// GetStatistics собирает сводные показатели: количество клиентов и подписок
// по статусам и суммарную выручку по счетам.
func (s *Storage) GetStatistics(ctx context.Context) (*models.Statistics, error) {
	const op = "storage.GetStatistics"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT
			      (SELECT COUNT(*) FROM clients),
			      (SELECT COUNT(*) FROM subscriptions WHERE status = 'active'),
			      (SELECT COUNT(*) FROM subscriptions WHERE status = 'expired'),
			      (SELECT COUNT(*) FROM subscriptions WHERE status = 'canceled'),
			      (SELECT COUNT(*) FROM invoices),
			      (SELECT COALESCE(SUM(amount), 0) FROM invoices)`
	var st models.Statistics
	var revenue string
	if err := s.DB.QueryRowContext(ctx, query).Scan(
		&st.TotalClients, &st.ActiveSubscriptions, &st.ExpiredSubscriptions,
		&st.CanceledSubscriptions, &st.TotalInvoices, &revenue); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	total, err := decimal.NewFromString(revenue)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	st.TotalRevenue = total
	return &st, nil
}
