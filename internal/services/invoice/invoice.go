// Package services содержит бизнес-логику выставления и отката счетов.
// Все изменения денежных корзин клиента происходят внутри одной транзакции
// с блокировкой строки клиента.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/raminazmi/RoseDye-backend/internal/ledger"
	"github.com/raminazmi/RoseDye-backend/internal/lib/sl"
	"github.com/raminazmi/RoseDye-backend/internal/models"
	"github.com/raminazmi/RoseDye-backend/internal/notifier"
)

// InvoiceRepository определяет методы хранилища, нужные для работы со счетами.
type InvoiceRepository interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	GetClientForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Client, error)
	UpdateClientBuckets(ctx context.Context, tx *sql.Tx, id int64, b ledger.Buckets) error
	CreateInvoice(ctx context.Context, tx *sql.Tx, inv models.Invoice) (int64, error)
	GetInvoiceForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Invoice, error)
	UpdateInvoice(ctx context.Context, tx *sql.Tx, inv models.Invoice) error
	DeleteInvoice(ctx context.Context, tx *sql.Tx, id int64) error
	ListInvoices(ctx context.Context, userUID string, limit, offset int) ([]*models.Invoice, error)
	MaxInvoiceNumber(ctx context.Context, tx *sql.Tx, userUID string) (string, error)
	InvoiceNumberExists(ctx context.Context, tx *sql.Tx, number string) (bool, error)
	GetActiveSubscriptionByClient(ctx context.Context, clientID int64) (*models.Subscription, error)
}

// InvoiceService реализует операции над счетами.
type InvoiceService struct {
	repo     InvoiceRepository
	notifier notifier.Notifier
	log      *slog.Logger
}

// NewInvoiceService создает новый экземпляр InvoiceService.
func NewInvoiceService(repo InvoiceRepository, n notifier.Notifier, log *slog.Logger) *InvoiceService {
	return &InvoiceService{
		repo:     repo,
		notifier: n,
		log:      log,
	}
}

func bucketsOf(c *models.Client) ledger.Buckets {
	return ledger.Buckets{
		Current:        c.CurrentBalance,
		Renewal:        c.RenewalBalance,
		OriginalGift:   c.OriginalGift,
		AdditionalGift: c.AdditionalGift,
	}
}

// Create выставляет клиенту счёт: списывает сумму по корзинам, присваивает
// следующий свободный номер и сохраняет счёт с разбивкой списания.
// После фиксации транзакции клиенту отправляется WhatsApp-уведомление,
// ошибки отправки только логируются.
func (s *InvoiceService) Create(ctx context.Context, userUID string, req models.DummyInvoice) (int64, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return 0, fmt.Errorf("invalid invoice date: %w", err)
	}

	var invoiceID int64
	var after ledger.Buckets
	var breakdown ledger.Breakdown
	var phone string

	err = s.repo.WithTx(ctx, func(tx *sql.Tx) error {
		client, err := s.repo.GetClientForUpdate(ctx, tx, req.ClientID)
		if err != nil {
			return err
		}
		phone = client.Phone

		after, breakdown, err = ledger.Apply(bucketsOf(client), req.Amount)
		if err != nil {
			return err
		}
		if err := s.repo.UpdateClientBuckets(ctx, tx, client.ID, after); err != nil {
			return err
		}

		number, err := s.nextInvoiceNumber(ctx, tx, userUID)
		if err != nil {
			return err
		}

		invoiceID, err = s.repo.CreateInvoice(ctx, tx, models.Invoice{
			UserUID:       userUID,
			ClientID:      client.ID,
			InvoiceNumber: number,
			Date:          date,
			Amount:        req.Amount,
			GiftAmount:    breakdown.FromGift,
			RenewalAmount: breakdown.FromRenewal,
		})
		return err
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("created new invoice",
		slog.Int64("id", invoiceID),
		slog.Int64("client_id", req.ClientID),
		sl.Amount("amount", req.Amount))

	s.notifyInvoiceCreated(ctx, phone, req.ClientID, req.Amount, breakdown, after)
	return invoiceID, nil
}

// nextInvoiceNumber выдаёт следующий пятизначный номер счёта пользователя,
// пропуская номера, уже занятые другими пользователями.
func (s *InvoiceService) nextInvoiceNumber(ctx context.Context, tx *sql.Tx, userUID string) (string, error) {
	last, err := s.repo.MaxInvoiceNumber(ctx, tx, userUID)
	if err != nil {
		return "", err
	}
	next := 1
	if last != "" {
		n, err := strconv.Atoi(last)
		if err != nil {
			return "", fmt.Errorf("malformed invoice number %q: %w", last, err)
		}
		next = n + 1
	}
	for {
		candidate := fmt.Sprintf("%05d", next)
		taken, err := s.repo.InvoiceNumberExists(ctx, tx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		next++
	}
}

// Update меняет сумму счёта: откатывает сохранённую разбивку и применяет
// новую сумму в одной транзакции. Перенос счёта на другого клиента запрещён.
func (s *InvoiceService) Update(ctx context.Context, id int64, req models.DummyInvoice) error {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return fmt.Errorf("invalid invoice date: %w", err)
	}

	err = s.repo.WithTx(ctx, func(tx *sql.Tx) error {
		inv, err := s.repo.GetInvoiceForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if inv.ClientID != req.ClientID {
			return fmt.Errorf("invoice cannot be moved to another client")
		}

		client, err := s.repo.GetClientForUpdate(ctx, tx, inv.ClientID)
		if err != nil {
			return err
		}

		reversed, _, err := ledger.Reverse(bucketsOf(client), ledger.Breakdown{
			FromGift:    inv.GiftAmount,
			FromRenewal: inv.RenewalAmount,
		})
		if err != nil {
			return err
		}
		after, breakdown, err := ledger.Apply(reversed, req.Amount)
		if err != nil {
			return err
		}
		if err := s.repo.UpdateClientBuckets(ctx, tx, client.ID, after); err != nil {
			return err
		}

		inv.Date = date
		inv.Amount = req.Amount
		inv.GiftAmount = breakdown.FromGift
		inv.RenewalAmount = breakdown.FromRenewal
		return s.repo.UpdateInvoice(ctx, tx, *inv)
	})
	if err != nil {
		return err
	}

	s.log.Info("updated invoice", slog.Int64("id", id), sl.Amount("amount", req.Amount))
	return nil
}

// Remove удаляет счёт, откатывая его разбивку по корзинам.
func (s *InvoiceService) Remove(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(tx *sql.Tx) error {
		inv, err := s.repo.GetInvoiceForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		client, err := s.repo.GetClientForUpdate(ctx, tx, inv.ClientID)
		if err != nil {
			return err
		}
		after, _, err := ledger.Reverse(bucketsOf(client), ledger.Breakdown{
			FromGift:    inv.GiftAmount,
			FromRenewal: inv.RenewalAmount,
		})
		if err != nil {
			return err
		}
		if err := s.repo.UpdateClientBuckets(ctx, tx, client.ID, after); err != nil {
			return err
		}
		return s.repo.DeleteInvoice(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.log.Info("removed invoice", slog.Int64("id", id))
	return nil
}

// List возвращает счета, выписанные пользователем, с пагинацией.
func (s *InvoiceService) List(ctx context.Context, userUID string, limit, offset int) ([]*models.Invoice, error) {
	return s.repo.ListInvoices(ctx, userUID, limit, offset)
}

func (s *InvoiceService) notifyInvoiceCreated(ctx context.Context, phone string, clientID int64,
	amount decimal.Decimal, br ledger.Breakdown, after ledger.Buckets) {
	var b strings.Builder
	b.WriteString("عزيزي العميل، تم إصدار فاتورة جديدة بمبلغ ")
	b.WriteString(amount.StringFixed(3))
	b.WriteString(" د.ك\n")
	if br.FromGift.IsPositive() {
		b.WriteString("خصم من الرصيد الهدية: " + br.FromGift.StringFixed(3) + " د.ك\n")
	}
	if br.FromRenewal.IsPositive() {
		b.WriteString("خصم من رصيد الاشتراك: " + br.FromRenewal.StringFixed(3) + " د.ك\n")
	}
	b.WriteString("رصيد الاشتراك الحالي: " + after.Renewal.StringFixed(3) + " د.ك\n")
	b.WriteString("الرصيد الهدية المتبقي: " + after.AdditionalGift.StringFixed(3) + " د.ك")

	if sub, err := s.repo.GetActiveSubscriptionByClient(ctx, clientID); err == nil && sub != nil {
		b.WriteString("\nتاريخ انتهاء الاشتراك: " + sub.EndDate.Format("2006-01-02"))
	}

	if err := s.notifier.Send(ctx, phone, b.String()); err != nil {
		s.log.Error("failed to send invoice notification",
			slog.String("phone", phone), sl.Err(err))
	}
}
