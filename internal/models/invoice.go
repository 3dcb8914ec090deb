package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice представляет выставленный клиенту счёт. GiftAmount и RenewalAmount
// хранят разбивку списания по корзинам на момент создания: без неё невозможно
// точно откатить счёт при изменении или удалении.
type Invoice struct {
	ID            int64           `json:"id"`
	UserUID       string          `json:"user_uid"`
	ClientID      int64           `json:"client_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Date          time.Time       `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	GiftAmount    decimal.Decimal `json:"gift_amount"`
	RenewalAmount decimal.Decimal `json:"renewal_amount"`
}

// DummyInvoice используется для приёма данных счёта из JSON-запроса.
type DummyInvoice struct {
	ClientID int64           `json:"client_id" validate:"required"`
	Date     string          `json:"date" validate:"required"`
	Amount   decimal.Decimal `json:"amount" validate:"required"`
}
