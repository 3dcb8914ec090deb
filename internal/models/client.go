// Package models содержит доменные структуры прачечной: клиенты, подписки,
// счета и реестр абонентских номеров, а также вспомогательные Dummy-типы
// для приёма данных из JSON-запросов до их валидации и преобразования.
package models

import (
	"github.com/shopspring/decimal"
)

// Client представляет клиента прачечной с тремя денежными корзинами.
// CurrentBalance — накопленная сумма выставленных счетов (отчётный итог),
// RenewalBalance — баланс абонемента (отрицательный = долг),
// AdditionalGift — доступный подарочный кредит, никогда не превышает OriginalGift.
type Client struct {
	ID                   int64           `json:"id"`
	Phone                string          `json:"phone"`
	CurrentBalance       decimal.Decimal `json:"current_balance"`
	RenewalBalance       decimal.Decimal `json:"renewal_balance"`
	OriginalGift         decimal.Decimal `json:"original_gift"`
	AdditionalGift       decimal.Decimal `json:"additional_gift"`
	SubscriptionNumber   *string         `json:"subscription_number,omitempty"`
	SubscriptionNumberID *int64          `json:"subscription_number_id,omitempty"`
}

// DummyClient используется для приёма данных клиента из JSON-запроса.
// Даты приходят строками в формате 2006-01-02 и парсятся в сервисе.
type DummyClient struct {
	Phone              string          `json:"phone" validate:"required"`
	CurrentBalance     decimal.Decimal `json:"current_balance"`
	RenewalBalance     decimal.Decimal `json:"renewal_balance"`
	OriginalGift       decimal.Decimal `json:"original_gift"`
	AdditionalGift     decimal.Decimal `json:"additional_gift"`
	StartDate          string          `json:"start_date" validate:"required"`
	EndDate            string          `json:"end_date" validate:"required"`
	SubscriptionNumber string          `json:"subscription_number" validate:"required"`
}
