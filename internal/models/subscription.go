package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Статусы подписки. Переходы: active -> expired (ежедневная проверка),
// active <-> canceled (ручное переключение), canceled/expired -> active
// только через операцию продления.
const (
	StatusActive   = "active"
	StatusExpired  = "expired"
	StatusCanceled = "canceled"
)

// Subscription представляет абонемент клиента на период обслуживания.
type Subscription struct {
	ID             int64           `json:"id"`
	ClientID       int64           `json:"client_id"`
	PlanName       string          `json:"plan_name"`
	Price          decimal.Decimal `json:"price"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	DurationInDays int             `json:"duration_in_days"`
	Status         string          `json:"status"`
}

// SubscriptionInfo агрегирует данные подписки для списков и уведомлений.
type SubscriptionInfo struct {
	ID                 int64           `json:"id"`
	SubscriptionNumber string          `json:"subscription_number"`
	ClientPhone        string          `json:"client_phone"`
	EndDate            time.Time       `json:"end_date"`
	InvoicesCount      int             `json:"invoices_count"`
	RenewalBalance     decimal.Decimal `json:"renewal_balance"`
	AdditionalGift     decimal.Decimal `json:"additional_gift"`
}

// DummyRenewal используется для приёма запроса на продление подписки.
// Gift — необязательный бонусный кредит, начисляемый при продлении.
type DummyRenewal struct {
	RenewalCost decimal.Decimal `json:"renewal_cost" validate:"required"`
	Gift        decimal.Decimal `json:"gift"`
}

// DummyStatus используется для ручного переключения статуса подписки.
type DummyStatus struct {
	Status string `json:"status" validate:"required,oneof=active canceled"`
}

// DummyMessage используется для ручной отправки сообщения клиенту.
type DummyMessage struct {
	Message string `json:"message" validate:"required"`
}
