package models

import "github.com/shopspring/decimal"

// Statistics — сводные показатели для панели управления.
type Statistics struct {
	TotalClients          int             `json:"total_clients"`
	ActiveSubscriptions   int             `json:"active_subscriptions"`
	ExpiredSubscriptions  int             `json:"expired_subscriptions"`
	CanceledSubscriptions int             `json:"canceled_subscriptions"`
	TotalInvoices         int             `json:"total_invoices"`
	TotalRevenue          decimal.Decimal `json:"total_revenue"`
}
