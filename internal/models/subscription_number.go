package models

// SubscriptionNumber — запись реестра абонентских номеров. Номер либо
// свободен (IsAvailable = true), либо закреплён ровно за одним клиентом.
type SubscriptionNumber struct {
	ID          int64   `json:"id"`
	Number      string  `json:"number"`
	IsAvailable bool    `json:"is_available"`
	ClientID    *int64  `json:"client_id,omitempty"`
	ClientPhone *string `json:"client_phone,omitempty"`
}

// DummyNumberRange используется для массового создания номеров по диапазону.
type DummyNumberRange struct {
	StartNumber int `json:"start_number" validate:"required,min=1"`
	EndNumber   int `json:"end_number" validate:"required,min=1,gtefield=StartNumber"`
}

// DummyAssignClient используется для закрепления номера за клиентом.
// Nil ClientID означает освобождение номера.
type DummyAssignClient struct {
	ClientID *int64 `json:"client_id"`
}

// DummyNumberUpdate используется для изменения номера в реестре.
type DummyNumberUpdate struct {
	Number      string `json:"number" validate:"required"`
	IsAvailable *bool  `json:"is_available" validate:"required"`
}
