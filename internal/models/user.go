package models

// User — сотрудник или клиентский аккаунт портала. Счета привязываются
// к выписавшему их пользователю через UID.
type User struct {
	UID          string `json:"uid"`
	Username     string `json:"username"`
	Phone        string `json:"phone"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
}

// DummyRegister используется для приёма данных регистрации.
type DummyRegister struct {
	Username string `json:"username" validate:"required,alphanum"`
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

// DummyLogin используется для приёма данных входа.
type DummyLogin struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
