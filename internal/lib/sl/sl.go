// Package sl содержит вспомогательные функции для структурированного
// логирования через slog: единообразные атрибуты для ошибок и денежных сумм.
package sl

import (
	"log/slog"

	"github.com/shopspring/decimal"
)

// Err возвращает slog.Attr с ключом "error" и текстом ошибки.
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Amount возвращает slog.Attr с денежной суммой в строковом представлении.
func Amount(key string, v decimal.Decimal) slog.Attr {
	return slog.Attr{
		Key:   key,
		Value: slog.StringValue(v.String()),
	}
}
