package sl

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestErr(t *testing.T) {
	attr := Err(errors.New("boom"))
	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, "boom", attr.Value.String())
}

func TestAmount(t *testing.T) {
	attr := Amount("amount", decimal.RequireFromString("12.500"))
	assert.Equal(t, "amount", attr.Key)
	assert.Equal(t, "12.5", attr.Value.String())
}
