package response

import (
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOKWithData(t *testing.T) {
	resp := OKWithData(map[string]any{"id": 1})
	assert.Equal(t, StatusOK, resp.Status)
	assert.Empty(t, resp.Error)
	assert.NotNil(t, resp.Data)
}

func TestError(t *testing.T) {
	resp := Error("boom")
	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, "boom", resp.Error)
}

func TestValidationError(t *testing.T) {
	type payload struct {
		Phone       string `validate:"required"`
		StartNumber int    `validate:"required,min=1"`
		Status      string `validate:"oneof=active canceled"`
	}

	err := validator.New().Struct(payload{Status: "paused"})
	require.Error(t, err)

	resp := ValidationError(err.(validator.ValidationErrors))
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, "field Phone is a required field")
	assert.Contains(t, resp.Error, "field StartNumber is a required field")
	assert.Contains(t, resp.Error, "field Status must be one of: active canceled")
}
