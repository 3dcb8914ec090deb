package notifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUltraMsgClient_Send(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		response   string
		wantErr    bool
		wantNotSent bool
	}{
		{
			name:       "успешная отправка",
			statusCode: http.StatusOK,
			response:   `{"sent":"true","message":"ok","id":123}`,
			wantErr:    false,
		},
		{
			name:        "провайдер не подтвердил отправку",
			statusCode:  http.StatusOK,
			response:    `{"sent":"false","message":"invalid number"}`,
			wantErr:     true,
			wantNotSent: true,
		},
		{
			name:       "ошибка HTTP",
			statusCode: http.StatusUnauthorized,
			response:   `{"error":"invalid token"}`,
			wantErr:    true,
		},
		{
			name:       "некорректный JSON в ответе",
			statusCode: http.StatusOK,
			response:   `not-json`,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotTo, gotBody, gotToken string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, r.ParseForm())
				gotPath = r.URL.Path
				gotTo = r.PostForm.Get("to")
				gotBody = r.PostForm.Get("body")
				gotToken = r.PostForm.Get("token")
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.response))
			}))
			defer server.Close()

			client := NewUltraMsgClient(server.URL, "instance60138", "secret")
			err := client.Send(context.Background(), "+96550001122", "مرحبا")

			if tt.wantErr {
				require.Error(t, err)
				if tt.wantNotSent {
					assert.ErrorIs(t, err, ErrNotSent)
				}
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, "/instance60138/messages/chat", gotPath)
			assert.Equal(t, "+96550001122", gotTo)
			assert.Equal(t, "مرحبا", gotBody)
			assert.Equal(t, "secret", gotToken)
		})
	}
}
