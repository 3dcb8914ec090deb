// Package notifier отправляет клиентам WhatsApp-сообщения через UltraMsg.
package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Notifier доставляет текстовое сообщение на телефон клиента.
type Notifier interface {
	Send(ctx context.Context, phone, text string) error
}

// ErrNotSent возвращается, когда UltraMsg принял запрос, но не подтвердил отправку.
var ErrNotSent = errors.New("message was not sent")

type UltraMsgClient struct {
	baseURL    string
	instance   string
	token      string
	httpClient *http.Client
}

// NewUltraMsgClient создаёт новый клиент UltraMsg.
func NewUltraMsgClient(baseURL, instance, token string) *UltraMsgClient {
	return &UltraMsgClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		instance:   instance,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send отправляет сообщение в чат по номеру телефона.
func (c *UltraMsgClient) Send(ctx context.Context, phone, text string) error {
	const op = "notifier.Send"

	form := url.Values{}
	form.Set("token", c.token)
	form.Set("to", phone)
	form.Set("body", text)

	endpoint := fmt.Sprintf("%s/%s/messages/chat", c.baseURL, c.instance)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status: %s", op, resp.Status)
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if sent, ok := result["sent"].(string); !ok || sent != "true" {
		return fmt.Errorf("%s: %w", op, ErrNotSent)
	}
	return nil
}
