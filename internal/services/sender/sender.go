// Package services доставляет клиентам WhatsApp-напоминания из очереди брокера.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/raminazmi/RoseDye-backend/internal/lib/sl"
	"github.com/raminazmi/RoseDye-backend/internal/models"
	"github.com/raminazmi/RoseDye-backend/internal/notifier"
)

// SenderService превращает сообщения очереди в WhatsApp-напоминания.
type SenderService struct {
	notifier notifier.Notifier
	log      *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(n notifier.Notifier, log *slog.Logger) *SenderService {
	return &SenderService{
		notifier: n,
		log:      log,
	}
}

// SendExpiringReminder обрабатывает одно сообщение очереди: разбирает сводку
// подписки и отправляет клиенту напоминание об окончании срока.
func (s *SenderService) SendExpiringReminder(body []byte) error {
	var info models.SubscriptionInfo
	if err := json.Unmarshal(body, &info); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	var b strings.Builder
	b.WriteString("عزيزي العميل، اشتراكك رقم ")
	b.WriteString(info.SubscriptionNumber)
	b.WriteString(" ينتهي بتاريخ ")
	b.WriteString(info.EndDate.Format("2006-01-02"))
	b.WriteString("\nرصيد الاشتراك الحالي: ")
	b.WriteString(info.RenewalBalance.StringFixed(3))
	b.WriteString(" د.ك\nيرجى التجديد قبل انتهاء المدة.")

	if err := s.notifier.Send(context.Background(), info.ClientPhone, b.String()); err != nil {
		s.log.Error("failed to send expiring reminder",
			slog.String("phone", info.ClientPhone), sl.Err(err))
		return err
	}

	s.log.Info("sent expiring reminder", slog.String("phone", info.ClientPhone))
	return nil
}
