package rabbitmq

const (
	// NotificationsExchange — общий exchange всех уведомлений.
	NotificationsExchange = "notifications"
	// ExpiringQueue — очередь предупреждений об истекающих подписках.
	ExpiringQueue = "notifications.expiring"
	// ExpiringRoutingKey — ключ маршрутизации для предупреждений.
	ExpiringRoutingKey = "expiring"
)

type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: ExpiringQueue, RoutingKey: ExpiringRoutingKey},
	}
}
