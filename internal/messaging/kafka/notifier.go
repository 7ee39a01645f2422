package kafka

import (
	"fmt"
	"time"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
)

// TopicNotifier отправляет уведомления правил автоподтверждения в Kafka topic.
type TopicNotifier struct {
	producer *Producer
	topic    string
}

// NewTopicNotifier создаёт notifier поверх Kafka producer.
func NewTopicNotifier(producer *Producer, topic string) *TopicNotifier {
	if topic == "" {
		topic = TopicNotifications
	}
	return &TopicNotifier{
		producer: producer,
		topic:    topic,
	}
}

// Send публикует уведомление; ключ партиционирования — order_id.
func (n *TopicNotifier) Send(orderID string, owner domain.Owner, subject, body string) error {
	if n == nil || n.producer == nil {
		return fmt.Errorf("kafka notifier is not initialized")
	}

	message := struct {
		OrderID   string    `json:"order_id"`
		OwnerType string    `json:"owner_type"`
		OwnerID   string    `json:"owner_id"`
		Subject   string    `json:"subject"`
		Body      string    `json:"body"`
		SentAt    time.Time `json:"sent_at"`
	}{
		OrderID:   orderID,
		OwnerType: string(owner.Type),
		OwnerID:   owner.ID,
		Subject:   subject,
		Body:      body,
		SentAt:    time.Now().UTC(),
	}

	return n.producer.PublishEvent(n.topic, orderID, message)
}

var _ domain.NotificationSender = (*TopicNotifier)(nil)
