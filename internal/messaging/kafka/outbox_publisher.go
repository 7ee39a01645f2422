package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
)

// outboxEnvelope — то, что реально уходит в брокер: метаданные outbox-записи
// плюс исходный payload как есть.
type outboxEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// publishOutbox сериализует outbox-сообщение в конверт и отправляет его
// в указанный topic. Ключ партиционирования — id агрегата, чтобы события
// одного агрегата сохраняли порядок.
func publishOutbox(producer *Producer, topic string, event domain.OutboxMessage) error {
	if producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	envelope := outboxEnvelope{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       json.RawMessage(event.Payload),
		PublishedAt:   time.Now().UTC(),
	}

	return producer.PublishEventWithHeaders(topic, key, envelope, map[string]string{
		"event-type": event.EventType,
	})
}

// OutboxTopicPublisher публикует outbox-сообщения в один фиксированный topic.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher создаёт паблишер с фиксированным topic.
// Пустой topic означает основной поток событий заказов.
func NewOutboxPublisher(producer *Producer, topic string) *OutboxTopicPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OutboxTopicPublisher{
		producer: producer,
		topic:    topic,
	}
}

// NewDLQPublisher создаёт паблишер для исчерпавших попытки сообщений.
// Пустой topic означает TopicDeadLetterQueue — DLQ никогда не совпадает
// с основным topic по умолчанию.
func NewDLQPublisher(producer *Producer, topic string) *OutboxTopicPublisher {
	if topic == "" {
		topic = TopicDeadLetterQueue
	}
	return &OutboxTopicPublisher{
		producer: producer,
		topic:    topic,
	}
}

func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}
	return publishOutbox(p.producer, p.topic, event)
}

// OutboxRouter выбирает topic по типу агрегата: события платёжных
// подтверждений уходят в confirmation-topic, заказы и склад — в order-topic.
type OutboxRouter struct {
	producer          *Producer
	orderTopic        string
	confirmationTopic string
}

// NewOutboxRouter создаёт роутер outbox-событий. Пустые topics заменяются
// значениями по умолчанию.
func NewOutboxRouter(producer *Producer, orderTopic, confirmationTopic string) *OutboxRouter {
	if orderTopic == "" {
		orderTopic = TopicOrderEvents
	}
	if confirmationTopic == "" {
		confirmationTopic = TopicConfirmationEvents
	}
	return &OutboxRouter{
		producer:          producer,
		orderTopic:        orderTopic,
		confirmationTopic: confirmationTopic,
	}
}

// topicFor возвращает topic для типа агрегата.
func (r *OutboxRouter) topicFor(aggregateType string) string {
	if aggregateType == AggregateConfirmation {
		return r.confirmationTopic
	}
	return r.orderTopic
}

func (r *OutboxRouter) Publish(event domain.OutboxMessage) error {
	if r == nil {
		return fmt.Errorf("kafka outbox router is not initialized")
	}
	return publishOutbox(r.producer, r.topicFor(event.AggregateType), event)
}

var (
	_ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
	_ domain.OutboxPublisher = (*OutboxRouter)(nil)
)
