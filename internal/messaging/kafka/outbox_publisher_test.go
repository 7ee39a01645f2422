package kafka

import (
	"encoding/json"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
)

func TestOutboxPublisher_Publish(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var envelope outboxEnvelope
		if err := json.Unmarshal(value, &envelope); err != nil {
			return err
		}
		if envelope.EventType != "order.created" {
			t.Errorf("expected event type order.created, got %s", envelope.EventType)
		}
		if envelope.AggregateID != "order-123" {
			t.Errorf("expected aggregate id order-123, got %s", envelope.AggregateID)
		}
		return nil
	})

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-outbox-publisher-test"),
	}
	publisher := NewOutboxPublisher(producer, TopicOrderEvents)

	err := publisher.Publish(domain.OutboxMessage{
		ID:            "outbox-1",
		AggregateType: AggregateOrder,
		AggregateID:   "order-123",
		EventType:     string(EventTypeOrderCreated),
		Payload:       []byte(`{"status":"created"}`),
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxPublisher_PublishProducerError(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-outbox-publisher-test"),
	}
	publisher := NewOutboxPublisher(producer, TopicOrderEvents)

	err := publisher.Publish(domain.OutboxMessage{
		ID:            "outbox-2",
		AggregateType: AggregateOrder,
		AggregateID:   "order-234",
		EventType:     string(EventTypeOrderCreated),
		Payload:       []byte(`{"status":"created"}`),
	})
	if err == nil {
		t.Fatal("expected publish error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxPublisher_PublishNilProducer(t *testing.T) {
	t.Parallel()

	publisher := NewOutboxPublisher(nil, TopicOrderEvents)
	if err := publisher.Publish(domain.OutboxMessage{ID: "outbox-3"}); err == nil {
		t.Fatal("expected error for nil producer")
	}
}

func TestOutboxPublisher_DefaultTopics(t *testing.T) {
	t.Parallel()

	if p := NewOutboxPublisher(nil, ""); p.topic != TopicOrderEvents {
		t.Errorf("expected default topic %s, got %s", TopicOrderEvents, p.topic)
	}
	if p := NewDLQPublisher(nil, ""); p.topic != TopicDeadLetterQueue {
		t.Errorf("expected default DLQ topic %s, got %s", TopicDeadLetterQueue, p.topic)
	}
	if p := NewDLQPublisher(nil, "custom.dlq"); p.topic != "custom.dlq" {
		t.Errorf("expected custom DLQ topic, got %s", p.topic)
	}
}

func TestOutboxRouter_TopicSelection(t *testing.T) {
	t.Parallel()

	router := NewOutboxRouter(nil, "", "")

	cases := []struct {
		aggregateType string
		want          string
	}{
		{AggregateOrder, TopicOrderEvents},
		{AggregateInventory, TopicOrderEvents},
		{AggregateConfirmation, TopicConfirmationEvents},
		{"unknown", TopicOrderEvents},
	}
	for _, tc := range cases {
		if got := router.topicFor(tc.aggregateType); got != tc.want {
			t.Errorf("topicFor(%s): expected %s, got %s", tc.aggregateType, tc.want, got)
		}
	}
}

func TestOutboxRouter_Publish(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndSucceed()

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-outbox-router-test"),
	}
	router := NewOutboxRouter(producer, "", "")

	err := router.Publish(domain.OutboxMessage{
		ID:            "outbox-4",
		AggregateType: AggregateConfirmation,
		AggregateID:   "conf-1",
		EventType:     string(EventTypeConfirmationConfirmed),
		Payload:       []byte(`{"status":"confirmed"}`),
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}
