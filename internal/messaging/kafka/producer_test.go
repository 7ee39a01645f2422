package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
)

func TestProducer_PublishEvent(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageAndSucceed()

	event := NewOrderEvent(
		EventTypeOrderCreated,
		"order-123",
		"ORD-20260830-0001",
		"user",
		"user-1",
		"created",
		map[string]interface{}{
			"total_minor": 150000,
		},
	)

	err := producer.PublishEvent(TopicOrderEvents, "order-123", event)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_Error(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	event := NewConfirmationEvent(
		EventTypeConfirmationFailed,
		"conf-1",
		"pay-1",
		"order-1",
		"failed",
		"",
	)

	err := producer.PublishEvent(TopicConfirmationEvents, "conf-1", event)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEventWithHeaders(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var decoded InventoryEvent
		return json.Unmarshal(value, &decoded)
	})

	event := NewInventoryEvent(EventTypeStockReserved, "prod-1", "order-1", 2, 2, 8)
	err := producer.PublishEventWithHeaders(TopicOrderEvents, "prod-1", event, map[string]string{
		"event-type": string(EventTypeStockReserved),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewOrderEvent(t *testing.T) {
	event := NewOrderEvent(
		EventTypeOrderCreated,
		"order-123",
		"ORD-20260830-0001",
		"guest",
		"guest-1",
		"created",
		map[string]interface{}{"currency": "RUB"},
	)

	if event.EventType != EventTypeOrderCreated {
		t.Errorf("expected event type %s, got %s", EventTypeOrderCreated, event.EventType)
	}
	if event.OrderID != "order-123" {
		t.Errorf("expected order id order-123, got %s", event.OrderID)
	}
	if event.OrderNumber != "ORD-20260830-0001" {
		t.Errorf("expected order number, got %s", event.OrderNumber)
	}
	if event.OwnerType != "guest" || event.OwnerID != "guest-1" {
		t.Errorf("owner not set correctly: %s/%s", event.OwnerType, event.OwnerID)
	}
	if event.Metadata["currency"] != "RUB" {
		t.Error("metadata not set correctly")
	}
	if event.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}
	if time.Since(event.Timestamp) > time.Second {
		t.Error("timestamp should be close to current time")
	}
}

func TestNewConfirmationEvent(t *testing.T) {
	event := NewConfirmationEvent(
		EventTypeConfirmationConfirmed,
		"conf-1",
		"pay-1",
		"order-1",
		"confirmed",
		"receipt checked",
	)

	if event.EventType != EventTypeConfirmationConfirmed {
		t.Errorf("expected event type %s, got %s", EventTypeConfirmationConfirmed, event.EventType)
	}
	if event.ConfirmationID != "conf-1" || event.PaymentID != "pay-1" || event.OrderID != "order-1" {
		t.Errorf("ids not set correctly: %s/%s/%s", event.ConfirmationID, event.PaymentID, event.OrderID)
	}
	if event.Note != "receipt checked" {
		t.Errorf("expected note, got %q", event.Note)
	}
	if event.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}
}

func TestNewInventoryEvent(t *testing.T) {
	event := NewInventoryEvent(EventTypeLowStock, "prod-1", "", 1, 4, 2)

	if event.EventType != EventTypeLowStock {
		t.Errorf("expected event type %s, got %s", EventTypeLowStock, event.EventType)
	}
	if event.ProductID != "prod-1" {
		t.Errorf("expected product id prod-1, got %s", event.ProductID)
	}
	if event.Reserved != 4 || event.Available != 2 {
		t.Errorf("counters not set correctly: reserved=%d available=%d", event.Reserved, event.Available)
	}
	if event.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}
}
