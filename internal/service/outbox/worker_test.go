package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
	"github.com/aqualaguna/direct-commerce-sub001/internal/storage/memory"
)

// stubPublisher отказывает первым failBefore вызовам, затем публикует успешно.
type stubPublisher struct {
	mu         sync.Mutex
	failBefore int
	calls      int
	published  []domain.OutboxMessage
}

func (p *stubPublisher) Publish(event domain.OutboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failBefore {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, event)
	return nil
}

func enqueue(t *testing.T, store *memory.Store, eventType string) domain.OutboxMessage {
	t.Helper()

	msg, err := store.Outbox().Enqueue(context.Background(), domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "ord-1",
		EventType:     eventType,
		Payload:       []byte(`{"order_id":"ord-1"}`),
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return msg
}

func TestWorkerPublishesPending(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	first := enqueue(t, store, "order.created")
	second := enqueue(t, store, "payment.confirmation.confirmed")

	publisher := &stubPublisher{}
	worker := NewWorker(store.Outbox(), publisher, WithRetryBaseDelay(0))

	worker.ProcessOnce(ctx)

	if len(publisher.published) != 2 {
		t.Fatalf("published = %d, want 2", len(publisher.published))
	}
	ids := map[string]bool{publisher.published[0].ID: true, publisher.published[1].ID: true}
	if !ids[first.ID] || !ids[second.ID] {
		t.Fatalf("published wrong messages: %+v", publisher.published)
	}

	pending, err := store.Outbox().PullPending(ctx, 10)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending after sweep = %d, want 0", len(pending))
	}
}

func TestWorkerRetriesTransientFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	enqueue(t, store, "order.created")

	// Первые две попытки падают, третья проходит.
	publisher := &stubPublisher{failBefore: 2}
	worker := NewWorker(store.Outbox(), publisher,
		WithMaxAttempts(3),
		WithRetryBaseDelay(time.Millisecond),
	)

	worker.ProcessOnce(ctx)

	if publisher.calls != 3 {
		t.Fatalf("publish calls = %d, want 3", publisher.calls)
	}
	if len(publisher.published) != 1 {
		t.Fatalf("published = %d, want 1", len(publisher.published))
	}
	pending, _ := store.Outbox().PullPending(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("pending = %d, want 0", len(pending))
	}
}

func TestWorkerSendsToDLQAfterExhaustion(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	msg := enqueue(t, store, "order.created")

	publisher := &stubPublisher{failBefore: 100}
	dlq := &stubPublisher{}
	worker := NewWorker(store.Outbox(), publisher,
		WithMaxAttempts(2),
		WithRetryBaseDelay(0),
		WithDLQPublisher(dlq),
	)

	worker.ProcessOnce(ctx)

	if publisher.calls != 2 {
		t.Fatalf("publish calls = %d, want 2", publisher.calls)
	}
	if len(dlq.published) != 1 {
		t.Fatalf("dlq published = %d, want 1", len(dlq.published))
	}

	dlqEvent := dlq.published[0]
	if dlqEvent.EventType != "order.created.dlq" {
		t.Fatalf("dlq event type = %s, want order.created.dlq", dlqEvent.EventType)
	}
	var envelope map[string]any
	if err := json.Unmarshal(dlqEvent.Payload, &envelope); err != nil {
		t.Fatalf("unmarshal dlq payload: %v", err)
	}
	if envelope["outbox_id"] != msg.ID {
		t.Fatalf("dlq outbox_id = %v, want %s", envelope["outbox_id"], msg.ID)
	}
	if envelope["publish_error"] == "" {
		t.Fatal("dlq envelope must carry the publish error")
	}

	// Сообщение помечено failed и не возвращается в pending.
	pending, _ := store.Outbox().PullPending(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("pending = %d, want 0", len(pending))
	}
}

func TestWorkerEmptyOutboxIsNoop(t *testing.T) {
	store := memory.NewStore()
	publisher := &stubPublisher{}
	worker := NewWorker(store.Outbox(), publisher)

	worker.ProcessOnce(context.Background())

	if publisher.calls != 0 {
		t.Fatalf("publish calls = %d, want 0", publisher.calls)
	}
}
