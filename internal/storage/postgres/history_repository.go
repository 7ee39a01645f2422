package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
)

type historyRepository struct {
	q querier
}

func (r *historyRepository) Append(ctx context.Context, event domain.OrderHistoryEvent) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO order_history (
			id, order_id, event_type, source,
			previous_value, new_value,
			actor_type, actor_id, note, occurred_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		event.ID, event.OrderID, string(event.EventType), string(event.Source),
		event.PreviousValue, event.NewValue,
		string(event.Actor.Type), event.Actor.ID, event.Note, event.Occurred,
	)
	if err != nil {
		return fmt.Errorf("insert order history event: %w", err)
	}

	return nil
}

func (r *historyRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.OrderHistoryEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.q.QueryContext(ctx, `
		SELECT id, order_id, event_type, source,
		       previous_value, new_value,
		       actor_type, actor_id, note, occurred_at
		FROM order_history
		WHERE order_id = $1
		ORDER BY occurred_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order history: %w", err)
	}
	defer rows.Close()

	events := make([]domain.OrderHistoryEvent, 0)
	for rows.Next() {
		var (
			event     domain.OrderHistoryEvent
			eventType string
			source    string
			actorType string
		)
		if err := rows.Scan(
			&event.ID, &event.OrderID, &eventType, &source,
			&event.PreviousValue, &event.NewValue,
			&actorType, &event.Actor.ID, &event.Note, &event.Occurred,
		); err != nil {
			return nil, fmt.Errorf("scan order history event: %w", err)
		}
		event.EventType = domain.HistoryEventType(eventType)
		event.Source = domain.ChangeSource(source)
		event.Actor.Type = domain.OwnerType(actorType)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order history rows: %w", err)
	}

	return events, nil
}

var _ domain.OrderHistoryRepository = (*historyRepository)(nil)
