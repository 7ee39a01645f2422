package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aqualaguna/direct-commerce-sub001/internal/domain"
)

const opTimeout = 5 * time.Second

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

type addressJSON struct {
	ID         string `json:"id"`
	Recipient  string `json:"recipient"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

func encodeAddress(addr domain.Address) ([]byte, error) {
	data, err := json.Marshal(addressJSON{
		ID:         addr.ID,
		Recipient:  addr.Recipient,
		Line1:      addr.Line1,
		Line2:      addr.Line2,
		City:       addr.City,
		Region:     addr.Region,
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
	})
	if err != nil {
		return nil, fmt.Errorf("encode address: %w", err)
	}
	return data, nil
}

func decodeAddress(data []byte) (domain.Address, error) {
	if len(data) == 0 {
		return domain.Address{}, nil
	}
	var raw addressJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.Address{}, fmt.Errorf("decode address: %w", err)
	}
	return domain.Address{
		ID:         raw.ID,
		Recipient:  raw.Recipient,
		Line1:      raw.Line1,
		Line2:      raw.Line2,
		City:       raw.City,
		Region:     raw.Region,
		PostalCode: raw.PostalCode,
		Country:    raw.Country,
	}, nil
}

type confirmationEventJSON struct {
	Status   string    `json:"status"`
	Action   string    `json:"action"`
	Actor    ownerJSON `json:"actor"`
	Note     string    `json:"note,omitempty"`
	Occurred time.Time `json:"occurred"`
}

type ownerJSON struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func encodeConfirmationHistory(history []domain.ConfirmationEvent) ([]byte, error) {
	raw := make([]confirmationEventJSON, 0, len(history))
	for _, event := range history {
		raw = append(raw, confirmationEventJSON{
			Status:   string(event.Status),
			Action:   event.Action,
			Actor:    ownerJSON{Type: string(event.Actor.Type), ID: event.Actor.ID},
			Note:     event.Note,
			Occurred: event.Occurred,
		})
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode confirmation history: %w", err)
	}
	return data, nil
}

func decodeConfirmationHistory(data []byte) ([]domain.ConfirmationEvent, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var raw []confirmationEventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode confirmation history: %w", err)
	}
	history := make([]domain.ConfirmationEvent, 0, len(raw))
	for _, event := range raw {
		history = append(history, domain.ConfirmationEvent{
			Status:   domain.ConfirmationStatus(event.Status),
			Action:   event.Action,
			Actor:    domain.Owner{Type: domain.OwnerType(event.Actor.Type), ID: event.Actor.ID},
			Note:     event.Note,
			Occurred: event.Occurred,
		})
	}
	return history, nil
}

func encodeStringSlice(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encode string slice: %w", err)
	}
	return data, nil
}

func decodeStringSlice(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode string slice: %w", err)
	}
	return values, nil
}
