package outbox

import (
	"encoding/json"

	"github.com/rentfolio/rentfolio-backend/pkg/db/models"
)

func newEventRow(event DomainEvent, payloadJSON []byte) models.OutboxEvent {
	return models.OutboxEvent{
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       json.RawMessage(payloadJSON),
	}
}
