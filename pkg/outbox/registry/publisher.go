package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/gatic-backend/pkg/config"
	"github.com/angelmondragon/gatic-backend/pkg/db/models"
	"github.com/angelmondragon/gatic-backend/pkg/enums"
	"github.com/angelmondragon/gatic-backend/pkg/outbox"
	"github.com/angelmondragon/gatic-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry builds the registry with the configured topic names.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.InventoryTopic == "" {
		return nil, fmt.Errorf("inventory topic is required")
	}
	if cfg.LoansTopic == "" {
		return nil, fmt.Errorf("loans topic is required")
	}
	tasksTopic := cfg.TasksTopic
	if tasksTopic == "" {
		tasksTopic = cfg.InventoryTopic
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	inventoryTopic := cfg.InventoryTopic
	loansTopic := cfg.LoansTopic

	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventInventoryIntake,
			AggregateType:  enums.AggregateInventoryRow,
			Topic:          inventoryTopic,
			PayloadFactory: func() interface{} { return &payloads.InventoryIntakeEvent{} },
		},
		{
			EventType:      enums.EventInventoryRetired,
			AggregateType:  enums.AggregateInventoryRow,
			Topic:          inventoryTopic,
			PayloadFactory: func() interface{} { return &payloads.InventoryRetiredEvent{} },
		},
		{
			EventType:      enums.EventInventoryMaintenance,
			AggregateType:  enums.AggregateInventoryRow,
			Topic:          inventoryTopic,
			PayloadFactory: func() interface{} { return &payloads.InventoryMaintenanceEvent{} },
		},
		{
			EventType:      enums.EventInventoryMaintenanceEnd,
			AggregateType:  enums.AggregateInventoryRow,
			Topic:          inventoryTopic,
			PayloadFactory: func() interface{} { return &payloads.InventoryMaintenanceEvent{} },
		},
	} {
		reg.register(desc)
	}
	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventLoanCreated,
			AggregateType:  enums.AggregateLoan,
			Topic:          loansTopic,
			PayloadFactory: func() interface{} { return &payloads.LoanEvent{} },
		},
		{
			EventType:      enums.EventLoanReturned,
			AggregateType:  enums.AggregateLoan,
			Topic:          loansTopic,
			PayloadFactory: func() interface{} { return &payloads.LoanEvent{} },
		},
		{
			EventType:      enums.EventLoanOverdue,
			AggregateType:  enums.AggregateLoan,
			Topic:          loansTopic,
			PayloadFactory: func() interface{} { return &payloads.LoanOverdueEvent{} },
		},
		{
			EventType:      enums.EventAssignmentCreated,
			AggregateType:  enums.AggregateAssignment,
			Topic:          loansTopic,
			PayloadFactory: func() interface{} { return &payloads.AssignmentEvent{} },
		},
		{
			EventType:      enums.EventAssignmentReturned,
			AggregateType:  enums.AggregateAssignment,
			Topic:          loansTopic,
			PayloadFactory: func() interface{} { return &payloads.AssignmentEvent{} },
		},
		{
			EventType:      enums.EventAssignmentRetired,
			AggregateType:  enums.AggregateAssignment,
			Topic:          loansTopic,
			PayloadFactory: func() interface{} { return &payloads.AssignmentEvent{} },
		},
	} {
		reg.register(desc)
	}
	reg.register(EventDescriptor{
		EventType:      enums.EventTaskCreated,
		AggregateType:  enums.AggregatePendingTask,
		Topic:          tasksTopic,
		PayloadFactory: func() interface{} { return &payloads.TaskCreatedEvent{} },
	})
	reg.register(EventDescriptor{
		EventType:      enums.EventTaskResolved,
		AggregateType:  enums.AggregatePendingTask,
		Topic:          tasksTopic,
		PayloadFactory: func() interface{} { return &payloads.TaskResolvedEvent{} },
	})

	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Descriptor returns the registered descriptor for eventType.
func (r *EventRegistry) Descriptor(eventType enums.OutboxEventType) (EventDescriptor, bool) {
	desc, ok := r.entries[eventType]
	return desc, ok
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID <= 0 {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if payload == nil {
		return nil, NewNonRetryableError(fmt.Errorf("payload factory not configured for %s", event.EventType))
	}
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}
