package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/gatic-backend/pkg/config"
	"github.com/angelmondragon/gatic-backend/pkg/db/models"
	"github.com/angelmondragon/gatic-backend/pkg/enums"
	"github.com/angelmondragon/gatic-backend/pkg/outbox"
	"github.com/angelmondragon/gatic-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
)

func TestEventRegistryResolveSuccess(t *testing.T) {
	reg := newTestEventRegistry(t)

	serial := "SN1"
	payloadBytes := mustMarshal(t, payloads.InventoryRetiredEvent{
		Item: payloads.ItemRef{
			ItemID:       7,
			Name:         "Laptop",
			Model:        "X1",
			SerialNumber: &serial,
			Quantity:     1,
		},
		From:      enums.ItemStatusLoaned,
		Reason:    enums.RetireReasonDamaged,
		RetiredAt: time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC),
		RowID:     7,
	})

	event := models.OutboxEvent{
		EventType:     enums.EventInventoryRetired,
		AggregateType: enums.AggregateInventoryRow,
		AggregateID:   7,
		Payload:       mustEnvelope(t, payloadBytes),
	}

	resolved, err := reg.Resolve(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "inventory-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	if resolved.Descriptor.EventType != enums.EventInventoryRetired {
		t.Fatalf("unexpected event type %s", resolved.Descriptor.EventType)
	}
	payload, ok := resolved.Payload.(*payloads.InventoryRetiredEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.Item.SerialNumber == nil || *payload.Item.SerialNumber != serial || payload.Reason != enums.RetireReasonDamaged {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if resolved.Envelope.EventID == "" {
		t.Fatalf("envelope missing event id")
	}
	if resolved.Envelope.OccurredAt.IsZero() {
		t.Fatalf("envelope missing occurred_at")
	}
}

func TestEventRegistryTopics(t *testing.T) {
	reg := newTestEventRegistry(t)

	cases := map[enums.OutboxEventType]string{
		enums.EventInventoryIntake:      "inventory-topic",
		enums.EventLoanOverdue:          "loans-topic",
		enums.EventAssignmentRetired:    "loans-topic",
		enums.EventTaskResolved:         "tasks-topic",
		enums.EventInventoryMaintenance: "inventory-topic",
	}
	for eventType, topic := range cases {
		desc, ok := reg.Descriptor(eventType)
		if !ok {
			t.Fatalf("%s not registered", eventType)
		}
		if desc.Topic != topic {
			t.Fatalf("%s routed to %q, want %q", eventType, desc.Topic, topic)
		}
	}
}

func TestEventRegistryRegistersEveryEventType(t *testing.T) {
	reg := newTestEventRegistry(t)
	for _, eventType := range enums.OutboxEventTypes() {
		if _, ok := reg.Descriptor(eventType); !ok {
			t.Fatalf("%s has no descriptor", eventType)
		}
	}
}

func TestNewEventRegistryTasksTopicFallsBack(t *testing.T) {
	reg, err := NewEventRegistry(config.PubSubConfig{InventoryTopic: "inv", LoansTopic: "loans"})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	desc, _ := reg.Descriptor(enums.EventTaskCreated)
	if desc.Topic != "inv" {
		t.Fatalf("expected tasks to fall back to inventory topic, got %q", desc.Topic)
	}
}

func TestNewEventRegistryRequiresTopics(t *testing.T) {
	if _, err := NewEventRegistry(config.PubSubConfig{LoansTopic: "loans"}); err == nil {
		t.Fatalf("expected error without inventory topic")
	}
	if _, err := NewEventRegistry(config.PubSubConfig{InventoryTopic: "inv"}); err == nil {
		t.Fatalf("expected error without loans topic")
	}
}

func TestEventRegistryResolveUnknownEvent(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.OutboxEventType("inventory_teleported"),
		AggregateType: enums.AggregateInventoryRow,
		AggregateID:   1,
		Payload:       mustEnvelope(t, []byte(`{"reason":"none"}`)),
	}

	_, err := reg.Resolve(event)
	if err == nil {
		t.Fatalf("expected error")
	}
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %T", err)
	}
}

func TestEventRegistryResolveAggregateMismatch(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventLoanCreated,
		AggregateType: enums.AggregateInventoryRow,
		AggregateID:   3,
		Payload:       mustEnvelope(t, []byte(`{"loan_id":3}`)),
	}

	_, err := reg.Resolve(event)
	if err == nil {
		t.Fatalf("expected error")
	}
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error")
	}
}

func TestEventRegistryResolveMissingAggregateID(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventLoanCreated,
		AggregateType: enums.AggregateLoan,
		AggregateID:   0,
		Payload:       mustEnvelope(t, []byte(`{}`)),
	}

	_, err := reg.Resolve(event)
	if err == nil {
		t.Fatalf("expected error")
	}
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error")
	}
}

func TestEventRegistryResolveNullPayload(t *testing.T) {
	reg := newTestEventRegistry(t)

	event := models.OutboxEvent{
		EventType:     enums.EventLoanCreated,
		AggregateType: enums.AggregateLoan,
		AggregateID:   4,
		Payload:       mustEnvelope(t, []byte("null")),
	}

	_, err := reg.Resolve(event)
	if err == nil {
		t.Fatalf("expected error")
	}
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error")
	}
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	cfg := config.PubSubConfig{
		InventoryTopic: "inventory-topic",
		LoansTopic:     "loans-topic",
		TasksTopic:     "tasks-topic",
	}
	reg, err := NewEventRegistry(cfg)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func mustEnvelope(t *testing.T, payload []byte) json.RawMessage {
	t.Helper()
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return data
}
