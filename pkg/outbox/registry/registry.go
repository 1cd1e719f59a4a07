// Package registry decodes outbox rows into typed payloads and picks the
// Pub/Sub topic each event type goes to.
package registry

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/partsdesk/pricing-backend/pkg/config"
	"github.com/partsdesk/pricing-backend/pkg/db/models"
	"github.com/partsdesk/pricing-backend/pkg/enums"
	"github.com/partsdesk/pricing-backend/pkg/outbox"
	"github.com/partsdesk/pricing-backend/pkg/outbox/payloads"
)

// EventDescriptor binds an event type to its aggregate, topic and payload.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is a decoded outbox row ready for publishing.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

func descriptors(cfg config.PubSubConfig) []EventDescriptor {
	return []EventDescriptor{
		{
			EventType:      enums.EventOverrideRuleChanged,
			AggregateType:  enums.AggregateOverrideRule,
			Topic:          cfg.OverrideSyncTopic,
			PayloadFactory: func() any { return new(payloads.OverrideRuleChangedEvent) },
		},
		{
			EventType:      enums.EventOverrideRuleSynced,
			AggregateType:  enums.AggregateOverrideRule,
			Topic:          cfg.OverrideSyncTopic,
			PayloadFactory: func() any { return new(payloads.OverrideRuleSyncedEvent) },
		},
	}
}

// NewEventRegistry fails when an event type would have nowhere to go.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	reg := &EventRegistry{entries: map[enums.OutboxEventType]EventDescriptor{}}
	var errs []error
	for _, desc := range descriptors(cfg) {
		if desc.Topic == "" {
			errs = append(errs, fmt.Errorf("no topic configured for %s", desc.EventType))
			continue
		}
		reg.entries[desc.EventType] = desc
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return reg, nil
}

// Topics returns the distinct topics in sorted order.
func (r *EventRegistry) Topics() []string {
	topics := make([]string, 0, len(r.entries))
	for _, desc := range r.entries {
		topics = append(topics, desc.Topic)
	}
	slices.Sort(topics)
	return slices.Compact(topics)
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every failure is non-retryable because the stored row cannot change.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %q", event.EventType))
	case desc.AggregateType != event.AggregateType:
		return nil, NewNonRetryableError(fmt.Errorf("%s belongs to %s, row says %q", event.EventType, desc.AggregateType, event.AggregateType))
	case event.AggregateID == uuid.Nil:
		return nil, NewNonRetryableError(fmt.Errorf("%s row has no aggregate id", event.EventType))
	}

	env, err := outbox.ParseEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	payload := desc.PayloadFactory()
	if err := env.DecodeData(payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s: %w", event.EventType, err))
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: env, Payload: payload}, nil
}
