// Package registry decides where each outbox event type is published and
// how its payload decodes.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/hrthis/hrthis-backend/pkg/config"
	"github.com/hrthis/hrthis-backend/pkg/db/models"
	"github.com/hrthis/hrthis-backend/pkg/enums"
	"github.com/hrthis/hrthis-backend/pkg/outbox"
	"github.com/hrthis/hrthis-backend/pkg/outbox/payloads"
)

// EventDescriptor routes one event type.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string

	decode func(json.RawMessage) (any, error)
}

// ResolvedEvent is a validated outbox row with its typed payload.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks failures that will not go away on retry, such as
// a malformed row. The publisher dead-letters these immediately.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError { return NonRetryableError{Err: err} }

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func permanent(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

func route[T any](event enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string) EventDescriptor {
	return EventDescriptor{
		EventType:     event,
		AggregateType: aggregate,
		Topic:         topic,
		decode: func(raw json.RawMessage) (any, error) {
			p := new(T)
			return p, json.Unmarshal(raw, p)
		},
	}
}

type EventRegistry struct {
	routes map[enums.OutboxEventType]EventDescriptor
}

// NewEventRegistry sends coin movements to the coins topic and everything
// about shop purchases and stock to the shop topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	var missing []error
	if cfg.CoinsTopic == "" {
		missing = append(missing, fmt.Errorf("%s is required", config.EnvPubSubCoinsTopic))
	}
	if cfg.ShopTopic == "" {
		missing = append(missing, fmt.Errorf("%s is required", config.EnvPubSubShopTopic))
	}
	if err := errors.Join(missing...); err != nil {
		return nil, err
	}

	r := &EventRegistry{routes: map[enums.OutboxEventType]EventDescriptor{}}
	for _, d := range []EventDescriptor{
		route[payloads.CoinsCreditedEvent](enums.EventCoinsGranted, enums.AggregateCoinTransaction, cfg.CoinsTopic),
		route[payloads.CoinsCreditedEvent](enums.EventCoinsEarned, enums.AggregateCoinTransaction, cfg.CoinsTopic),
		route[payloads.BenefitPurchasedEvent](enums.EventBenefitPurchased, enums.AggregateBenefitPurchase, cfg.ShopTopic),
		route[payloads.PurchaseStatusChangedEvent](enums.EventPurchaseStatusChanged, enums.AggregateBenefitPurchase, cfg.ShopTopic),
		route[payloads.StockReservationReleasedEvent](enums.EventStockReservationReleased, enums.AggregateShopBenefit, cfg.ShopTopic),
	} {
		r.routes[d.EventType] = d
	}
	return r, nil
}

// Topics returns the distinct destination topics, sorted.
func (r *EventRegistry) Topics() []string {
	var topics []string
	for _, d := range r.routes {
		if !slices.Contains(topics, d.Topic) {
			topics = append(topics, d.Topic)
		}
	}
	slices.Sort(topics)
	return topics
}

// Resolve checks a row against its route and decodes the payload. Every
// error it returns is a NonRetryableError.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	d, ok := r.routes[row.EventType]
	switch {
	case !ok:
		return nil, permanent("no route for event type %s", row.EventType)
	case d.AggregateType != row.AggregateType:
		return nil, permanent("%s must belong to a %s, row says %s", row.EventType, d.AggregateType, row.AggregateType)
	case row.AggregateID == uuid.Nil:
		return nil, permanent("%s row has no aggregate id", row.EventType)
	}

	env, err := outbox.DecodeEnvelope(row.Payload)
	if err != nil {
		return nil, permanent("%s: %w", row.EventType, err)
	}
	payload, err := d.decode(env.Data)
	if err != nil {
		return nil, permanent("decode %s payload: %w", row.EventType, err)
	}
	return &ResolvedEvent{Descriptor: d, Envelope: env, Payload: payload}, nil
}
