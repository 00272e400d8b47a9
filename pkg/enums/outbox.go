package enums

// OutboxAggregateType is outbox_events.aggregate_type.
type OutboxAggregateType string

const (
	AggregateCoinTransaction OutboxAggregateType = "coin_transaction"
	AggregateBenefitPurchase OutboxAggregateType = "benefit_purchase"
	AggregateShopBenefit     OutboxAggregateType = "shop_benefit"
)

var aggregateTypes = newSet("aggregate type", nil,
	AggregateCoinTransaction, AggregateBenefitPurchase, AggregateShopBenefit)

func (a OutboxAggregateType) IsValid() bool { return aggregateTypes.has(a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return aggregateTypes.parse(value)
}

// OutboxEventType is outbox_events.event_type. Values are part of the
// published contract; subscribers filter on them.
type OutboxEventType string

const (
	EventCoinsGranted             OutboxEventType = "coins_granted"
	EventCoinsEarned              OutboxEventType = "coins_earned"
	EventBenefitPurchased         OutboxEventType = "benefit_purchased"
	EventStockReservationReleased OutboxEventType = "stock_reservation_released"
	EventPurchaseStatusChanged    OutboxEventType = "purchase_status_changed"
)

var eventTypes = newSet("event type", nil,
	EventCoinsGranted, EventCoinsEarned, EventBenefitPurchased,
	EventStockReservationReleased, EventPurchaseStatusChanged)

func (e OutboxEventType) IsValid() bool { return eventTypes.has(e) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return eventTypes.parse(value)
}

// OutboxDLQErrorReason records why a row was dead-lettered.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonNoTopic      OutboxDLQErrorReason = "no_topic"
)

var dlqReasons = newSet("dlq reason", nil,
	OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable, OutboxDLQReasonNoTopic)

func (r OutboxDLQErrorReason) IsValid() bool { return dlqReasons.has(r) }
