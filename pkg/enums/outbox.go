package enums

// OutboxAggregateType names the aggregate an outbox row belongs to.
type OutboxAggregateType string

// OutboxEventType names the change an outbox row carries.
type OutboxEventType string

const (
	AggregateOverrideRule OutboxAggregateType = "override_rule"

	EventOverrideRuleChanged OutboxEventType = "override_rule_changed"
	EventOverrideRuleSynced  OutboxEventType = "override_rule_synced"
)

var (
	aggregateTypes = []OutboxAggregateType{AggregateOverrideRule}
	eventTypes     = []OutboxEventType{EventOverrideRuleChanged, EventOverrideRuleSynced}
)

func (a OutboxAggregateType) IsValid() bool { return known(a, aggregateTypes) }

func (e OutboxEventType) IsValid() bool { return known(e, eventTypes) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse("aggregate type", value, aggregateTypes)
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse("event type", value, eventTypes)
}
