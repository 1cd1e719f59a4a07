package pricing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/partsdesk/pricing-backend/pkg/db/models"
)

func TestRankOrdersByTierPriorityRecencyAndID(t *testing.T) {
	recent := asOf.Add(-time.Hour)
	rules := []models.OverrideRule{
		newRule(ruleD, percent("1"), priority(1000)),
		newRule(ruleC, forCategory("Freinage"), percent("1"), priority(1)),
		newRule(ruleB, forCategory("Freinage"), percent("1"), priority(1), validFrom(recent)),
		newRule(ruleA, forProduct(productP1), percent("1"), priority(-5)),
		newRule("00000000-0000-0000-0000-000000000001", forCategory("Freinage"), percent("1"), priority(1)),
	}

	rank(rules)

	got := make([]uuid.UUID, len(rules))
	for i, r := range rules {
		got[i] = r.ID
	}
	require.Equal(t, []uuid.UUID{
		uuid.MustParse(ruleA),
		uuid.MustParse(ruleB),
		uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		uuid.MustParse(ruleC),
		uuid.MustParse(ruleD),
	}, got)
}

func TestEligibleRequiresMatchingClient(t *testing.T) {
	rule := newRule(ruleA, forProduct(productP1), fixed("1"), ownedBy(clientC2))
	require.False(t, eligible(rule, request("1", "1"), asOf, true))

	rule.ClientID = clientC1
	require.True(t, eligible(rule, request("1", "1"), asOf, true))
}

func TestEligibleFractionalQuantities(t *testing.T) {
	rule := newRule(ruleA, forProduct(productP1), fixed("1"), minQty("2.5"))
	require.False(t, eligible(rule, request("2.499", "1"), asOf, false))
	require.True(t, eligible(rule, request("2.5", "1"), asOf, false))
}
