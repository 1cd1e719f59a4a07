package pricing

import (
	"sort"

	"github.com/partsdesk/pricing-backend/pkg/db/models"
)

// rank orders eligible rules best first: specificity tier, then priority,
// then the most recent valid_from, then the smallest id as text.
func rank(rules []models.OverrideRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return outranks(rules[i], rules[j])
	})
}

func outranks(a, b models.OverrideRule) bool {
	if sa, sb := a.Scope().Rank(), b.Scope().Rank(); sa != sb {
		return sa > sb
	}
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.ValidFrom.Equal(b.ValidFrom) {
		return a.ValidFrom.After(b.ValidFrom)
	}
	return a.ID.String() < b.ID.String()
}
