package models

import (
	"testing"

	"github.com/google/uuid"

	"github.com/partsdesk/pricing-backend/pkg/enums"
)

func TestOverrideRuleScope(t *testing.T) {
	productID := uuid.New()
	category := "Freinage"
	empty := ""

	tests := []struct {
		name string
		rule OverrideRule
		want enums.RuleScope
	}{
		{name: "product", rule: OverrideRule{ProductID: &productID}, want: enums.RuleScopeProduct},
		{name: "product and category", rule: OverrideRule{ProductID: &productID, CategoryName: &category}, want: enums.RuleScopeProduct},
		{name: "category", rule: OverrideRule{CategoryName: &category}, want: enums.RuleScopeCategory},
		{name: "blank category", rule: OverrideRule{CategoryName: &empty}, want: enums.RuleScopeClient},
		{name: "client wide", rule: OverrideRule{}, want: enums.RuleScopeClient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.Scope(); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestOverrideRuleSyncState(t *testing.T) {
	msg := "sage rejected price"
	if got := (OverrideRule{}).SyncState(); got != enums.SyncStatePending {
		t.Fatalf("expected pending, got %s", got)
	}
	if got := (OverrideRule{SageSyncError: &msg}).SyncState(); got != enums.SyncStateFailed {
		t.Fatalf("expected failed, got %s", got)
	}
	if got := (OverrideRule{IsSyncedToSage: true}).SyncState(); got != enums.SyncStateSynced {
		t.Fatalf("expected synced, got %s", got)
	}
}

func TestCategoryKeyStripsOnlySpaces(t *testing.T) {
	for raw, want := range map[string]string{
		"Freinage":     "Freinage",
		"  Freinage  ": "Freinage",
		"Freinage\t":   "Freinage\t",
		"   ":          "",
	} {
		if got := CategoryKey(raw); got != want {
			t.Fatalf("CategoryKey(%q) = %q, want %q", raw, got, want)
		}
	}
}
