package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestNullableUnmarshal(t *testing.T) {
	type payload struct {
		ID    Nullable[uuid.UUID]       `json:"id"`
		Until Nullable[time.Time]       `json:"valid_until"`
		Price Nullable[decimal.Decimal] `json:"fixed_price"`
	}

	var got payload
	if err := json.Unmarshal([]byte(`{"id": "00000000-0000-0000-0000-000000000001", "fixed_price": "12.50"}`), &got); err != nil {
		t.Fatalf("unmarshal value: %v", err)
	}
	if !got.ID.Set || got.ID.Value == nil {
		t.Fatalf("expected set uuid, got %+v", got.ID)
	}
	if got.ID.Value.String() != "00000000-0000-0000-0000-000000000001" {
		t.Fatalf("unexpected uuid %s", got.ID.Value)
	}
	if got.Until.Set {
		t.Fatalf("expected omitted valid_until to stay unset")
	}
	if got.Price.Value == nil || !got.Price.Value.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected price %+v", got.Price)
	}

	got = payload{}
	if err := json.Unmarshal([]byte(`{"valid_until": null}`), &got); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if !got.Until.IsNull() {
		t.Fatalf("expected explicit null, got %+v", got.Until)
	}

	if err := json.Unmarshal([]byte(`{"id": "nope"}`), &got); err == nil {
		t.Fatalf("expected invalid uuid to fail")
	}
}

func TestNullableApply(t *testing.T) {
	current := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	dst := &current

	Nullable[time.Time]{}.Apply(&dst)
	if dst == nil {
		t.Fatalf("unset patch must leave destination alone")
	}

	Nullable[time.Time]{Set: true}.Apply(&dst)
	if dst != nil {
		t.Fatalf("null patch must clear destination")
	}

	next := current.AddDate(0, 1, 0)
	Nullable[time.Time]{Set: true, Value: &next}.Apply(&dst)
	if dst == nil || !dst.Equal(next) {
		t.Fatalf("expected destination %v, got %v", next, dst)
	}
}
