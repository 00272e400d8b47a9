package types

import (
	"encoding/json"
	"testing"
)

func TestNullableIntUnmarshal(t *testing.T) {
	type payload struct {
		StockLimit NullableInt `json:"stockLimit"`
	}

	var got payload
	if err := json.Unmarshal([]byte(`{"stockLimit": 5}`), &got); err != nil {
		t.Fatalf("unmarshal value: %v", err)
	}
	if !got.StockLimit.Valid || got.StockLimit.Value == nil || *got.StockLimit.Value != 5 {
		t.Fatalf("expected valid 5, got %+v", got.StockLimit)
	}

	got = payload{}
	if err := json.Unmarshal([]byte(`{"stockLimit": null}`), &got); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if !got.StockLimit.Valid || got.StockLimit.Value != nil {
		t.Fatalf("expected null to be valid but nil, got %+v", got.StockLimit)
	}

	got = payload{}
	if err := json.Unmarshal([]byte(`{}`), &got); err != nil {
		t.Fatalf("unmarshal missing: %v", err)
	}
	if got.StockLimit.Valid {
		t.Fatalf("expected invalid flag for missing field, got %+v", got.StockLimit)
	}

	if err := json.Unmarshal([]byte(`{"stockLimit": "many"}`), &got); err == nil {
		t.Fatalf("expected type error")
	}
}

func TestNullableIntPtrCopies(t *testing.T) {
	v := 3
	n := NullableInt{Valid: true, Value: &v}
	p := n.Ptr()
	*p = 9
	if v != 3 {
		t.Fatalf("Ptr should return a copy")
	}
	if (NullableInt{}).Ptr() != nil {
		t.Fatalf("expected nil for empty value")
	}
}
