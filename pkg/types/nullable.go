package types

import (
	"bytes"
	"encoding/json"
)

// NullableInt tracks whether an int field was explicitly present in JSON, so a
// PATCH body can tell "absent" apart from "null".
type NullableInt struct {
	Valid bool
	Value *int
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullableInt) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	if bytes.Equal(trimmed, []byte("null")) {
		n.Valid = true
		n.Value = nil
		return nil
	}

	var parsed int
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return err
	}
	n.Valid = true
	n.Value = &parsed
	return nil
}

// Ptr returns a copy of the value, or nil.
func (n NullableInt) Ptr() *int {
	if n.Value == nil {
		return nil
	}
	v := *n.Value
	return &v
}
