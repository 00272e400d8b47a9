package enums

import (
	"fmt"
	"slices"
	"strings"
)

// set is the closed list of values a string enum accepts.
type set[T ~string] struct {
	kind  string
	fold  func(string) string
	items []T
}

func newSet[T ~string](kind string, fold func(string) string, items ...T) set[T] {
	if fold == nil {
		fold = func(s string) string { return s }
	}
	return set[T]{kind: kind, fold: fold, items: items}
}

func (s set[T]) has(v T) bool { return slices.Contains(s.items, v) }

// parse trims raw, applies the set's case folding and matches it.
func (s set[T]) parse(raw string) (T, error) {
	v := T(s.fold(strings.TrimSpace(raw)))
	if s.has(v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", s.kind, raw)
}
