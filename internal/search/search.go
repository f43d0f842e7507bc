// Package search narrows a boolean filter tree down to the single flat
// substring term the upstream feed's search parameter supports.
package search

import (
	"encoding/json"
	"fmt"
)

// Expression is one node of a caller-supplied filter tree: either a leaf
// field comparison or a boolean combination of sub-expressions.
type Expression struct {
	And []Expression `json:"and,omitempty"`
	Or  []Expression `json:"or,omitempty"`
	Not *Expression  `json:"not,omitempty"`

	// Leaf comparison. A node is a leaf when Field is set.
	Field string `json:"field,omitempty"`
	Op    string `json:"op,omitempty"`
	Value string `json:"value,omitempty"`
}

// Parse decodes a JSON-encoded filter tree. An empty input yields a nil
// expression, meaning "unfiltered".
func Parse(raw string) (*Expression, error) {
	if raw == "" {
		return nil, nil
	}
	var expr Expression
	if err := json.Unmarshal([]byte(raw), &expr); err != nil {
		return nil, fmt.Errorf("invalid where expression: %w", err)
	}
	return &expr, nil
}

// ExtractTerm walks the tree depth-first and returns the value of the first
// leaf comparison carrying a non-empty value, ignoring the operator and field
// name and all other leaves. Leaves with empty values are skipped so the
// listing degrades to unfiltered rather than searching for "". NOT-wrapped
// conditions are not inverted: their inner leaf value may still be returned.
// This mirrors the upstream feed's capability (one flat substring parameter),
// not a full predicate push-down.
func ExtractTerm(expr *Expression) (string, bool) {
	if expr == nil {
		return "", false
	}

	if expr.Field != "" && expr.Value != "" {
		return expr.Value, true
	}

	for i := range expr.And {
		if term, ok := ExtractTerm(&expr.And[i]); ok {
			return term, true
		}
	}
	for i := range expr.Or {
		if term, ok := ExtractTerm(&expr.Or[i]); ok {
			return term, true
		}
	}
	if expr.Not != nil {
		if term, ok := ExtractTerm(expr.Not); ok {
			return term, true
		}
	}

	return "", false
}
