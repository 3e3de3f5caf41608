package manager

import (
	"fmt"
	"reflect"
	"strings"
)

// Operator is a filter operator name. Each maps to exactly one native operator.
type Operator string

const (
	OpEquals    Operator = "equals"
	OpNotEqual  Operator = "notEqual"
	OpGreater   Operator = "gt"
	OpLess      Operator = "lt"
	OpGreaterEq Operator = "gte"
	OpLessEq    Operator = "lte"
	OpIn        Operator = "in"
	OpNotIn     Operator = "notIn"
	OpExists    Operator = "exists"
	OpAll       Operator = "all"
	OpSize      Operator = "size"
)

var nativeOperators = map[Operator]string{
	OpEquals:    "$eq",
	OpNotEqual:  "$ne",
	OpGreater:   "$gt",
	OpLess:      "$lt",
	OpGreaterEq: "$gte",
	OpLessEq:    "$lte",
	OpIn:        "$in",
	OpNotIn:     "$nin",
	OpExists:    "$exists",
	OpAll:       "$all",
	OpSize:      "$size",
}

var operatorAliases = map[string]Operator{
	"eq":              OpEquals,
	"ne":              OpNotEqual,
	"greaterThan":     OpGreater,
	"lessThan":        OpLess,
	"greaterThanOrEq": OpGreaterEq,
	"lessThanOrEq":    OpLessEq,
	"nin":             OpNotIn,
}

// ParseOperator resolves an operator name or one of its aliases.
func ParseOperator(name string) (Operator, error) {
	name = strings.TrimSpace(name)
	if _, ok := nativeOperators[Operator(name)]; ok {
		return Operator(name), nil
	}
	if op, ok := operatorAliases[name]; ok {
		return op, nil
	}
	return "", configErrorf("unsupported filter operator %q", name)
}

// Native returns the store operator, e.g. "$gte".
func (o Operator) Native() (string, error) {
	n, ok := nativeOperators[o]
	if !ok {
		return "", configErrorf("unsupported filter operator %q", string(o))
	}
	return n, nil
}

// FilterClause narrows a query by one field condition.
type FilterClause struct {
	Field    string
	Operator Operator
	Value    any
}

// String renders the clause for logs and errors.
func (c FilterClause) String() string {
	return fmt.Sprintf("%s %s %v", c.Field, c.Operator, c.Value)
}

// ValidateFieldName rejects empty names and path segments that a store
// would read as an operator.
func ValidateFieldName(field string) error {
	if strings.TrimSpace(field) == "" {
		return configErrorf("field name is required")
	}
	for _, segment := range strings.Split(field, ".") {
		if segment == "" {
			return configErrorf("field %q has an empty path segment", field)
		}
		if strings.HasPrefix(segment, "$") {
			return configErrorf("field %q may not start a segment with $", field)
		}
	}
	return nil
}

// Validate checks the clause before it reaches a store.
func (c FilterClause) Validate() error {
	if err := ValidateFieldName(c.Field); err != nil {
		return err
	}
	if _, err := c.Operator.Native(); err != nil {
		return err
	}
	switch c.Operator {
	case OpIn, OpNotIn, OpAll:
		if !isList(c.Value) {
			return configErrorf("operator %s on %s expects a list", c.Operator, c.Field)
		}
	case OpExists:
		if _, ok := c.Value.(bool); !ok {
			return configErrorf("operator exists on %s expects a boolean", c.Field)
		}
	}
	return nil
}

// Filters are applied conjunctively in order.
type Filters []FilterClause

// Validate returns the first invalid clause error.
func (fs Filters) Validate() error {
	for i, c := range fs {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("filter %d: %w", i, err)
		}
	}
	return nil
}

// Eq matches documents whose field equals v.
func Eq(field string, v any) FilterClause { return FilterClause{field, OpEquals, v} }

// Ne matches documents whose field differs from v or is missing.
func Ne(field string, v any) FilterClause { return FilterClause{field, OpNotEqual, v} }

// Gt matches field values greater than v.
func Gt(field string, v any) FilterClause { return FilterClause{field, OpGreater, v} }

// Lt matches field values less than v.
func Lt(field string, v any) FilterClause { return FilterClause{field, OpLess, v} }

// Gte matches field values greater than or equal to v.
func Gte(field string, v any) FilterClause { return FilterClause{field, OpGreaterEq, v} }

// Lte matches field values less than or equal to v.
func Lte(field string, v any) FilterClause { return FilterClause{field, OpLessEq, v} }

// In matches field values equal to any of values.
func In(field string, values ...any) FilterClause {
	return FilterClause{field, OpIn, values}
}

// NotIn matches field values equal to none of values.
func NotIn(field string, values ...any) FilterClause {
	return FilterClause{field, OpNotIn, values}
}

// Exists matches documents that have (or lack) field.
func Exists(field string, exists bool) FilterClause {
	return FilterClause{field, OpExists, exists}
}

// All matches array fields containing every one of values.
func All(field string, values ...any) FilterClause {
	return FilterClause{field, OpAll, values}
}

// Size matches array fields with exactly n elements.
func Size(field string, n int) FilterClause {
	return FilterClause{field, OpSize, n}
}

func isList(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return true
	}
	return false
}
