package memory

import (
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// lookup resolves a dotted path inside doc.
func lookup(doc bson.M, path string) (interface{}, bool) {
	var current interface{} = doc
	for _, part := range strings.Split(path, ".") {
		d, ok := asDocument(current)
		if !ok {
			return nil, false
		}
		current, ok = d[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Matches reports whether doc satisfies filter. filter must already be normalized.
func Matches(doc bson.M, filter bson.M) (bool, error) {
	for key, cond := range filter {
		var (
			ok  bool
			err error
		)
		switch key {
		case "$or":
			ok, err = matchLogical(doc, cond, false)
		case "$and":
			ok, err = matchLogical(doc, cond, true)
		case "$nor":
			ok, err = matchLogical(doc, cond, false)
			ok = !ok
		default:
			if strings.HasPrefix(key, "$") {
				return false, fmt.Errorf("unsupported top-level operator %s", key)
			}
			value, exists := lookup(doc, key)
			ok, err = matchCondition(value, exists, cond)
		}
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchLogical(doc bson.M, cond interface{}, all bool) (bool, error) {
	clauses, ok := asArray(cond)
	if !ok {
		return false, fmt.Errorf("logical operator expects an array, got %T", cond)
	}
	if len(clauses) == 0 {
		return false, fmt.Errorf("logical operator expects a non-empty array")
	}
	for _, c := range clauses {
		sub, ok := asDocument(c)
		if !ok {
			return false, fmt.Errorf("logical clause must be a document, got %T", c)
		}
		matched, err := Matches(doc, sub)
		if err != nil {
			return false, err
		}
		if all && !matched {
			return false, nil
		}
		if !all && matched {
			return true, nil
		}
	}
	return all, nil
}

func isOperatorDocument(v interface{}) (bson.M, bool) {
	d, ok := asDocument(v)
	if !ok || len(d) == 0 {
		return nil, false
	}
	for k := range d {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return d, true
}

func matchCondition(value interface{}, exists bool, cond interface{}) (bool, error) {
	if re, ok := cond.(primitive.Regex); ok {
		return matchRegex(value, re.Pattern, re.Options)
	}
	ops, ok := isOperatorDocument(cond)
	if !ok {
		return matchEquals(value, exists, cond), nil
	}

	if pattern, has := ops["$regex"]; has {
		options, _ := ops["$options"].(string)
		var matched bool
		var err error
		switch p := pattern.(type) {
		case string:
			matched, err = matchRegex(value, p, options)
		case primitive.Regex:
			matched, err = matchRegex(value, p.Pattern, p.Options+options)
		default:
			return false, fmt.Errorf("$regex expects a string, got %T", pattern)
		}
		if err != nil || !matched {
			return false, err
		}
	}

	for op, operand := range ops {
		var matched bool
		switch op {
		case "$regex", "$options":
			continue
		case "$eq":
			matched = matchEquals(value, exists, operand)
		case "$ne":
			matched = !matchEquals(value, exists, operand)
		case "$gt", "$gte", "$lt", "$lte":
			matched = matchRange(value, exists, op, operand)
		case "$in", "$nin":
			list, ok := asArray(operand)
			if !ok {
				return false, fmt.Errorf("%s expects an array, got %T", op, operand)
			}
			for _, candidate := range list {
				if matchEquals(value, exists, candidate) {
					matched = true
					break
				}
			}
			if op == "$nin" {
				matched = !matched
			}
		case "$exists":
			want := truthy(operand)
			matched = exists == want
		case "$all":
			list, ok := asArray(operand)
			if !ok {
				return false, fmt.Errorf("$all expects an array, got %T", operand)
			}
			matched = exists
			for _, candidate := range list {
				if !matchEquals(value, exists, candidate) {
					matched = false
					break
				}
			}
		case "$size":
			arr, isArr := asArray(value)
			n, isNum := toFloat(operand)
			matched = isArr && isNum && float64(len(arr)) == n
		case "$not":
			sub, err := matchCondition(value, exists, operand)
			if err != nil {
				return false, err
			}
			matched = !sub
		default:
			return false, fmt.Errorf("unsupported operator %s", op)
		}
		if !matched {
			return false, nil
		}
	}
	return true, nil
}

// matchEquals applies equality with array-element semantics.
func matchEquals(value interface{}, exists bool, want interface{}) bool {
	if !exists {
		return want == nil
	}
	if equalValues(value, want) {
		return true
	}
	if arr, ok := asArray(value); ok {
		for _, el := range arr {
			if equalValues(el, want) {
				return true
			}
		}
	}
	return false
}

func matchRange(value interface{}, exists bool, op string, bound interface{}) bool {
	if !exists {
		return false
	}
	check := func(v interface{}) bool {
		if typeOrder(v) != typeOrder(bound) {
			return false
		}
		c := compareValues(v, bound)
		switch op {
		case "$gt":
			return c > 0
		case "$gte":
			return c >= 0
		case "$lt":
			return c < 0
		}
		return c <= 0
	}
	if arr, ok := asArray(value); ok {
		for _, el := range arr {
			if check(el) {
				return true
			}
		}
		return false
	}
	return check(value)
}

func matchRegex(value interface{}, pattern, options string) (bool, error) {
	flags := ""
	for _, o := range options {
		switch o {
		case 'i', 'm', 's':
			flags += string(o)
		}
	}
	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("invalid regex: %w", err)
	}
	if s, ok := value.(string); ok {
		return re.MatchString(s), nil
	}
	if arr, ok := asArray(value); ok {
		for _, el := range arr {
			if s, ok := el.(string); ok && re.MatchString(s) {
				return true, nil
			}
		}
	}
	return false, nil
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	}
	if f, ok := toFloat(v); ok {
		return f != 0
	}
	return true
}
