package controller

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nimburion/docmanager/pkg/manager"
)

// GinSource reads manager parameters from the query string of a gin request.
type GinSource struct {
	c *gin.Context
}

// NewGinSource wraps c.
func NewGinSource(c *gin.Context) GinSource {
	return GinSource{c: c}
}

// Get returns the first query value of key, or def when key is absent.
func (s GinSource) Get(key string, def any) any {
	if v, ok := s.c.GetQuery(key); ok {
		return v
	}
	return def
}

var errInvalidFilter = errors.New("invalid filter")

// ParseFilters reads filter[field][op]=value parameters. The op segment is
// optional and defaults to equals. List operators split their value on
// commas; comparison operators read numbers and dates; exists reads a bool.
// Clauses are ordered by field then operator.
func ParseFilters(values url.Values) (manager.Filters, error) {
	keys := make([]string, 0, len(values))
	for key := range values {
		if strings.HasPrefix(key, "filter[") {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	filters := make(manager.Filters, 0, len(keys))
	for _, key := range keys {
		field, opName, err := splitFilterKey(key)
		if err != nil {
			return nil, err
		}
		op := manager.OpEquals
		if opName != "" {
			if op, err = manager.ParseOperator(opName); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", errInvalidFilter, key, err)
			}
		}
		for _, raw := range values[key] {
			value, err := filterValue(field, op, raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", errInvalidFilter, key, err)
			}
			filters = append(filters, manager.FilterClause{Field: field, Operator: op, Value: value})
		}
	}
	return filters, nil
}

// splitFilterKey parses "filter[field]" or "filter[field][op]".
func splitFilterKey(key string) (field, op string, err error) {
	rest := strings.TrimPrefix(key, "filter")
	var parts []string
	for rest != "" {
		if rest[0] != '[' {
			return "", "", fmt.Errorf("%w: malformed key %q", errInvalidFilter, key)
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return "", "", fmt.Errorf("%w: malformed key %q", errInvalidFilter, key)
		}
		parts = append(parts, rest[1:end])
		rest = rest[end+1:]
	}
	if len(parts) == 0 || len(parts) > 2 || parts[0] == "" {
		return "", "", fmt.Errorf("%w: malformed key %q", errInvalidFilter, key)
	}
	field = manager.NormalizeFieldName(parts[0])
	if field == "id" {
		field = "_id"
	}
	if err := manager.ValidateFieldName(field); err != nil {
		return "", "", fmt.Errorf("%w: %s: %w", errInvalidFilter, key, err)
	}
	if len(parts) == 2 {
		op = parts[1]
	}
	return field, op, nil
}

func filterValue(field string, op manager.Operator, raw string) (any, error) {
	switch op {
	case manager.OpIn, manager.OpNotIn, manager.OpAll:
		items := strings.Split(raw, ",")
		out := make([]any, 0, len(items))
		for _, item := range items {
			out = append(out, scalarValue(field, strings.TrimSpace(item)))
		}
		return out, nil
	case manager.OpExists:
		return strconv.ParseBool(raw)
	case manager.OpSize:
		return strconv.Atoi(raw)
	case manager.OpGreater, manager.OpLess, manager.OpGreaterEq, manager.OpLessEq:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f, nil
		}
		if d, ok := manager.NormalizeDateToStore(raw); ok {
			return d, nil
		}
		return raw, nil
	default:
		return scalarValue(field, raw), nil
	}
}

// scalarValue keeps equality values as strings, except identifiers.
func scalarValue(field, raw string) any {
	if field == "_id" {
		if oid, err := primitive.ObjectIDFromHex(raw); err == nil {
			return oid
		}
	}
	return raw
}
