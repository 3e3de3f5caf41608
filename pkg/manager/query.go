package manager

import (
	"slices"

	"github.com/nimburion/docmanager/pkg/repository/document"
)

// Query incrementally builds the native filter, sort and prime hints of one
// listing or counting operation. The zero value is an empty query.
type Query struct {
	clauses Filters
	or      []document.Filter
	sort    []document.Sort
	prime   []string
}

// NewQuery starts an empty query.
func NewQuery() *Query {
	return &Query{}
}

// Where appends filter clauses.
func (q *Query) Where(clauses ...FilterClause) *Query {
	q.clauses = append(q.clauses, clauses...)
	return q
}

// Field starts a clause on name.
func (q *Query) Field(name string) FieldExpr {
	return FieldExpr{q: q, field: name}
}

// AddOr adds alternatives to the query's single OR group. A document matches
// the group when it matches any alternative.
func (q *Query) AddOr(exprs ...document.Filter) *Query {
	q.or = append(q.or, exprs...)
	return q
}

// Sort appends a sort key.
func (q *Query) Sort(field string, order document.SortOrder) *Query {
	q.sort = append(q.sort, document.Sort{Field: field, Order: order})
	return q
}

// Prime marks reference fields for eager resolution.
func (q *Query) Prime(fields ...string) *Query {
	q.prime = append(q.prime, fields...)
	return q
}

// Filter renders the native filter document. Clauses on the same field share
// one operator document; a repeated operator moves to $and.
func (q *Query) Filter() (document.Filter, error) {
	if err := q.clauses.Validate(); err != nil {
		return nil, err
	}
	out := document.Filter{}
	var and []interface{}
	for _, c := range q.clauses {
		op, _ := c.Operator.Native()
		cond, _ := out[c.Field].(document.Filter)
		if cond == nil {
			out[c.Field] = document.Filter{op: c.Value}
			continue
		}
		if _, dup := cond[op]; dup {
			and = append(and, document.Filter{c.Field: document.Filter{op: c.Value}})
			continue
		}
		cond[op] = c.Value
	}
	if len(and) > 0 {
		out["$and"] = and
	}
	if len(q.or) > 0 {
		alts := make([]interface{}, 0, len(q.or))
		for _, e := range q.or {
			alts = append(alts, e)
		}
		out["$or"] = alts
	}
	return out, nil
}

// Options renders the query without pagination.
func (q *Query) Options() (document.QueryOptions, error) {
	f, err := q.Filter()
	if err != nil {
		return document.QueryOptions{}, err
	}
	for _, s := range q.sort {
		if err := ValidateFieldName(s.Field); err != nil {
			return document.QueryOptions{}, err
		}
	}
	return document.QueryOptions{
		Filter: f,
		Sort:   slices.Clone(q.sort),
		Prime:  slices.Clone(q.prime),
	}, nil
}

// FieldExpr adds one clause on a field and returns the query.
type FieldExpr struct {
	q     *Query
	field string
}

func (f FieldExpr) add(op Operator, v any) *Query {
	return f.q.Where(FilterClause{Field: f.field, Operator: op, Value: v})
}

// Equals adds an equality clause.
func (f FieldExpr) Equals(v any) *Query { return f.add(OpEquals, v) }

// NotEqual adds a $ne clause.
func (f FieldExpr) NotEqual(v any) *Query { return f.add(OpNotEqual, v) }

// GreaterThan adds a $gt clause.
func (f FieldExpr) GreaterThan(v any) *Query { return f.add(OpGreater, v) }

// LessThan adds a $lt clause.
func (f FieldExpr) LessThan(v any) *Query { return f.add(OpLess, v) }

// GreaterThanOrEq adds a $gte clause.
func (f FieldExpr) GreaterThanOrEq(v any) *Query { return f.add(OpGreaterEq, v) }

// LessThanOrEq adds a $lte clause.
func (f FieldExpr) LessThanOrEq(v any) *Query { return f.add(OpLessEq, v) }

// In adds a $in clause; values must be a list.
func (f FieldExpr) In(values any) *Query { return f.add(OpIn, values) }

// NotIn adds a $nin clause; values must be a list.
func (f FieldExpr) NotIn(values any) *Query { return f.add(OpNotIn, values) }

// Exists adds a $exists clause.
func (f FieldExpr) Exists(b bool) *Query { return f.add(OpExists, b) }

// All adds a $all clause; values must be a list.
func (f FieldExpr) All(values any) *Query { return f.add(OpAll, values) }

// Size adds a $size clause.
func (f FieldExpr) Size(n int) *Query { return f.add(OpSize, n) }
