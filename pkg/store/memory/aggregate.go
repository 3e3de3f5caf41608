package memory

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/nimburion/docmanager/pkg/repository/document"
)

// runPipeline evaluates the supported stages ($match, $group, $sort, $skip,
// $limit, $count) over docs.
func runPipeline(docs []bson.M, pipeline document.Pipeline) ([]bson.M, error) {
	current := docs
	for i, stage := range pipeline {
		if len(stage) != 1 {
			return nil, fmt.Errorf("stage %d must have exactly one operator", i)
		}
		for op, spec := range stage {
			var err error
			switch op {
			case "$match":
				current, err = stageMatch(current, spec)
			case "$group":
				current, err = stageGroup(current, spec)
			case "$sort":
				var keys []sortKey
				keys, err = parseSortSpec(spec)
				if err == nil {
					sortDocs(current, keys)
				}
			case "$skip":
				n, ok := toFloat(spec)
				if !ok || n < 0 {
					return nil, fmt.Errorf("$skip expects a non-negative number")
				}
				if int(n) >= len(current) {
					current = current[:0]
				} else {
					current = current[int(n):]
				}
			case "$limit":
				n, ok := toFloat(spec)
				if !ok || n <= 0 {
					return nil, fmt.Errorf("$limit expects a positive number")
				}
				if int(n) < len(current) {
					current = current[:int(n)]
				}
			case "$count":
				field, ok := spec.(string)
				if !ok || field == "" {
					return nil, fmt.Errorf("$count expects a field name")
				}
				current = []bson.M{{field: int64(len(current))}}
			default:
				return nil, fmt.Errorf("unsupported pipeline stage %s", op)
			}
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
	}
	return current, nil
}

func stageMatch(docs []bson.M, spec interface{}) ([]bson.M, error) {
	filter, err := normalizeFilter(spec)
	if err != nil {
		return nil, err
	}
	out := make([]bson.M, 0, len(docs))
	for _, d := range docs {
		ok, err := Matches(d, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, d)
		}
	}
	return out, nil
}

type groupState struct {
	id     interface{}
	values map[string]*accumulator
}

type accumulator struct {
	op      string
	expr    interface{}
	sum     float64
	integer bool
	count   int
	value   interface{}
	set     bool
	items   bson.A
}

func stageGroup(docs []bson.M, spec interface{}) ([]bson.M, error) {
	groupSpec, ok := asDocument(spec)
	if !ok {
		return nil, fmt.Errorf("$group stage must be a document")
	}
	idExpr, ok := groupSpec["_id"]
	if !ok {
		return nil, fmt.Errorf("$group stage must include _id")
	}

	fields := make([]string, 0, len(groupSpec))
	for k := range groupSpec {
		if k != "_id" {
			fields = append(fields, k)
		}
	}
	sort.Strings(fields)

	order := make([]string, 0)
	groups := make(map[string]*groupState)
	for _, d := range docs {
		id := evalExpr(d, idExpr)
		key := stringOf(id)
		g, exists := groups[key]
		if !exists {
			g = &groupState{id: id, values: make(map[string]*accumulator, len(fields))}
			for _, f := range fields {
				accSpec, ok := asDocument(groupSpec[f])
				if !ok || len(accSpec) != 1 {
					return nil, fmt.Errorf("accumulator %s must be a single-operator document", f)
				}
				for op, expr := range accSpec {
					g.values[f] = &accumulator{op: op, expr: expr, integer: true}
				}
			}
			groups[key] = g
			order = append(order, key)
		}
		for _, f := range fields {
			if err := g.values[f].add(d); err != nil {
				return nil, fmt.Errorf("%s: %w", f, err)
			}
		}
	}

	out := make([]bson.M, 0, len(order))
	for _, key := range order {
		g := groups[key]
		row := bson.M{"_id": g.id}
		for f, acc := range g.values {
			row[f] = acc.result()
		}
		out = append(out, row)
	}
	return out, nil
}

func (a *accumulator) add(doc bson.M) error {
	v := evalExpr(doc, a.expr)
	switch a.op {
	case "$sum", "$avg":
		f, ok := toFloat(v)
		if !ok {
			return nil
		}
		if f != math.Trunc(f) {
			a.integer = false
		}
		a.sum += f
		a.count++
	case "$min":
		if v != nil && (!a.set || compareValues(v, a.value) < 0) {
			a.value, a.set = v, true
		}
	case "$max":
		if v != nil && (!a.set || compareValues(v, a.value) > 0) {
			a.value, a.set = v, true
		}
	case "$first":
		if !a.set {
			a.value, a.set = v, true
		}
	case "$last":
		a.value, a.set = v, true
	case "$push":
		a.items = append(a.items, v)
	case "$addToSet":
		for _, existing := range a.items {
			if equalValues(existing, v) {
				return nil
			}
		}
		a.items = append(a.items, v)
	default:
		return fmt.Errorf("unsupported accumulator %s", a.op)
	}
	return nil
}

func (a *accumulator) result() interface{} {
	switch a.op {
	case "$sum":
		if a.integer {
			return int64(a.sum)
		}
		return a.sum
	case "$avg":
		if a.count == 0 {
			return nil
		}
		return a.sum / float64(a.count)
	case "$push", "$addToSet":
		if a.items == nil {
			return bson.A{}
		}
		return a.items
	}
	return a.value
}

// evalExpr resolves "$field" references, nested expression documents and constants.
func evalExpr(doc bson.M, expr interface{}) interface{} {
	switch e := expr.(type) {
	case string:
		if strings.HasPrefix(e, "$") {
			v, _ := lookup(doc, strings.TrimPrefix(e, "$"))
			return v
		}
		return e
	case bson.D:
		out := make(bson.M, len(e))
		for _, el := range e {
			out[el.Key] = evalExpr(doc, el.Value)
		}
		return out
	}
	if d, ok := asDocument(expr); ok {
		out := make(bson.M, len(d))
		for k, v := range d {
			out[k] = evalExpr(doc, v)
		}
		return out
	}
	return expr
}

type sortKey struct {
	field string
	dir   int
}

func parseSortSpec(spec interface{}) ([]sortKey, error) {
	var keys []sortKey
	appendKey := func(field string, dir interface{}) error {
		n, ok := toFloat(dir)
		if !ok || (n != 1 && n != -1) {
			return fmt.Errorf("sort direction for %s must be 1 or -1", field)
		}
		keys = append(keys, sortKey{field: field, dir: int(n)})
		return nil
	}

	switch s := spec.(type) {
	case bson.D:
		for _, e := range s {
			if err := appendKey(e.Key, e.Value); err != nil {
				return nil, err
			}
		}
	case []document.Sort:
		for _, e := range s {
			keys = append(keys, sortKey{field: e.Field, dir: e.Order.Direction()})
		}
	default:
		d, ok := asDocument(spec)
		if !ok {
			return nil, fmt.Errorf("$sort stage must be a document")
		}
		// Unordered maps sort their keys for a deterministic precedence.
		fields := make([]string, 0, len(d))
		for k := range d {
			fields = append(fields, k)
		}
		sort.Strings(fields)
		for _, f := range fields {
			if err := appendKey(f, d[f]); err != nil {
				return nil, err
			}
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("$sort stage is empty")
	}
	return keys, nil
}

func sortDocs(docs []bson.M, keys []sortKey) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, k := range keys {
			a, _ := lookup(docs[i], k.field)
			b, _ := lookup(docs[j], k.field)
			if c := compareValues(a, b); c != 0 {
				return c*k.dir < 0
			}
		}
		return false
	})
}
