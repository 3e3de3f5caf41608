package manager

import (
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/nimburion/docmanager/pkg/repository/document"
)

// Accumulator is a $group accumulator such as {"$sum": 1}.
type Accumulator struct {
	Op   string
	Expr any
}

// Sum adds up expr over the group; Sum(1) counts.
func Sum(expr any) Accumulator { return Accumulator{Op: "$sum", Expr: expr} }

// Avg averages expr over the group.
func Avg(expr any) Accumulator { return Accumulator{Op: "$avg", Expr: expr} }

// Min keeps the smallest expr of the group.
func Min(expr any) Accumulator { return Accumulator{Op: "$min", Expr: expr} }

// Max keeps the largest expr of the group.
func Max(expr any) Accumulator { return Accumulator{Op: "$max", Expr: expr} }

// First keeps expr of the first document in the group.
func First(expr any) Accumulator { return Accumulator{Op: "$first", Expr: expr} }

// Push collects expr of every document in the group.
func Push(expr any) Accumulator { return Accumulator{Op: "$push", Expr: expr} }

// AddToSet collects the distinct values of expr in the group.
func AddToSet(expr any) Accumulator { return Accumulator{Op: "$addToSet", Expr: expr} }

// Group is a $group expression: an identifier expression plus named accumulators.
type Group struct {
	ID           any
	Accumulators map[string]Accumulator
}

// CountGroup groups by field and counts members under "count".
func CountGroup(field string) Group {
	return Group{
		ID:           "$" + field,
		Accumulators: map[string]Accumulator{"count": Sum(1)},
	}
}

func (g Group) document() (bson.M, error) {
	if g.ID == nil {
		return nil, configErrorf("group requires an identifier expression")
	}
	out := bson.M{"_id": g.ID}
	for name, acc := range g.Accumulators {
		if name == "_id" || name == "" {
			return nil, configErrorf("invalid accumulator name %q", name)
		}
		if acc.Op == "" {
			return nil, configErrorf("accumulator %q has no operator", name)
		}
		out[name] = bson.M{acc.Op: acc.Expr}
	}
	return out, nil
}

// AggregationSpec describes one grouped aggregation.
type AggregationSpec struct {
	Group Group
	Match document.Filter
	Sort  []document.Sort
	Limit int
}

// Pipeline assembles the stages in fixed order: $match (when not empty),
// $group, $sort (when given), $limit (when positive).
func (s AggregationSpec) Pipeline() (document.Pipeline, error) {
	group, err := s.Group.document()
	if err != nil {
		return nil, err
	}
	var p document.Pipeline
	if len(s.Match) > 0 {
		p = append(p, document.Stage{"$match": s.Match})
	}
	p = append(p, document.Stage{"$group": group})
	if len(s.Sort) > 0 {
		d := make(bson.D, 0, len(s.Sort))
		for _, k := range s.Sort {
			d = append(d, bson.E{Key: k.Field, Value: k.Order.Direction()})
		}
		p = append(p, document.Stage{"$sort": d})
	}
	if s.Limit > 0 {
		p = append(p, document.Stage{"$limit": int64(s.Limit)})
	}
	return p, nil
}

// mergeMatch returns a copy of match with text written over it. A key present
// in both takes the value from text.
func mergeMatch(match, text document.Filter) document.Filter {
	out := make(document.Filter, len(match)+len(text))
	for k, v := range match {
		out[k] = v
	}
	for k, v := range text {
		out[k] = v
	}
	return out
}

// GroupCount is one row of a counting aggregation.
type GroupCount struct {
	Key   string `json:"key" bson:"_id"`
	Count int64  `json:"count" bson:"count"`
}

// GroupCounts reads the rows of a CountGroup aggregation, keyed by group value.
// A missing group value is keyed as "".
func GroupCounts(results []document.Result) map[string]int64 {
	out := make(map[string]int64, len(results))
	for _, r := range results {
		out[groupKey(r["_id"])] += countOf(r["count"])
	}
	return out
}

// SortedGroupCounts returns GroupCounts ordered by descending count, then key.
func SortedGroupCounts(results []document.Result) []GroupCount {
	counts := GroupCounts(results)
	out := make([]GroupCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, GroupCount{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func groupKey(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	}
	return fmt.Sprint(v)
}

func countOf(v any) int64 {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case float64:
		return int64(t)
	}
	return 0
}
