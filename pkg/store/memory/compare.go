package memory

import (
	"bytes"
	"reflect"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nimburion/docmanager/pkg/repository/document"
)

// typeOrder follows the BSON comparison order for the types we support.
func typeOrder(v interface{}) int {
	switch v.(type) {
	case nil, primitive.Null, primitive.Undefined:
		return 1
	case int, int32, int64, float64, float32, primitive.Decimal128:
		return 2
	case string, primitive.Symbol:
		return 3
	case bson.M, bson.D, map[string]interface{}:
		return 4
	case bson.A, []interface{}:
		return 5
	case primitive.Binary, []byte:
		return 6
	case primitive.ObjectID:
		return 7
	case bool:
		return 8
	case primitive.DateTime, time.Time:
		return 9
	case primitive.Timestamp:
		return 10
	case primitive.Regex:
		return 11
	}
	return 12
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func toMillis(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case primitive.DateTime:
		return int64(t), true
	case time.Time:
		return t.UnixMilli(), true
	}
	return 0, false
}

// compareValues orders a and b. Values of different BSON types are ordered by type.
func compareValues(a, b interface{}) int {
	ta, tb := typeOrder(a), typeOrder(b)
	if ta != tb {
		return sign(ta - tb)
	}

	switch ta {
	case 1:
		return 0
	case 2:
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case 3:
		return strings.Compare(stringOf(a), stringOf(b))
	case 7:
		oa, ob := a.(primitive.ObjectID), b.(primitive.ObjectID)
		return bytes.Compare(oa[:], ob[:])
	case 8:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		}
		return 1
	case 9:
		ma, _ := toMillis(a)
		mb, _ := toMillis(b)
		switch {
		case ma < mb:
			return -1
		case ma > mb:
			return 1
		}
		return 0
	}

	if reflect.DeepEqual(a, b) {
		return 0
	}
	// Composite values have no meaningful order here; keep them stable.
	return strings.Compare(stringOf(a), stringOf(b))
}

func equalValues(a, b interface{}) bool {
	if typeOrder(a) != typeOrder(b) {
		return false
	}
	switch typeOrder(a) {
	case 1, 2, 3, 7, 8, 9:
		return compareValues(a, b) == 0
	}
	return reflect.DeepEqual(normalizeValue(a), normalizeValue(b))
}

func stringOf(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case primitive.Symbol:
		return string(s)
	}
	raw, err := bson.Marshal(bson.M{"v": v})
	if err != nil {
		return ""
	}
	return string(raw)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

// normalizeValue round-trips v through BSON so Go values (int, time.Time,
// []string, structs) compare like stored ones.
func normalizeValue(v interface{}) interface{} {
	raw, err := bson.Marshal(bson.M{"v": v})
	if err != nil {
		return v
	}
	var out bson.M
	if err := bson.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out["v"]
}

// asArray returns v as a slice when it is an array value.
func asArray(v interface{}) ([]interface{}, bool) {
	switch a := v.(type) {
	case bson.A:
		return []interface{}(a), true
	case []interface{}:
		return a, true
	}
	return nil, false
}

// asDocument returns v as a map when it is an embedded document.
func asDocument(v interface{}) (bson.M, bool) {
	switch d := v.(type) {
	case bson.M:
		return d, true
	case map[string]interface{}:
		return bson.M(d), true
	case document.Filter:
		return bson.M(d), true
	case document.Stage:
		return bson.M(d), true
	case bson.D:
		out := make(bson.M, len(d))
		for _, e := range d {
			out[e.Key] = e.Value
		}
		return out, true
	}
	return nil, false
}
