package manager

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Parameter names a manager can resolve.
const (
	ParamQuery        = "query"
	ParamPage         = "page"
	ParamItemsPerPage = "itemsPerPage"
	ParamSortBy       = "sortBy"
	ParamSortDir      = "sortDir"
)

var knownParams = []string{ParamQuery, ParamPage, ParamItemsPerPage, ParamSortBy, ParamSortDir}

// ResolutionMode decides when an explicit value overrides request and default.
type ResolutionMode int

const (
	// ResolveTruthy treats zero values (0, "", false, nil, empty collections)
	// as not provided, so an explicit 0 falls through to the request or the
	// default. This is the historical behavior callers may depend on.
	ResolveTruthy ResolutionMode = iota
	// ResolveExplicit treats any non-nil value as provided.
	ResolveExplicit
)

// String returns the configuration name of the mode.
func (m ResolutionMode) String() string {
	switch m {
	case ResolveTruthy:
		return "truthy"
	case ResolveExplicit:
		return "explicit"
	}
	return fmt.Sprintf("ResolutionMode(%d)", int(m))
}

// ParseResolutionMode parses "truthy" or "explicit"; empty means truthy.
func ParseResolutionMode(s string) (ResolutionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "truthy":
		return ResolveTruthy, nil
	case "explicit":
		return ResolveExplicit, nil
	}
	return 0, configErrorf("unknown resolution mode %q", s)
}

// Resolver computes the effective value of a parameter from an explicit
// override, the request and a static default, in that order.
type Resolver struct {
	cfg Config
}

// Resolve returns explicit when provided, else the request value when param
// is accepted from the request, else the default.
func (r Resolver) Resolve(param string, explicit any, src RequestSource) any {
	if r.provided(explicit) {
		return deref(explicit)
	}
	def := r.cfg.defaultFor(param)
	if _, ok := r.cfg.accepted[param]; ok && src != nil {
		return src.Get(r.cfg.mapping[param], def)
	}
	return def
}

// ResolveInt resolves param and coerces it to an int. Values that cannot be
// coerced fall back to the default.
func (r Resolver) ResolveInt(param string, explicit any, src RequestSource) int {
	v := r.Resolve(param, explicit, src)
	if n, ok := toInt(v); ok {
		return n
	}
	n, _ := toInt(r.cfg.defaultFor(param))
	return n
}

// ResolveString resolves param as a string; nil and false become "".
func (r Resolver) ResolveString(param string, explicit any, src RequestSource) string {
	return toString(r.Resolve(param, explicit, src))
}

func (r Resolver) provided(v any) bool {
	if r.cfg.mode == ResolveExplicit {
		return !isNil(v)
	}
	return truthy(v)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func deref(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		return rv.Elem().Interface()
	}
	return v
}

// truthy mirrors loose truthiness: nil, false, zero numbers, "" and empty
// collections are false. Pointers are judged by what they point to.
func truthy(v any) bool {
	if isNil(v) {
		return false
	}
	rv := reflect.ValueOf(deref(v))
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	}
	return true
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	}
	return 0, false
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "1"
		}
		return ""
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}
