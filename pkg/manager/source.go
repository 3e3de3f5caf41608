package manager

import "net/url"

// RequestSource gives read-only access to the parameters of the request an
// operation serves. Get returns def when key is absent.
type RequestSource interface {
	Get(key string, def any) any
}

// Values adapts url.Values. A key present with an empty value yields "".
type Values url.Values

// Get returns the first value of key or def.
func (v Values) Get(key string, def any) any {
	vals, ok := v[key]
	if !ok || len(vals) == 0 {
		return def
	}
	return vals[0]
}

// Params adapts a plain map, handy for tests and CLI flags.
type Params map[string]any

// Get returns the value of key or def.
func (p Params) Get(key string, def any) any {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

type noRequest struct{}

func (noRequest) Get(_ string, def any) any { return def }

// NoRequest is a RequestSource without parameters, for calls made outside a request.
var NoRequest RequestSource = noRequest{}
