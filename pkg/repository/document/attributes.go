package document

import "go.mongodb.org/mongo-driver/bson/primitive"

// AttributeBag is a free-form attribute hash a document can embed, e.g.
//
//	{"intercom": {"id": "23"}}
//
// Reads of absent keys return nil, never an error.
type AttributeBag struct {
	Attrs map[string]interface{} `json:"attributes,omitempty" bson:"attributes,omitempty"`
}

// Attributes returns the whole bag.
func (a *AttributeBag) Attributes() map[string]interface{} {
	return a.Attrs
}

// SetAttributes replaces the whole bag.
func (a *AttributeBag) SetAttributes(attrs map[string]interface{}) *AttributeBag {
	a.Attrs = attrs
	return a
}

// Attribute returns the value stored under key or nil.
func (a *AttributeBag) Attribute(key string) interface{} {
	if a.Attrs == nil {
		return nil
	}
	return a.Attrs[key]
}

// SetAttribute stores value under key.
func (a *AttributeBag) SetAttribute(key string, value interface{}) *AttributeBag {
	if a.Attrs == nil {
		a.Attrs = make(map[string]interface{})
	}
	a.Attrs[key] = value
	return a
}

// AttributeInGroup returns attributes[group][key] or nil.
func (a *AttributeBag) AttributeInGroup(group, key string) interface{} {
	g, ok := asGroup(a.Attribute(group))
	if !ok {
		return nil
	}
	return g[key]
}

// SetAttributeInGroup stores value under attributes[group][key]. A scalar
// already stored under group is replaced by a new group.
func (a *AttributeBag) SetAttributeInGroup(group, key string, value interface{}) *AttributeBag {
	g, ok := asGroup(a.Attribute(group))
	if !ok {
		g = make(map[string]interface{})
	}
	g[key] = value
	return a.SetAttribute(group, g)
}

// asGroup accepts the map shapes a group takes after a round trip through bson or json.
func asGroup(v interface{}) (map[string]interface{}, bool) {
	switch g := v.(type) {
	case map[string]interface{}:
		return g, true
	case Filter:
		return map[string]interface{}(g), true
	}
	if m, ok := toStringMap(v); ok {
		return m, true
	}
	return nil, false
}

func toStringMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case primitive.M:
		return map[string]interface{}(m), true
	case primitive.D:
		return m.Map(), true
	}
	return nil, false
}
