package document

import (
	"encoding/json"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Record is a schemaless document. Known capability fields (_id, attributes,
// tags) are typed; everything else lands in Fields.
type Record struct {
	Base         `bson:",inline"`
	AttributeBag `bson:",inline"`
	TagList      `bson:",inline"`
	Fields       map[string]interface{} `bson:",inline"`
}

// NewRecord builds a record from plain fields.
func NewRecord(fields map[string]interface{}) *Record {
	r := &Record{Fields: make(map[string]interface{}, len(fields))}
	for k, v := range fields {
		r.Set(k, v)
	}
	return r
}

// Get returns a top-level field value or nil.
func (r *Record) Get(field string) interface{} {
	switch field {
	case "_id":
		return r.ID
	case "attributes":
		return r.Attrs
	case "tags":
		return r.Values
	}
	return r.Fields[field]
}

// Set stores a top-level field, routing capability fields to their typed holders.
func (r *Record) Set(field string, value interface{}) *Record {
	switch field {
	case "_id":
		if id, ok := value.(primitive.ObjectID); ok {
			r.ID = id
		}
		return r
	case "attributes":
		if m, ok := asGroup(value); ok {
			r.Attrs = m
		}
		return r
	case "tags":
		if tags, ok := value.([]string); ok {
			r.SetTags(tags)
		}
		return r
	}
	if r.Fields == nil {
		r.Fields = make(map[string]interface{})
	}
	r.Fields[field] = value
	return r
}

// MarshalJSON flattens Fields next to the typed fields.
func (r *Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Fields)+3)
	for k, v := range r.Fields {
		out[k] = v
	}
	if r.HasID() {
		out["id"] = r.ID.Hex()
	}
	if len(r.Attrs) > 0 {
		out["attributes"] = r.Attrs
	}
	if len(r.Values) > 0 {
		out["tags"] = r.Values
	}
	return json.Marshal(out)
}
