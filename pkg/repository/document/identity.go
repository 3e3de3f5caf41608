package document

import "go.mongodb.org/mongo-driver/bson/primitive"

// Identifiable is implemented by documents carrying a store-native identifier.
// Documents are handled by pointer, so *MyDoc satisfies it through an embedded Base.
type Identifiable interface {
	DocumentID() primitive.ObjectID
	AssignID(id primitive.ObjectID)
}

// Base carries the document identifier. Embed it by value.
type Base struct {
	ID primitive.ObjectID `json:"id" bson:"_id,omitempty"`
}

// DocumentID returns the document identifier, zero when not yet persisted.
func (b *Base) DocumentID() primitive.ObjectID {
	return b.ID
}

// AssignID sets the document identifier.
func (b *Base) AssignID(id primitive.ObjectID) {
	b.ID = id
}

// HasID reports whether the document has been given an identifier.
func (b *Base) HasID() bool {
	return !b.ID.IsZero()
}
