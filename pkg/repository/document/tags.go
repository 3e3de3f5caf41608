package document

// TagList is an ordered list of unique tags a document can embed.
type TagList struct {
	Values []string `json:"tags,omitempty" bson:"tags,omitempty"`
}

// Tags returns the tags in insertion order.
func (t *TagList) Tags() []string {
	return t.Values
}

// SetTags replaces the tags, dropping duplicates while keeping first occurrences.
func (t *TagList) SetTags(tags []string) *TagList {
	t.Values = nil
	for _, tag := range tags {
		t.AddTag(tag)
	}
	return t
}

// HasTag reports whether tag is present.
func (t *TagList) HasTag(tag string) bool {
	return t.indexOf(tag) >= 0
}

// AddTag appends tag unless already present.
func (t *TagList) AddTag(tag string) *TagList {
	if !t.HasTag(tag) {
		t.Values = append(t.Values, tag)
	}
	return t
}

// RemoveTag deletes tag if present. Later tags shift left.
func (t *TagList) RemoveTag(tag string) *TagList {
	if i := t.indexOf(tag); i >= 0 {
		t.Values = append(t.Values[:i], t.Values[i+1:]...)
	}
	return t
}

func (t *TagList) indexOf(tag string) int {
	for i, v := range t.Values {
		if v == tag {
			return i
		}
	}
	return -1
}
