package manager

import (
	"errors"
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nimburion/docmanager/pkg/repository/document"
)

func TestTextPredicate_Renderers(t *testing.T) {
	p := TextPredicate{Fields: []string{"name", "email"}, Term: "a+b"}

	q := NewQuery()
	if err := p.ApplyTo(q); err != nil {
		t.Fatalf("apply: %v", err)
	}
	filter, err := q.Filter()
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	wantQuery := document.Filter{"$or": []interface{}{
		document.Filter{"name": primitive.Regex{Pattern: `a\+b`, Options: "i"}},
		document.Filter{"email": primitive.Regex{Pattern: `a\+b`, Options: "i"}},
	}}
	if !reflect.DeepEqual(filter, wantQuery) {
		t.Errorf("query renderer: expected %#v, got %#v", wantQuery, filter)
	}

	match, err := p.MatchDocument()
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	wantMatch := document.Filter{"$or": []interface{}{
		document.Filter{"name": document.Filter{"$regex": `a\+b`, "$options": "i"}},
		document.Filter{"email": document.Filter{"$regex": `a\+b`, "$options": "i"}},
	}}
	if !reflect.DeepEqual(match, wantMatch) {
		t.Errorf("match renderer: expected %#v, got %#v", wantMatch, match)
	}
}

func TestTextPredicate_Empty(t *testing.T) {
	p := TextPredicate{Term: "  "}

	q := NewQuery()
	if err := p.ApplyTo(q); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if f, _ := q.Filter(); len(f) != 0 {
		t.Errorf("empty term must not filter, got %v", f)
	}
	if m, err := p.MatchDocument(); err != nil || m != nil {
		t.Errorf("expected nil match, got %v (%v)", m, err)
	}
}

func TestTextPredicate_Validate(t *testing.T) {
	if err := (TextPredicate{Term: "acme"}).Validate(); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected ErrConfiguration without fields, got %v", err)
	}
	if err := (TextPredicate{Fields: []string{"name"}, Term: "(", Raw: true}).Validate(); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for bad pattern, got %v", err)
	}
	if err := (TextPredicate{Fields: []string{"name"}, Term: "("}).Validate(); err != nil {
		t.Errorf("escaped term must be valid, got %v", err)
	}
}

func TestConfig_NewTextPredicate(t *testing.T) {
	cfg := NewBuilder().Document("d").QueryFields("name").RawSearchPatterns().MustBuild()

	p := cfg.NewTextPredicate("^ac")
	if !p.Raw || p.Pattern() != "^ac" || !reflect.DeepEqual(p.Fields, []string{"name"}) {
		t.Errorf("unexpected predicate %+v", p)
	}
}

func TestTextPredicate_RepeatedFields(t *testing.T) {
	p := TextPredicate{Fields: []string{"name", "email", "name"}, Term: "acme"}

	if alts := p.Alternatives(); len(alts) != 2 {
		t.Errorf("expected one alternative per distinct field, got %v", alts)
	}
	match, err := p.MatchDocument()
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	or, ok := match["$or"].([]interface{})
	if !ok || len(or) != 2 {
		t.Fatalf("expected two $or branches, got %#v", match)
	}
	if _, ok := or[0].(document.Filter)["name"]; !ok {
		t.Errorf("first-seen order must be kept, got %#v", or)
	}
}
