package manager

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nimburion/docmanager/pkg/repository/document"
)

// TextPredicate matches documents where any of Fields contains Term,
// ignoring case. It renders either into a Query or into a $match document.
type TextPredicate struct {
	Fields []string
	Term   string
	// Raw uses Term as a regular expression instead of a literal substring.
	Raw bool
}

// NewTextPredicate builds a predicate honoring the configured escaping.
func (c Config) NewTextPredicate(term string) TextPredicate {
	return TextPredicate{Fields: c.QueryFields(), Term: term, Raw: c.rawSearch}
}

// Empty reports whether the predicate matches everything.
func (p TextPredicate) Empty() bool {
	return strings.TrimSpace(p.Term) == ""
}

// Validate fails when a term is given but there is nothing to search.
func (p TextPredicate) Validate() error {
	if p.Empty() {
		return nil
	}
	if len(p.Fields) == 0 {
		return configErrorf("free-text search requires query fields")
	}
	if p.Raw {
		if _, err := regexp.Compile("(?i)" + p.Term); err != nil {
			return configErrorf("invalid search pattern: %v", err)
		}
	}
	return nil
}

// Pattern returns the regular expression matched against each field.
func (p TextPredicate) Pattern() string {
	if p.Raw {
		return p.Term
	}
	return regexp.QuoteMeta(p.Term)
}

// uniqueFields returns Fields without repeats, in first-seen order.
func (p TextPredicate) uniqueFields() []string {
	seen := make(map[string]struct{}, len(p.Fields))
	out := make([]string, 0, len(p.Fields))
	for _, f := range p.Fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Alternatives returns one condition per distinct field.
func (p TextPredicate) Alternatives() []document.Filter {
	if p.Empty() {
		return nil
	}
	pattern := p.Pattern()
	out := make([]document.Filter, 0, len(p.Fields))
	for _, f := range p.uniqueFields() {
		out = append(out, document.Filter{f: primitive.Regex{Pattern: pattern, Options: "i"}})
	}
	return out
}

// ApplyTo adds the predicate to q's OR group.
func (p TextPredicate) ApplyTo(q *Query) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Empty() {
		return nil
	}
	q.AddOr(p.Alternatives()...)
	return nil
}

// MatchDocument renders the predicate for a $match stage. It returns nil for
// an empty term.
func (p TextPredicate) MatchDocument() (document.Filter, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Empty() {
		return nil, nil
	}
	pattern := p.Pattern()
	alts := make([]interface{}, 0, len(p.Fields))
	for _, f := range p.uniqueFields() {
		alts = append(alts, document.Filter{f: document.Filter{"$regex": pattern, "$options": "i"}})
	}
	return document.Filter{"$or": alts}, nil
}
