package manager

import (
	"slices"
	"sort"
	"strings"
)

// Config is the immutable configuration of a Manager. Build one with a Builder.
type Config struct {
	document     string
	collection   string
	key          string
	accepted     map[string]struct{}
	mapping      map[string]string
	itemsPerPage int
	page         int
	sortBy       string
	sortDir      string
	queryFields  []string
	mode         ResolutionMode
	rawSearch    bool
}

// Document returns the managed document type name.
func (c Config) Document() string { return c.document }

// Collection returns the store collection, defaulting to the document name.
func (c Config) Collection() string {
	if c.collection != "" {
		return c.collection
	}
	return c.document
}

// Key returns the event namespace key.
func (c Config) Key() string { return c.key }

// Accepts reports whether param may be read from the request.
func (c Config) Accepts(param string) bool {
	_, ok := c.accepted[param]
	return ok
}

// Accepted returns the accepted parameters, sorted.
func (c Config) Accepted() []string {
	out := make([]string, 0, len(c.accepted))
	for p := range c.accepted {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// SourceKey returns the request key param is read from.
func (c Config) SourceKey(param string) string { return c.mapping[param] }

// ItemsPerPage returns the default page size.
func (c Config) ItemsPerPage() int { return c.itemsPerPage }

// Page returns the default page number.
func (c Config) Page() int { return c.page }

// SortBy returns the default sort field.
func (c Config) SortBy() string { return c.sortBy }

// SortDir returns the default sort direction.
func (c Config) SortDir() string { return c.sortDir }

// Mode returns how explicit overrides are recognized.
func (c Config) Mode() ResolutionMode { return c.mode }

// RawSearchPatterns reports whether free-text terms are used unescaped.
func (c Config) RawSearchPatterns() bool { return c.rawSearch }

// QueryFields returns a copy of the free-text search fields.
func (c Config) QueryFields() []string { return slices.Clone(c.queryFields) }

// Resolver returns a parameter resolver bound to c.
func (c Config) Resolver() Resolver { return Resolver{cfg: c} }

func (c Config) defaultFor(param string) any {
	switch param {
	case ParamItemsPerPage:
		return c.itemsPerPage
	case ParamPage:
		return c.page
	case ParamSortBy:
		return c.sortBy
	case ParamSortDir:
		return c.sortDir
	case ParamQuery:
		return ""
	}
	return nil
}

// ToBuilder returns a Builder seeded with c, for deriving a variant.
func (c Config) ToBuilder() *Builder {
	b := &Builder{cfg: c}
	b.cfg.accepted = make(map[string]struct{}, len(c.accepted))
	for p := range c.accepted {
		b.cfg.accepted[p] = struct{}{}
	}
	b.cfg.mapping = make(map[string]string, len(c.mapping))
	for p, k := range c.mapping {
		b.cfg.mapping[p] = k
	}
	b.cfg.queryFields = slices.Clone(c.queryFields)
	return b
}

// Builder assembles a Config fluently. A Builder is not safe for concurrent use;
// the Config it builds is.
type Builder struct {
	cfg Config
}

// NewBuilder returns a Builder with the default accepted set (page, query),
// the default request mapping and ten items per page.
func NewBuilder() *Builder {
	return &Builder{cfg: Config{
		accepted: map[string]struct{}{
			ParamPage:  {},
			ParamQuery: {},
		},
		mapping: map[string]string{
			ParamItemsPerPage: "per_page",
			ParamPage:         "page",
			ParamQuery:        "q",
			ParamSortBy:       "sort_by",
			ParamSortDir:      "order",
		},
		itemsPerPage: 10,
		page:         1,
	}}
}

// Document sets the managed document type name.
func (b *Builder) Document(name string) *Builder {
	b.cfg.document = name
	return b
}

// Collection sets the store collection. It defaults to the document name.
func (b *Builder) Collection(name string) *Builder {
	b.cfg.collection = name
	return b
}

// Key sets the event namespace key used by EventName and Dispatch.
func (b *Builder) Key(key string) *Builder {
	b.cfg.key = key
	return b
}

// AcceptFromRequest replaces the set of parameters read from the request.
func (b *Builder) AcceptFromRequest(params ...string) *Builder {
	b.cfg.accepted = make(map[string]struct{}, len(params))
	for _, p := range params {
		b.cfg.accepted[p] = struct{}{}
	}
	return b
}

// MapParameter sets the request key param is read from.
func (b *Builder) MapParameter(param, sourceKey string) *Builder {
	b.cfg.mapping[param] = sourceKey
	return b
}

// ItemsPerPage sets the default page size.
func (b *Builder) ItemsPerPage(n int) *Builder {
	b.cfg.itemsPerPage = n
	return b
}

// Page sets the default page number.
func (b *Builder) Page(n int) *Builder {
	b.cfg.page = n
	return b
}

// SortBy sets the default sort field.
func (b *Builder) SortBy(field string) *Builder {
	b.cfg.sortBy = field
	return b
}

// SortDir sets the default sort direction, asc or desc.
func (b *Builder) SortDir(dir string) *Builder {
	b.cfg.sortDir = dir
	return b
}

// QueryFields sets the fields searched by the free-text term.
func (b *Builder) QueryFields(fields ...string) *Builder {
	b.cfg.queryFields = slices.Clone(fields)
	return b
}

// Mode selects how explicit overrides are recognized.
func (b *Builder) Mode(m ResolutionMode) *Builder {
	b.cfg.mode = m
	return b
}

// ExplicitOverrides is shorthand for Mode(ResolveExplicit).
func (b *Builder) ExplicitOverrides() *Builder {
	return b.Mode(ResolveExplicit)
}

// RawSearchPatterns disables escaping of free-text terms, so a term is used
// as a regular expression as given.
func (b *Builder) RawSearchPatterns() *Builder {
	b.cfg.rawSearch = true
	return b
}

// Build validates and returns the configuration. Later changes to b do not
// affect the returned Config.
func (b *Builder) Build() (Config, error) {
	c := b.cfg
	if strings.TrimSpace(c.document) == "" {
		return Config{}, configErrorf("document type is required")
	}
	for p := range c.accepted {
		if !slices.Contains(knownParams, p) {
			return Config{}, configErrorf("unknown parameter %q", p)
		}
		if c.mapping[p] == "" {
			return Config{}, configErrorf("accepted parameter %q has no request mapping", p)
		}
	}
	if c.itemsPerPage <= 0 {
		return Config{}, configErrorf("items per page must be positive, got %d", c.itemsPerPage)
	}
	if c.page < 1 {
		return Config{}, configErrorf("page must be at least 1, got %d", c.page)
	}
	if c.mode != ResolveTruthy && c.mode != ResolveExplicit {
		return Config{}, configErrorf("unknown resolution mode %d", int(c.mode))
	}
	return b.snapshot(), nil
}

// MustBuild is like Build but panics on error. Meant for static configuration.
func (b *Builder) MustBuild() Config {
	c, err := b.Build()
	if err != nil {
		panic(err)
	}
	return c
}

func (b *Builder) snapshot() Config {
	return b.cfg.ToBuilder().cfg
}
