package config

import (
	"fmt"
	"strings"

	"github.com/nimburion/docmanager/pkg/manager"
)

// CollectionConfig describes one collection exposed by the service.
type CollectionConfig struct {
	Name     string `mapstructure:"name"`
	Document string `mapstructure:"document"`
	Key      string `mapstructure:"key"`
	// Accept lists the parameters read from requests. Empty keeps page and query.
	Accept       []string          `mapstructure:"accept"`
	Mapping      map[string]string `mapstructure:"mapping"`
	ItemsPerPage int               `mapstructure:"items_per_page"`
	Page         int               `mapstructure:"page"`
	SortBy       string            `mapstructure:"sort_by"`
	SortDir      string            `mapstructure:"sort_dir"`
	QueryFields  []string          `mapstructure:"query_fields"`
	Resolution   string            `mapstructure:"resolution"` // truthy, explicit
	RawSearch    bool              `mapstructure:"raw_search"`
}

var managerParams = []string{
	manager.ParamQuery,
	manager.ParamPage,
	manager.ParamItemsPerPage,
	manager.ParamSortBy,
	manager.ParamSortDir,
}

// canonicalParam matches a configured parameter name against the manager
// parameters ignoring case and underscores, since viper lowercases map keys.
func canonicalParam(name string) (string, bool) {
	folded := strings.ReplaceAll(strings.TrimSpace(name), "_", "")
	for _, p := range managerParams {
		if strings.EqualFold(folded, p) {
			return p, true
		}
	}
	return "", false
}

// DocumentName returns Document, or the collection name when unset.
func (c CollectionConfig) DocumentName() string {
	if c.Document != "" {
		return c.Document
	}
	return c.Name
}

// ManagerConfig builds the manager configuration for this collection.
func (c CollectionConfig) ManagerConfig() (manager.Config, error) {
	b := manager.NewBuilder().
		Document(c.DocumentName()).
		Collection(c.Name).
		Key(c.Key)

	if len(c.Accept) > 0 {
		accepted := make([]string, 0, len(c.Accept))
		for _, raw := range c.Accept {
			p, ok := canonicalParam(raw)
			if !ok {
				return manager.Config{}, fmt.Errorf("collection %s: unknown accepted parameter %q", c.Name, raw)
			}
			accepted = append(accepted, p)
		}
		b.AcceptFromRequest(accepted...)
	}
	for raw, key := range c.Mapping {
		p, ok := canonicalParam(raw)
		if !ok {
			return manager.Config{}, fmt.Errorf("collection %s: unknown mapped parameter %q", c.Name, raw)
		}
		b.MapParameter(p, key)
	}
	if c.ItemsPerPage != 0 {
		b.ItemsPerPage(c.ItemsPerPage)
	}
	if c.Page != 0 {
		b.Page(c.Page)
	}
	if c.SortBy != "" {
		b.SortBy(c.SortBy)
	}
	if c.SortDir != "" {
		b.SortDir(c.SortDir)
	}
	if len(c.QueryFields) > 0 {
		b.QueryFields(c.QueryFields...)
	}

	mode, err := manager.ParseResolutionMode(c.Resolution)
	if err != nil {
		return manager.Config{}, fmt.Errorf("collection %s: %w", c.Name, err)
	}
	b.Mode(mode)
	if c.RawSearch {
		b.RawSearchPatterns()
	}

	cfg, err := b.Build()
	if err != nil {
		return manager.Config{}, fmt.Errorf("collection %s: %w", c.Name, err)
	}
	return cfg, nil
}
