package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

const testFixtures = `
organizations:
  - name: Acme
    type: a
    employees: 10
  - name: Acme Labs
    type: a
    employees: 25
  - _id: 64b7f0c2a1b2c3d4e5f60718
    name: Globex
    type: b
    employees: 500
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	return writeConfig(t, "")
}

// writeConfig writes the test configuration with extra YAML appended.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	fixtures := filepath.Join(dir, "fixtures.yaml")
	if err := os.WriteFile(fixtures, []byte(testFixtures), 0o600); err != nil {
		t.Fatalf("write fixtures: %v", err)
	}
	cfg := `
service:
  name: docmanager-test
store:
  type: memory
  fixtures: ` + fixtures + `
observability:
  log_level: error
  metrics_enabled: false
collections:
  - name: organizations
    document: Organization
    key: organization
    query_fields: [name]
    accept: [page, query, items_per_page, sort_by, sort_dir]
` + extra
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runWithConfig(t, writeTestConfig(t), args...)
}

func runWithConfig(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand(Options{Name: "docmanager", Out: &out})
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestListCommand(t *testing.T) {
	out, err := run(t, "list", "organizations", "-q", "acme", "--sort-by", "employees", "--order", "desc", "--group", "type")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var resp struct {
		Items []struct {
			Name string `json:"name"`
		} `json:"items"`
		TotalCount int64 `json:"total_count"`
		Groups     []struct {
			Key   interface{} `json:"key"`
			Count int64       `json:"count"`
		} `json:"groups"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if resp.TotalCount != 2 || len(resp.Items) != 2 || resp.Items[0].Name != "Acme Labs" {
		t.Errorf("unexpected page %+v", resp)
	}
	if len(resp.Groups) != 1 || resp.Groups[0].Key != "a" || resp.Groups[0].Count != 2 {
		t.Errorf("unexpected groups %+v", resp.Groups)
	}
}

func TestListCommand_PerPageAndFilters(t *testing.T) {
	out, err := run(t, "list", "organizations", "--per-page", "1", "--filter", "employees[gt]=5", "--filter", "type=a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var resp struct {
		Items        []map[string]interface{} `json:"items"`
		ItemsPerPage int                      `json:"items_per_page"`
		TotalCount   int64                    `json:"total_count"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if resp.TotalCount != 2 || len(resp.Items) != 1 || resp.ItemsPerPage != 1 {
		t.Errorf("unexpected page %+v", resp)
	}
}

func TestListCommand_GroupsFollowFilters(t *testing.T) {
	out, err := run(t, "list", "organizations", "-f", "employees[gte]=25", "--group", "type")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var resp struct {
		TotalCount int64 `json:"total_count"`
		Groups     []struct {
			Key   string `json:"key"`
			Count int64  `json:"count"`
		} `json:"groups"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if resp.TotalCount != 2 || len(resp.Groups) != 2 || resp.Groups[0].Count != 1 || resp.Groups[1].Count != 1 {
		t.Errorf("groups must count the filtered documents, got %+v", resp)
	}
}

func TestCountCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "all", args: nil, want: `"count": 3`},
		{name: "query", args: []string{"-q", "acme"}, want: `"count": 2`},
		{name: "filter", args: []string{"-f", "type[in]=b,c"}, want: `"count": 1`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, append([]string{"count", "organizations"}, tt.args...)...)
			if err != nil {
				t.Fatalf("count: %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("expected %s in %q", tt.want, out)
			}
		})
	}
}

func TestGroupCommand_YAML(t *testing.T) {
	out, err := run(t, "-o", "yaml", "group", "organizations", "type", "--limit", "1")
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	var resp struct {
		Field  string `yaml:"field"`
		Groups []struct {
			Key   string `yaml:"key"`
			Count int    `yaml:"count"`
		} `yaml:"groups"`
	}
	if err := yaml.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if resp.Field != "type" || len(resp.Groups) != 1 || resp.Groups[0].Key != "a" || resp.Groups[0].Count != 2 {
		t.Errorf("unexpected groups %+v", resp)
	}
}

func TestFindCommand(t *testing.T) {
	out, err := run(t, "find", "organizations", "64b7f0c2a1b2c3d4e5f60718")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if doc["name"] != "Globex" || doc["id"] != "64b7f0c2a1b2c3d4e5f60718" {
		t.Errorf("unexpected document %v", doc)
	}
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown collection", args: []string{"count", "invoices"}},
		{name: "bad filter", args: []string{"count", "organizations", "-f", "type"}},
		{name: "unterminated operator", args: []string{"count", "organizations", "-f", "type[in=a"}},
		{name: "unknown operator", args: []string{"count", "organizations", "-f", "type[near]=a"}},
		{name: "negative limit", args: []string{"group", "organizations", "type", "--limit", "-1"}},
		{name: "not found", args: []string{"find", "organizations", "nope"}},
		{name: "bad output", args: []string{"-o", "xml", "count", "organizations"}},
		{name: "missing args", args: []string{"group", "organizations"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestConfigCommands(t *testing.T) {
	out, err := run(t, "config", "validate")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "configuration is valid (1 collections)") {
		t.Errorf("unexpected output %q", out)
	}

	out, err = run(t, "-o", "yaml", "config", "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	var shown map[string]interface{}
	if err := yaml.Unmarshal([]byte(out), &shown); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if _, ok := shown["Store"]; !ok {
		t.Errorf("expected store section in %q", out)
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCommand(Options{Out: &out})
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out.String(), "docmanager") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]outputFormat{"": outputJSON, "JSON": outputJSON, "yml": outputYAML, " yaml ": outputYAML} {
		if got, err := parseOutputFormat(in); err != nil || got != want {
			t.Errorf("parseOutputFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := parseOutputFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}
