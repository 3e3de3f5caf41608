package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nimburion/docmanager/pkg/config"
	"github.com/nimburion/docmanager/pkg/observability/logger"
	"github.com/nimburion/docmanager/pkg/repository/document"
	"github.com/nimburion/docmanager/pkg/store/memory"
)

const fixtures = `
organizations:
  - _id: 64b7f0c2a1b2c3d4e5f60718
    name: Acme
    type: a
    employees: 10
  - name: Globex
    type: b
people:
  - name: Hank
`

func writeFixtures(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestOpen_Memory(t *testing.T) {
	backend, err := Open(config.StoreConfig{Type: "Memory", Fixtures: writeFixtures(t, fixtures)}, logger.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	if backend.Type != config.StoreTypeMemory {
		t.Errorf("unexpected type %q", backend.Type)
	}
	if err := backend.HealthCheck(ctx); err != nil {
		t.Fatalf("health: %v", err)
	}

	n, err := backend.Records.Count(ctx, "organizations", nil)
	if err != nil || n != 2 {
		t.Fatalf("count = %d (%v), want 2", n, err)
	}
	id, _ := primitive.ObjectIDFromHex("64b7f0c2a1b2c3d4e5f60718")
	found, err := backend.Records.FindBy(ctx, "organizations", document.Filter{"_id": id}, nil)
	if err != nil || len(found) != 1 || found[0].Get("name") != "Acme" {
		t.Errorf("hex _id must become an ObjectID, got %v (%v)", found, err)
	}

	if err := backend.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := backend.HealthCheck(ctx); err == nil {
		t.Error("closed backend must be unhealthy")
	}
}

func TestOpen_Errors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StoreConfig
		wantErr string
	}{
		{name: "unsupported", cfg: config.StoreConfig{Type: "postgres"}, wantErr: "unsupported store.type"},
		{name: "mongodb without url", cfg: config.StoreConfig{Type: "mongodb", Database: "x"}, wantErr: "URL is required"},
		{name: "missing fixtures", cfg: config.StoreConfig{Type: "memory", Fixtures: "/nonexistent/fixtures.yaml"}, wantErr: "read fixtures"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.cfg, logger.Nop())
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadFixtures(t *testing.T) {
	db := memory.NewDatabase(nil)
	n, err := LoadFixtures(db, writeFixtures(t, fixtures))
	if err != nil || n != 3 {
		t.Fatalf("loaded %d (%v), want 3", n, err)
	}

	if _, err := LoadFixtures(db, writeFixtures(t, "organizations: [1, 2")); err == nil {
		t.Error("expected parse error")
	}
}
