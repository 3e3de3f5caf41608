package manager

import (
	"context"
	"testing"

	"github.com/nimburion/docmanager/pkg/observability/logger"
	"github.com/nimburion/docmanager/pkg/repository/document"
	mongostore "github.com/nimburion/docmanager/pkg/store/mongodb"
	"github.com/nimburion/docmanager/pkg/testutil"
)

// TestManager_MongoDBIntegration runs the manager against a real MongoDB.
func TestManager_MongoDBIntegration(t *testing.T) {
	url := testutil.StartMongo(t)
	ctx := context.Background()

	log, err := logger.NewZapLogger(logger.Config{Level: logger.InfoLevel, Format: logger.JSONFormat})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	adapter, err := mongostore.NewAdapter(mongostore.Config{
		URL:      url,
		Database: "docmanager_test",
	}, log)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer adapter.Close()

	exec, err := document.NewMongoDBExecutor(adapter)
	if err != nil {
		t.Fatalf("executor: %v", err)
	}
	store, err := document.NewMongoStore[*organization](exec)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	m, err := New[*organization](testConfig(t), Collaborators[*organization]{Store: store},
		WithLogger(log), WithStoreSystem("mongodb"))
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	orgs := []*organization{
		{Name: "Bob's Burgers", Type: "a", Employees: 12},
		{Name: "Alice", Email: "bobby@example.com", Type: "a", Employees: 4},
		{Name: "Carol", Type: "b", Employees: 30},
	}
	if err := m.Save(ctx, orgs...); err != nil {
		t.Fatalf("save: %v", err)
	}

	t.Run("documents", func(t *testing.T) {
		page, err := m.Documents(ctx, NoRequest, ListOptions{Query: "BOB", SortBy: "employees", SortDir: "desc"})
		if err != nil {
			t.Fatalf("documents: %v", err)
		}
		if page.TotalCount != 2 || len(page.Items) != 2 || page.Items[0].Name != "Bob's Burgers" {
			t.Errorf("unexpected page %+v", page)
		}
	})

	t.Run("count", func(t *testing.T) {
		n, err := m.Count(ctx, NoRequest, CountOptions{Filters: Filters{Gt("employees", 5)}})
		if err != nil || n != 2 {
			t.Errorf("count = %d (%v), want 2", n, err)
		}
	})

	t.Run("count by group", func(t *testing.T) {
		results, err := m.CountByGroup(ctx, NoRequest, "type", GroupOptions{})
		if err != nil {
			t.Fatalf("count by group: %v", err)
		}
		counts := GroupCounts(results)
		if counts["a"] != 2 || counts["b"] != 1 {
			t.Errorf("unexpected counts %v", counts)
		}
	})

	t.Run("find and remove", func(t *testing.T) {
		got, err := m.Find(ctx, orgs[2].ID.Hex())
		if err != nil || got.Name != "Carol" {
			t.Fatalf("find: %+v (%v)", got, err)
		}
		removed, err := m.Remove(ctx, got)
		if err != nil || !removed {
			t.Fatalf("remove: %v (%v)", removed, err)
		}
		if n, _ := m.Count(ctx, NoRequest, CountOptions{}); n != 2 {
			t.Errorf("expected 2 documents left, got %d", n)
		}
	})
}
