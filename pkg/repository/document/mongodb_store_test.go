package document

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongostore "github.com/nimburion/docmanager/pkg/store/mongodb"
)

type fakeExecutor struct {
	docs     []bson.M
	rows     []bson.M
	count    int64
	err      error
	filter   interface{}
	findOpts *options.FindOptions
	pipeline interface{}
	models   []mongo.WriteModel
}

func (f *fakeExecutor) Find(_ context.Context, _ string, filter interface{}, opts *options.FindOptions, results interface{}) error {
	f.filter, f.findOpts = filter, opts
	if f.err != nil {
		return f.err
	}
	return decodeInto(f.docs, results)
}

func (f *fakeExecutor) CountDocuments(_ context.Context, _ string, filter interface{}) (int64, error) {
	f.filter = filter
	return f.count, f.err
}

func (f *fakeExecutor) Aggregate(_ context.Context, _ string, pipeline interface{}, results interface{}) error {
	f.pipeline = pipeline
	if f.err != nil {
		return f.err
	}
	return decodeInto(f.rows, results)
}

func (f *fakeExecutor) BulkWrite(_ context.Context, _ string, models []mongo.WriteModel) (*mongo.BulkWriteResult, error) {
	f.models = append(f.models, models...)
	if f.err != nil {
		return nil, f.err
	}
	return &mongo.BulkWriteResult{}, nil
}

// decodeInto appends each doc to the slice results points to, going through
// BSON the way the driver cursor does.
func decodeInto(docs []bson.M, results interface{}) error {
	out := reflect.ValueOf(results).Elem()
	for _, d := range docs {
		raw, err := bson.Marshal(d)
		if err != nil {
			return err
		}
		elem := reflect.New(out.Type().Elem())
		if err := bson.Unmarshal(raw, elem.Interface()); err != nil {
			return err
		}
		out.Set(reflect.Append(out, elem.Elem()))
	}
	return nil
}

func TestNewMongoDBExecutor_Validation(t *testing.T) {
	if _, err := NewMongoDBExecutor(nil); err == nil {
		t.Fatal("expected error for nil adapter")
	}
	exec, err := NewMongoDBExecutor(&mongostore.Adapter{})
	if err != nil || exec == nil {
		t.Fatalf("unexpected result %v, %v", exec, err)
	}
	if _, err := NewMongoStore[*Record](nil); err == nil {
		t.Fatal("expected error for nil executor")
	}
}

func TestMongoStore_Find(t *testing.T) {
	id := primitive.NewObjectID()
	exec := &fakeExecutor{docs: []bson.M{{"_id": id, "name": "Acme", "tags": bson.A{"vip"}}}}
	store, _ := NewMongoStore[*Record](exec)

	found, err := store.Find(context.Background(), "organizations", QueryOptions{
		Filter:     Filter{"name": "Acme"},
		Sort:       []Sort{{Field: "name", Order: SortDesc}, {Field: "_id", Order: SortAsc}},
		Pagination: Pagination{Skip: 20, Limit: 10},
	})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(found) != 1 || found[0].ID != id || found[0].Get("name") != "Acme" || !found[0].HasTag("vip") {
		t.Fatalf("unexpected documents %+v", found)
	}
	if !reflect.DeepEqual(exec.filter, bson.M{"name": "Acme"}) {
		t.Errorf("unexpected filter %v", exec.filter)
	}
	wantSort := bson.D{{Key: "name", Value: -1}, {Key: "_id", Value: 1}}
	if !reflect.DeepEqual(exec.findOpts.Sort, wantSort) {
		t.Errorf("unexpected sort %v", exec.findOpts.Sort)
	}
	if *exec.findOpts.Skip != 20 || *exec.findOpts.Limit != 10 {
		t.Errorf("unexpected pagination skip=%d limit=%d", *exec.findOpts.Skip, *exec.findOpts.Limit)
	}
}

func TestMongoStore_EmptyResults(t *testing.T) {
	exec := &fakeExecutor{}
	store, _ := NewMongoStore[*Record](exec)

	found, err := store.Find(context.Background(), "c", QueryOptions{})
	if err != nil || found == nil || len(found) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v (%v)", found, err)
	}
	if !reflect.DeepEqual(exec.filter, bson.M{}) {
		t.Errorf("nil filter must become an empty document, got %#v", exec.filter)
	}
	if exec.findOpts.Limit != nil || exec.findOpts.Skip != nil || exec.findOpts.Sort != nil {
		t.Error("unset options must not be sent")
	}

	_, ok, err := store.FindOneBy(context.Background(), "c", Filter{"x": 1}, nil)
	if ok || err != nil {
		t.Errorf("expected no match, got ok=%v err=%v", ok, err)
	}
	if *exec.findOpts.Limit != 1 {
		t.Errorf("FindOneBy must limit to 1, got %d", *exec.findOpts.Limit)
	}
}

func TestMongoStore_CountAndAggregate(t *testing.T) {
	exec := &fakeExecutor{count: 42, rows: []bson.M{{"_id": "a", "count": int32(2)}}}
	store, _ := NewMongoStore[*Record](exec)
	ctx := context.Background()

	n, err := store.Count(ctx, "c", Filter{"type": "a"})
	if err != nil || n != 42 {
		t.Fatalf("count: %d, %v", n, err)
	}

	pipeline := Pipeline{{"$match": Filter{"type": "a"}}, {"$group": bson.M{"_id": "$type"}}}
	rows, err := store.Aggregate(ctx, "c", pipeline)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(rows) != 1 || rows[0]["_id"] != "a" || rows[0]["count"] != int32(2) {
		t.Errorf("unexpected rows %v", rows)
	}
	stages, ok := exec.pipeline.([]bson.M)
	if !ok || len(stages) != 2 || stages[0]["$match"] == nil {
		t.Errorf("unexpected pipeline %#v", exec.pipeline)
	}
}

func TestMongoSession(t *testing.T) {
	exec := &fakeExecutor{}
	store, _ := NewMongoStore[*Record](exec)
	session := store.NewSession("organizations").(*MongoSession[*Record])

	fresh := NewRecord(map[string]interface{}{"name": "new"})
	existing := NewRecord(map[string]interface{}{"name": "old"})
	existing.AssignID(primitive.NewObjectID())
	unsaved := NewRecord(nil)

	session.Persist(fresh)
	session.Persist(existing)
	session.Remove(existing)
	session.Remove(unsaved)

	if fresh.ID.IsZero() {
		t.Fatal("persist must assign an id to new documents")
	}
	if session.Pending() != 3 {
		t.Fatalf("expected 3 staged writes, got %d", session.Pending())
	}
	if err := session.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if session.Pending() != 0 {
		t.Error("flush must clear staged writes")
	}

	if _, ok := exec.models[0].(*mongo.InsertOneModel); !ok {
		t.Errorf("expected insert, got %T", exec.models[0])
	}
	replace, ok := exec.models[1].(*mongo.ReplaceOneModel)
	if !ok || replace.Upsert == nil || !*replace.Upsert {
		t.Errorf("expected upserting replace, got %#v", exec.models[1])
	}
	if _, ok := exec.models[2].(*mongo.DeleteOneModel); !ok {
		t.Errorf("expected delete, got %T", exec.models[2])
	}

	if err := session.Flush(context.Background()); err != nil || len(exec.models) != 3 {
		t.Error("flushing nothing must not write")
	}
}

func TestMongoSession_FlushError(t *testing.T) {
	cause := errors.New("write conflict")
	store, _ := NewMongoStore[*Record](&fakeExecutor{err: cause})
	session := store.NewSession("organizations")
	session.Persist(NewRecord(nil))

	if err := session.Flush(context.Background()); !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}
