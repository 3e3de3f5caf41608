package document

import (
	"context"
	"fmt"

	mongostore "github.com/nimburion/docmanager/pkg/store/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoExecutor defines the minimal execution contract MongoDB-backed stores need.
type MongoExecutor interface {
	Find(ctx context.Context, collection string, filter interface{}, opts *options.FindOptions, results interface{}) error
	CountDocuments(ctx context.Context, collection string, filter interface{}) (int64, error)
	Aggregate(ctx context.Context, collection string, pipeline interface{}, results interface{}) error
	BulkWrite(ctx context.Context, collection string, models []mongo.WriteModel) (*mongo.BulkWriteResult, error)
}

// NewMongoDBExecutor validates and returns the store/mongodb adapter as a MongoExecutor.
func NewMongoDBExecutor(adapter *mongostore.Adapter) (MongoExecutor, error) {
	if adapter == nil {
		return nil, fmt.Errorf("mongodb adapter is required")
	}
	return adapter, nil
}

// toBSONFilter converts a Filter to the driver representation, never nil.
func toBSONFilter(f Filter) bson.M {
	if f == nil {
		return bson.M{}
	}
	return bson.M(f)
}

// toBSONSort keeps sort precedence by using an ordered document.
func toBSONSort(sorts []Sort) bson.D {
	out := make(bson.D, 0, len(sorts))
	for _, s := range sorts {
		out = append(out, bson.E{Key: s.Field, Value: s.Order.Direction()})
	}
	return out
}

func toBSONPipeline(p Pipeline) []bson.M {
	out := make([]bson.M, 0, len(p))
	for _, stage := range p {
		out = append(out, bson.M(stage))
	}
	return out
}
