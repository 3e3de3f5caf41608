package store

import (
	"fmt"
	"os"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"gopkg.in/yaml.v3"

	"github.com/nimburion/docmanager/pkg/store/memory"
)

// LoadFixtures inserts the documents of a YAML (or JSON) file shaped as
//
//	organizations:
//	  - name: Acme
//	    type: a
//
// into db and returns how many were inserted. A 24 character hex _id becomes
// an ObjectID.
func LoadFixtures(db *memory.Database, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read fixtures %s: %w", path, err)
	}
	var fixtures map[string][]map[string]interface{}
	if err := yaml.Unmarshal(raw, &fixtures); err != nil {
		return 0, fmt.Errorf("parse fixtures %s: %w", path, err)
	}

	total := 0
	for collection, docs := range fixtures {
		batch := make([]interface{}, 0, len(docs))
		for _, d := range docs {
			if hex, ok := d["_id"].(string); ok {
				if oid, err := primitive.ObjectIDFromHex(hex); err == nil {
					d["_id"] = oid
				}
			}
			batch = append(batch, d)
		}
		if err := db.Insert(collection, batch...); err != nil {
			return total, fmt.Errorf("seed %s: %w", collection, err)
		}
		total += len(batch)
	}
	return total, nil
}
