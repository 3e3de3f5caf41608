package store

import (
	"fmt"
	"strings"

	"github.com/nimburion/docmanager/pkg/config"
	"github.com/nimburion/docmanager/pkg/observability/logger"
	"github.com/nimburion/docmanager/pkg/repository/document"
	"github.com/nimburion/docmanager/pkg/store/memory"
	"github.com/nimburion/docmanager/pkg/store/mongodb"
)

// Open selects and initializes the store backend from config.
func Open(cfg config.StoreConfig, log logger.Logger) (*Backend, error) {
	storeType := strings.ToLower(strings.TrimSpace(cfg.Type))
	switch storeType {
	case config.StoreTypeMongoDB:
		adapter, err := mongodb.NewAdapter(mongodb.Config{
			URL:              cfg.URL,
			Database:         cfg.Database,
			ConnectTimeout:   cfg.ConnectTimeout,
			OperationTimeout: cfg.OperationTimeout,
			MaxPoolSize:      cfg.MaxPoolSize,
		}, log)
		if err != nil {
			return nil, err
		}
		exec, err := document.NewMongoDBExecutor(adapter)
		if err != nil {
			_ = adapter.Close()
			return nil, err
		}
		records, err := document.NewMongoStore[*document.Record](exec)
		if err != nil {
			_ = adapter.Close()
			return nil, err
		}
		return &Backend{Type: storeType, Records: records, adapter: adapter}, nil

	case config.StoreTypeMemory:
		db := memory.NewDatabase(log)
		if cfg.Fixtures != "" {
			n, err := LoadFixtures(db, cfg.Fixtures)
			if err != nil {
				return nil, err
			}
			log.Info("memory document store seeded", "fixtures", cfg.Fixtures, "documents", n)
		}
		return &Backend{Type: storeType, Records: memory.NewStore[*document.Record](db), adapter: db}, nil

	default:
		return nil, fmt.Errorf("unsupported store.type %q (supported: mongodb, memory)", cfg.Type)
	}
}
