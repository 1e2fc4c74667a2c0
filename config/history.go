package config

import (
	"context"
	"fmt"

	"github.com/xraph/clearing/history"
	boltstore "github.com/xraph/clearing/history/bolt"
	"github.com/xraph/clearing/history/memory"
	mongostore "github.com/xraph/clearing/history/mongo"
	sqlitestore "github.com/xraph/clearing/history/sqlite"
	"github.com/xraph/clearing/id"
	"github.com/xraph/clearing/partition"
)

// Stores returns a factory that opens the configured backend once per
// partition. Every store is stamped with run.
func (c HistoryConfig) Stores(run id.ID) partition.StoreFactory {
	return func(ctx context.Context, i, n int) (history.Store, error) {
		switch c.Backend {
		case "", "memory":
			return memory.New(), nil
		case "bolt":
			return boltstore.Open(partitionPath(c.DSN, i, n), boltstore.WithRunID(run))
		case "sqlite":
			return sqlitestore.Open(partitionPath(c.DSN, i, n), sqlitestore.WithRunID(run))
		case "mongo":
			return mongostore.Connect(ctx, c.DSN, c.MongoDatabase,
				mongostore.WithRunID(run),
				mongostore.WithCollection(partitionCollection(i, n)),
			)
		default:
			return nil, fmt.Errorf("config: unknown history backend %q", c.Backend)
		}
	}
}

// partitionPath keeps a single partition on the configured path and
// suffixes the rest, so each partition owns its own file.
func partitionPath(dsn string, i, n int) string {
	if n <= 1 || dsn == ":memory:" {
		return dsn
	}
	return fmt.Sprintf("%s.part%d", dsn, i)
}

func partitionCollection(i, n int) string {
	if n <= 1 {
		return mongostore.DefaultCollection
	}
	return fmt.Sprintf("%s_p%d", mongostore.DefaultCollection, i)
}
