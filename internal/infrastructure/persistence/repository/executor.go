package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/openteams/taskflow/internal/infrastructure/persistence/sqlite"
)

// executor returns the ambient transaction when one is carried in the
// context, otherwise the shared connection pool.
func executor(ctx context.Context, db *sql.DB) sqlite.Executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return db
}

// marshalIDs encodes a user-id list as the JSON stored in TEXT columns.
func marshalIDs(ids []string) string {
	if len(ids) == 0 {
		return "[]"
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// unmarshalIDs decodes a JSON-encoded user-id list; malformed data
// degrades to an empty list rather than failing the read.
func unmarshalIDs(s string) []string {
	if s == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return nil
	}
	return ids
}
