package database

import (
	"fmt"
	"io/fs"
	"sort"

	schemasql "github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/database/sql"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/logging"
)

// ApplySchema executes the embedded DDL files against the database in
// lexical order. All statements are idempotent (CREATE ... IF NOT EXISTS),
// so running this on every startup is safe.
func ApplySchema(db PostgresConn, logger logging.Logger) error {
	entries, err := fs.Glob(schemasql.Content, "schema/*.sql")
	if err != nil {
		return fmt.Errorf("failed to list schema files: %w", err)
	}
	sort.Strings(entries)

	for _, name := range entries {
		ddl, err := schemasql.Content.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read schema file %s: %w", name, err)
		}
		if _, err := db.Exec(string(ddl)); err != nil {
			return fmt.Errorf("failed to apply schema file %s: %w", name, err)
		}
		logger.WithField("file", name).Debug("Applied schema file")
	}

	return nil
}
