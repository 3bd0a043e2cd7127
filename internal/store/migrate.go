package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/albumvault/catalogd/internal/apperr"
	"github.com/albumvault/catalogd/internal/db"
)

// Migrate applies every .sql file embedded in internal/db, in lexical
// order. Statements are idempotent (CREATE ... IF NOT EXISTS) and
// already-exists errors are tolerated, so Migrate is safe to call on
// every process start.
func (s *Store) Migrate(ctx context.Context) error {
	entries, err := db.Migrations.ReadDir(".")
	if err != nil {
		return apperr.Fatal("store: read embedded migrations", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := db.Migrations.ReadFile(name)
		if err != nil {
			return apperr.Fatal(fmt.Sprintf("store: read migration %s", name), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return apperr.Wrap(apperr.KindFatal, fmt.Sprintf("store: apply migration %s", name), err)
		}
	}
	return nil
}
