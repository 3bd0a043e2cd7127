//go:build integration

package audit_test

import (
	"context"
	"testing"

	"github.com/albumvault/catalogd/internal/testutil"
	"github.com/albumvault/catalogd/pkg/audit"
)

func TestLogActionAndQuery(t *testing.T) {
	s := testutil.OpenStore(t)
	ctx := context.Background()
	db := s.DB().DB

	if err := audit.LogAction(ctx, db, "admin", "1", "scrape.start", "date", "2026-03-01", map[string]interface{}{"no_covers": false}); err != nil {
		t.Fatalf("log_action: %v", err)
	}
	if err := audit.LogAction(ctx, db, "admin", "1", "settings.update", "category", "cache", nil); err != nil {
		t.Fatalf("log_action: %v", err)
	}

	entries, total, err := audit.Query(ctx, db, map[string]string{"action": "scrape"}, 10, 0)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if total != 1 || len(entries) != 1 {
		t.Fatalf("expected 1 matching entry, got total=%d len=%d", total, len(entries))
	}
	if entries[0].Action != "scrape.start" {
		t.Fatalf("unexpected action: %s", entries[0].Action)
	}
	if entries[0].ResourceID == nil || *entries[0].ResourceID != "2026-03-01" {
		t.Fatalf("unexpected resource_id: %+v", entries[0].ResourceID)
	}
}
