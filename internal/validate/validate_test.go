package validate_test

import (
	"testing"

	"github.com/albumvault/catalogd/internal/validate"
)

func TestNonEmptyString(t *testing.T) {
	if err := validate.NonEmptyString("name", "hello"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := validate.NonEmptyString("name", "   "); err == nil {
		t.Error("expected error for whitespace-only string")
	}
	if err := validate.NonEmptyString("name", ""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestIsAlphanumericSlug(t *testing.T) {
	if err := validate.IsAlphanumericSlug("id", "dQw4w9WgXcQ"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := validate.IsAlphanumericSlug("id", "../../../etc/passwd"); err == nil {
		t.Error("expected error for path traversal")
	}
	if err := validate.IsAlphanumericSlug("id", ""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestIntInRange(t *testing.T) {
	if err := validate.IntInRange("count", 5, 1, 10); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := validate.IntInRange("count", 0, 1, 10); err == nil {
		t.Error("expected error for below minimum")
	}
	if err := validate.IntInRange("count", 100, 1, 10); err == nil {
		t.Error("expected error for above maximum")
	}
}

func TestMultiError(t *testing.T) {
	var me validate.MultiError
	if me.HasErrors() {
		t.Error("expected no errors initially")
	}
	me.Add(validate.NonEmptyString("name", ""))
	me.Add(validate.IsAlphanumericSlug("id", "../bad"))
	me.Add(nil) // should be no-op
	if !me.HasErrors() {
		t.Error("expected errors after adding")
	}
	if len(me.Errors) != 2 {
		t.Errorf("expected 2 errors, got %d", len(me.Errors))
	}
}
