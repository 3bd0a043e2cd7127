// attack_test.go — adversarial input tests.
// IsAlphanumericSlug is exercised against classic attack payloads and
// must reject every one; each validator is also checked for panics on
// zero-value input.
package validate_test

import (
	"strings"
	"testing"

	"github.com/albumvault/catalogd/internal/validate"
)

// attackPayloads is the list of known-bad strings fed to
// IsAlphanumericSlug by TestSlugAgainstAttacks.
var attackPayloads = []struct {
	name  string
	value string
}{
	{"sql_injection_classic", "' OR 1=1 --"},
	{"sql_injection_union", "1 UNION SELECT username,password FROM users--"},
	{"sql_injection_stacked", "1; DROP TABLE albums;--"},
	{"xss_script", "<script>alert(1)</script>"},
	{"xss_event", `" onmouseover="alert(1)`},
	{"xss_img", "<img src=x onerror=alert(1)>"},
	{"path_traversal_unix", "../../../etc/passwd"},
	{"path_traversal_win", `..\..\..\\windows\\system32`},
	{"path_traversal_encoded", "..%2F..%2Fetc%2Fpasswd"},
	{"null_byte_middle", "hello\x00world"},
	{"null_byte_start", "\x00admin"},
	{"null_byte_end", "admin\x00"},
	{"long_string", strings.Repeat("A", 10001)},
	{"unicode_rtl", "‮ evil text"},
	{"format_string", "%s%s%s%s%s%s%s"},
}

// TestSlugAgainstAttacks verifies IsAlphanumericSlug rejects every
// attack payload, since the caller (an external video id used as both
// a cache key and an on-disk filename) trusts this check to keep a
// path-traversal or injection string out of the filesystem.
func TestSlugAgainstAttacks(t *testing.T) {
	for _, tc := range attackPayloads {
		t.Run(tc.name, func(t *testing.T) {
			err := validate.IsAlphanumericSlug("slug", tc.value)
			if err == nil {
				n := len(tc.value)
				if n > 50 {
					n = 50
				}
				t.Errorf("IsAlphanumericSlug accepted attack payload %q", tc.value[:n])
			}
		})
	}
}

// TestNoNilPanic verifies no validator panics on empty or zero-value inputs.
func TestNoNilPanic(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("validator panicked: %v", r)
		}
	}()

	_ = validate.NonEmptyString("f", "")
	_ = validate.IsAlphanumericSlug("f", "")
	_ = validate.IntInRange("f", 0, 1, 10)
}
