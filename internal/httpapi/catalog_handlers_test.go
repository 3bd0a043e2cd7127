package httpapi

import (
	"net/url"
	"testing"
)

func TestParsePeriodKind(t *testing.T) {
	for _, raw := range []string{"day", "week", "month"} {
		if _, err := parsePeriodKind(raw); err != nil {
			t.Errorf("parsePeriodKind(%q) returned error: %v", raw, err)
		}
	}
	for _, raw := range []string{"", "year", "DAY"} {
		if _, err := parsePeriodKind(raw); err == nil {
			t.Errorf("parsePeriodKind(%q) should have been rejected", raw)
		}
	}
}

func TestSplitCSV(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"  ", nil},
		{"death,black", []string{"death", "black"}},
		{"death, black ,", []string{"death", "black"}},
		{"doom", []string{"doom"}},
	}
	for _, tc := range cases {
		got := splitCSV(tc.in)
		if len(got) != len(tc.want) {
			t.Errorf("splitCSV(%q) = %v, want %v", tc.in, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("splitCSV(%q)[%d] = %q, want %q", tc.in, i, got[i], tc.want[i])
			}
		}
	}
}

func TestPaginationParams(t *testing.T) {
	cases := []struct {
		query      string
		wantOffset int
		wantLimit  int
	}{
		{"", 0, 50},
		{"page=1", 0, 50},
		{"page=2&limit=20", 20, 20},
		{"page=3&limit=20", 40, 20},
		{"limit=0", 0, 50},
		{"limit=-5", 0, 50},
		{"limit=500", 0, 200},
		{"page=0", 0, 50},
		{"page=-1", 0, 50},
	}
	for _, tc := range cases {
		q, err := url.ParseQuery(tc.query)
		if err != nil {
			t.Fatalf("ParseQuery(%q): %v", tc.query, err)
		}
		offset, limit := paginationParams(q)
		if offset != tc.wantOffset || limit != tc.wantLimit {
			t.Errorf("paginationParams(%q) = (%d, %d), want (%d, %d)", tc.query, offset, limit, tc.wantOffset, tc.wantLimit)
		}
	}
}
