package rss

import (
	"fmt"
	"testing"
)

func TestFingerprintDeterministic(t *testing.T) {
	cases := []struct {
		link string
		ts   string
	}{
		{"https://x/a", "2024-01-01T00:00:00Z"},
		{"https://x/b", "2024-01-01T00:00:00Z"},
		{"https://example.com/news/long/path?id=42", "2025-06-30T18:04:05Z"},
		{"", ""},
	}
	for _, tc := range cases {
		first := Fingerprint(tc.link, tc.ts)
		second := Fingerprint(tc.link, tc.ts)
		if first != second {
			t.Fatalf("Fingerprint(%q, %q) not deterministic: %q vs %q", tc.link, tc.ts, first, second)
		}
		if first == "" {
			t.Fatalf("Fingerprint(%q, %q) returned empty string", tc.link, tc.ts)
		}
	}
}

func TestFingerprintDistinctAcrossLinks(t *testing.T) {
	const ts = "2024-05-01T12:00:00Z"
	seen := make(map[string]string)
	for i := 0; i < 1000; i++ {
		link := fmt.Sprintf("https://x/article-%d", i)
		fp := Fingerprint(link, ts)
		if prev, ok := seen[fp]; ok {
			t.Fatalf("collision between %q and %q: %s", prev, link, fp)
		}
		seen[fp] = link
	}
}

func TestFingerprintDistinguishesTimestamps(t *testing.T) {
	// Same link republished at a different time is a distinct revision.
	a := Fingerprint("https://x/a", "2024-01-01T00:00:00Z")
	b := Fingerprint("https://x/a", "2024-01-02T00:00:00Z")
	if a == b {
		t.Fatalf("expected distinct fingerprints for different timestamps, both %s", a)
	}
}
