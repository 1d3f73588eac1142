package rss

import (
	"hash/fnv"
	"strconv"
)

// Fingerprint derives the dedup key for a content revision from its canonical
// link and best-available timestamp. Pure and deterministic: the same pair
// always maps to the same key. FNV-1a/64 keeps collisions negligible at feed
// scale; the uniqueness index on articles is the final arbiter either way.
func Fingerprint(link, timestamp string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(link))
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(timestamp))
	return strconv.FormatUint(h.Sum64(), 36)
}
