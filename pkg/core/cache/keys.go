// Package cache implements the three-tier CacheTier of SPEC_FULL.md §4.7:
// L1 in-process bounded LRU, L2 optional distributed KV, L3 warehouse
// lookup, behind one consistent key derivation.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Key derives the MD5-hex cache key for one search's parameters, canonicalized
// per SPEC_FULL.md §4.7: lowercased company, start/end date, days_back, and
// sorted active sources. Grounded on the reference codebase's
// pkg/core/edgar/cache.go ContentHash/cacheKey pattern, generalized from a
// single (cik, accession) pair to this tuple.
func Key(company, startDate, endDate string, daysBack int, activeSources []string) string {
	sorted := append([]string(nil), activeSources...)
	sort.Strings(sorted)

	canonical := fmt.Sprintf("%s|%s|%s|%d|%s",
		strings.ToLower(strings.TrimSpace(company)),
		startDate, endDate, daysBack,
		strings.Join(sorted, ","),
	)
	sum := md5.Sum([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
