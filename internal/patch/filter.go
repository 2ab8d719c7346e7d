package patch

import "strings"

// FilterByPackage narrows a catalog to the records declaring compatibility
// with target, preserving order. When includeUniversal is set, records with
// no declared packages survive too. Comparison is case-insensitive. An
// empty target means no filtering. The input catalog is never mutated; a
// fresh slice is returned either way.
func FilterByPackage(catalog []*Record, target string, includeUniversal bool) []*Record {
	target = strings.ToLower(strings.TrimSpace(target))
	out := make([]*Record, 0, len(catalog))
	if target == "" {
		out = append(out, catalog...)
		return out
	}
	for _, rec := range catalog {
		if rec.SupportsPackage(target) || (includeUniversal && rec.Universal) {
			out = append(out, rec)
		}
	}
	return out
}
