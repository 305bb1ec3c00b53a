package model

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortedNames returns the keys of a resolver result in natural order.
// Natural order is English collation, so "Acorn@1.0.0" sorts next to
// "acorn-walk@8.0.0" instead of before every lowercase name as a byte
// comparison would. Keys that collate equal fall back to byte order to keep
// the result deterministic.
func SortedNames(results map[string]PackageLicenseInfo) []string {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}

	c := collate.New(language.English)
	sort.Slice(names, func(i, j int) bool {
		if cmp := c.CompareString(names[i], names[j]); cmp != 0 {
			return cmp < 0
		}
		return names[i] < names[j]
	})
	return names
}
