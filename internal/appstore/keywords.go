package appstore

import "strings"

// stopKeywords are generic store terms that carry no ASO signal.
var stopKeywords = map[string]struct{}{
	"ios apps":   {},
	"app":        {},
	"appstore":   {},
	"app store":  {},
	"iphone":     {},
	"ipad":       {},
	"ipod touch": {},
	"itouch":     {},
	"itunes":     {},
	"apple":      {},
}

// FilterKeywords splits a comma-separated keywords meta value into trimmed,
// lower-cased keywords, dropping empty entries, stop words, repeats, and any
// entry equal (case-insensitively) to one of exclude. Order is preserved.
func FilterKeywords(content string, exclude ...string) []string {
	excluded := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		excluded[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}

	keywords := []string{}
	seen := make(map[string]struct{})
	for _, raw := range strings.Split(content, ",") {
		k := strings.ToLower(strings.TrimSpace(raw))
		if k == "" {
			continue
		}
		if _, ok := stopKeywords[k]; ok {
			continue
		}
		if _, ok := excluded[k]; ok {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keywords = append(keywords, k)
	}
	return keywords
}
