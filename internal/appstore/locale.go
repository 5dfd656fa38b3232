package appstore

import (
	"regexp"
	"sort"
	"strings"
)

var (
	// localeSegment matches a two-letter first path segment right after the host.
	localeSegment = regexp.MustCompile(`^((?:https?://)?[^/?#]+)/[A-Za-z]{2}(?:[/?#]|$)`)
	hostPrefix    = regexp.MustCompile(`^(?:https?://)?[^/?#]+`)
	appIDPattern  = regexp.MustCompile(`id(\d+)`)
)

// NormalizeLocale rewrites the listing URL so that its locale segment is the
// given country code: an existing /xx/ segment is replaced, otherwise /cc/ is
// inserted right after the store domain. Applying it twice is a no-op.
func NormalizeLocale(rawURL, country string) string {
	rawURL = strings.TrimSpace(rawURL)
	cc := strings.ToLower(strings.TrimSpace(country))

	if m := localeSegment.FindStringSubmatchIndex(rawURL); m != nil {
		start := m[3] + 1
		return rawURL[:start] + cc + rawURL[start+2:]
	}

	loc := hostPrefix.FindStringIndex(rawURL)
	if loc == nil {
		return rawURL
	}
	host, rest := rawURL[:loc[1]], rawURL[loc[1]:]
	if strings.HasPrefix(rest, "/") {
		return host + "/" + cc + rest
	}
	return host + "/" + cc + "/" + rest
}

// ExtractAppID returns the numeric id from an "id123456" path segment.
func ExtractAppID(listingURL string) string {
	m := appIDPattern.FindStringSubmatch(listingURL)
	if m == nil {
		return UnknownAppID
	}
	return m[1]
}

// countries is the set of storefronts offered to callers.
var countries = map[string]string{
	"us": "United States",
	"gb": "United Kingdom",
	"ca": "Canada",
	"in": "India",
	"sa": "Saudi Arabia",
	"au": "Australia",
}

// SupportedCountries returns the supported storefront codes, sorted.
func SupportedCountries() []string {
	codes := make([]string, 0, len(countries))
	for code := range countries {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// IsSupportedCountry reports whether code is one of the supported storefronts.
func IsSupportedCountry(code string) bool {
	_, ok := countries[strings.ToLower(strings.TrimSpace(code))]
	return ok
}

// CountryName returns the display name of a storefront, or the code itself when unknown.
func CountryName(code string) string {
	if name, ok := countries[strings.ToLower(strings.TrimSpace(code))]; ok {
		return name
	}
	return code
}
