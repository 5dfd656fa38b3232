package appstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLocale(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		country string
		want    string
	}{
		{
			name:    "replaces existing segment",
			url:     "https://apps.apple.com/gb/app/calm/id571800810",
			country: "us",
			want:    "https://apps.apple.com/us/app/calm/id571800810",
		},
		{
			name:    "inserts missing segment",
			url:     "https://apps.apple.com/app/calm/id571800810",
			country: "in",
			want:    "https://apps.apple.com/in/app/calm/id571800810",
		},
		{
			name:    "lower-cases country",
			url:     "https://apps.apple.com/app/calm/id571800810",
			country: "AU",
			want:    "https://apps.apple.com/au/app/calm/id571800810",
		},
		{
			name:    "upper-case segment is replaced",
			url:     "https://apps.apple.com/US/app/calm/id571800810",
			country: "sa",
			want:    "https://apps.apple.com/sa/app/calm/id571800810",
		},
		{
			name:    "only the first segment is treated as locale",
			url:     "https://apps.apple.com/app/my/id42",
			country: "us",
			want:    "https://apps.apple.com/us/app/my/id42",
		},
		{
			name:    "url without scheme",
			url:     "apps.apple.com/app/calm/id1",
			country: "us",
			want:    "apps.apple.com/us/app/calm/id1",
		},
		{
			name:    "bare host",
			url:     "https://apps.apple.com",
			country: "us",
			want:    "https://apps.apple.com/us/",
		},
		{
			name:    "keeps query string",
			url:     "https://apps.apple.com/gb/app/calm/id1?see-all=reviews",
			country: "ca",
			want:    "https://apps.apple.com/ca/app/calm/id1?see-all=reviews",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeLocale(tt.url, tt.country)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, NormalizeLocale(got, tt.country), "normalization must be idempotent")
		})
	}
}

func TestExtractAppID(t *testing.T) {
	assert.Equal(t, "123456789", ExtractAppID("https://apps.apple.com/us/app/demo/id123456789"))
	assert.Equal(t, "42", ExtractAppID("https://apps.apple.com/us/app/idle-game/id42?l=en"))
	assert.Equal(t, UnknownAppID, ExtractAppID("https://apps.apple.com/us/app/demo"))
}

func TestCountries(t *testing.T) {
	assert.Equal(t, []string{"au", "ca", "gb", "in", "sa", "us"}, SupportedCountries())
	assert.True(t, IsSupportedCountry("US"))
	assert.False(t, IsSupportedCountry("zz"))
	assert.Equal(t, "India", CountryName("in"))
	assert.Equal(t, "zz", CountryName("zz"))
}
