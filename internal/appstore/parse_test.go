package appstore

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFixture(t *testing.T, html string) listing {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return parseListing(doc, "https://apps.apple.com/us/app/calm/id571800810")
}

func TestParseListing(t *testing.T) {
	page := parseFixture(t, listingHTML(
		"https://apps.apple.com/us/app/headspace/id493145008",
		"/us/app/sleep-cycle/id320606217",
	))

	assert.Equal(t, "Calm", page.Name)
	assert.Equal(t, "Sleep Stories", page.Subtitle)
	assert.Equal(t, "4.8", page.Rating)
	assert.Equal(t, "245.6 MB", page.Size)
	assert.Equal(t, "Health & Fitness", page.Category)
	assert.Equal(t, "Calm is the #1 app for sleep.", page.Description)
	assert.Equal(t, []string{
		"https://img.example/a-600.webp",
		"https://img.example/b-3x.webp",
	}, page.Screenshots)
	assert.Equal(t, []Competitor{
		{Name: "Comp1", URL: "https://apps.apple.com/us/app/headspace/id493145008"},
		{Name: "Comp2", URL: "https://apps.apple.com/us/app/sleep-cycle/id320606217"},
	}, page.Competitors)
	assert.Equal(t,
		[]string{"sleep", "meditation", "anxiety relief"},
		FilterKeywords(page.MetaKeywords, page.Name, page.Subtitle),
	)
}

func TestParseListing_MissingFieldsUseSentinel(t *testing.T) {
	page := parseFixture(t, `<html><body><p>maintenance</p></body></html>`)

	assert.Equal(t, NotFound, page.Name)
	assert.Equal(t, NotFound, page.Subtitle)
	assert.Equal(t, NotFound, page.Rating)
	assert.Equal(t, NotFound, page.Size)
	assert.Equal(t, NotFound, page.Category)
	assert.Equal(t, NotFound, page.Description)
	assert.Empty(t, page.Screenshots)
	assert.Empty(t, page.MetaKeywords)
	assert.Empty(t, page.Competitors)
}

func TestParseListing_CompetitorsOnlyFromRelatedSection(t *testing.T) {
	html := `<html><body>
		<section><h2>More By This Developer</h2>
			<a class="we-lockup" href="/us/app/other/id1"><div class="we-lockup__title"><p>Other</p></div></a>
		</section>
		<section><h2>You Might Also Like</h2>
			<a class="we-lockup" href="/us/app/a/id2"><div class="we-lockup__title"><p>Alpha</p></div></a>
			<a class="we-lockup" href="/us/app/a/id2"><div class="we-lockup__title"><p>Alpha</p></div></a>
		</section>
	</body></html>`

	page := parseFixture(t, html)
	require.Len(t, page.Competitors, 2, "duplicates are kept")
	assert.Equal(t, "Alpha", page.Competitors[0].Name)
	assert.Equal(t, "https://apps.apple.com/us/app/a/id2", page.Competitors[0].URL)
}

func TestLargestCandidate(t *testing.T) {
	tests := []struct {
		srcset string
		want   string
	}{
		{"a.webp 300w, b.webp 600w", "b.webp"},
		{"big.webp 1200w, small.webp 300w", "big.webp"},
		{"a.webp, b.webp", "b.webp"},
		{"only.webp", "only.webp"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, largestCandidate(tt.srcset), tt.srcset)
	}
}
