package appstore

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// listing is the page-level data of one detail page, before the competitor
// fan-out and id extraction.
type listing struct {
	Name         string
	Subtitle     string
	Rating       string
	Size         string
	Category     string
	Description  string
	Screenshots  []string
	MetaKeywords string
	Competitors  []Competitor
}

// parseListing extracts every field independently; a missing element only
// ever yields the NotFound sentinel (or an empty list).
func parseListing(doc *goquery.Document, pageURL string) listing {
	return listing{
		Name:         headerTitle(doc.Find("h1.product-header__title")),
		Subtitle:     textOrFallback(doc.Find("h2.product-header__subtitle"), NotFound),
		Rating:       textOrFallback(doc.Find("span.we-customer-ratings__averages__display"), NotFound),
		Size:         definition(doc, "Size"),
		Category:     definition(doc, "Category"),
		Description:  textOrFallback(doc.Find("div.section__description"), NotFound),
		Screenshots:  screenshots(doc),
		MetaKeywords: metaKeywords(doc),
		Competitors:  competitors(doc, pageURL),
	}
}

func textOrFallback(sel *goquery.Selection, fallback string) string {
	value := strings.TrimSpace(sel.First().Text())
	if value == "" {
		return fallback
	}
	return value
}

// headerTitle reads the title's own text, ignoring nested badges such as the age rating.
func headerTitle(sel *goquery.Selection) string {
	sel = sel.First()
	if sel.Length() == 0 {
		return NotFound
	}

	var own strings.Builder
	sel.Contents().Each(func(_ int, child *goquery.Selection) {
		if goquery.NodeName(child) == "#text" {
			own.WriteString(child.Text())
		}
	})
	if name := firstLine(own.String()); name != "" {
		return name
	}
	if name := firstLine(sel.Text()); name != "" {
		return name
	}
	return NotFound
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// definition returns the <dd> following the <dt> labelled term.
func definition(doc *goquery.Document, term string) string {
	dt := doc.Find("dt").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.TrimSpace(s.Text()) == term
	}).First()
	if dt.Length() == 0 {
		return NotFound
	}
	return textOrFallback(dt.NextAllFiltered("dd"), NotFound)
}

func metaKeywords(doc *goquery.Document) string {
	content, _ := doc.Find(`meta[name="keywords"]`).First().Attr("content")
	return content
}

func screenshots(doc *goquery.Document) []string {
	urls := []string{}
	doc.Find("picture.we-artwork--screenshot-platform-iphone").Each(func(_ int, picture *goquery.Selection) {
		srcset, ok := picture.Find(`source[type="image/webp"]`).First().Attr("srcset")
		if !ok {
			return
		}
		if best := largestCandidate(srcset); best != "" {
			urls = append(urls, best)
		}
	})
	return urls
}

// largestCandidate picks the URL with the largest width or density descriptor
// from a srcset value. Without descriptors the last candidate wins.
func largestCandidate(srcset string) string {
	var best string
	bestSize := -1.0
	for _, candidate := range strings.Split(srcset, ",") {
		fields := strings.Fields(candidate)
		if len(fields) == 0 {
			continue
		}
		size := 0.0
		if len(fields) > 1 {
			descriptor := strings.TrimRight(strings.ToLower(fields[1]), "wx")
			if v, err := strconv.ParseFloat(descriptor, 64); err == nil {
				size = v
			}
		}
		if size >= bestSize {
			best, bestSize = fields[0], size
		}
	}
	return best
}

// competitors collects the related-apps lockups in document order.
func competitors(doc *goquery.Document, pageURL string) []Competitor {
	found := []Competitor{}

	heading := doc.Find("h2").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(strings.ToLower(s.Text()), "you might also like")
	}).First()
	if heading.Length() == 0 {
		return found
	}
	section := heading.Closest("section")
	if section.Length() == 0 {
		return found
	}

	base, _ := url.Parse(pageURL)
	section.Find("a.we-lockup").Each(func(_ int, lockup *goquery.Selection) {
		name := strings.TrimSpace(lockup.Find(".we-lockup__title p").First().Text())
		href, ok := lockup.Attr("href")
		if name == "" || !ok || strings.TrimSpace(href) == "" {
			return
		}
		found = append(found, Competitor{Name: name, URL: resolve(base, strings.TrimSpace(href))})
	})
	return found
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil || base == nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
