package appstore

import "fmt"

// listingHTML renders a trimmed-down App Store detail page. competitorHrefs
// become lockups of the related-apps section, named "Comp1", "Comp2", ...
func listingHTML(competitorHrefs ...string) string {
	lockups := ""
	for i, href := range competitorHrefs {
		lockups += fmt.Sprintf(`
			<a class="we-lockup" href="%s">
				<div class="we-lockup__title"><p>Comp%d</p></div>
			</a>`, href, i+1)
	}

	return `<!DOCTYPE html>
<html>
<head>
	<meta name="keywords" content="Calm,Sleep,iPhone,Meditation, Sleep Stories ,Apple,anxiety relief">
</head>
<body>
	<header>
		<h1 class="product-header__title">
			Calm
			<span class="badge badge--product-title">12+</span>
		</h1>
		<h2 class="product-header__subtitle">Sleep Stories</h2>
	</header>
	<span class="we-customer-ratings__averages__display">4.8</span>
	<picture class="we-artwork--screenshot-platform-iphone">
		<source type="image/jpeg" srcset="https://img.example/a-300.jpg 300w">
		<source type="image/webp" srcset="https://img.example/a-300.webp 300w, https://img.example/a-600.webp 600w">
	</picture>
	<picture class="we-artwork--screenshot-platform-iphone">
		<source type="image/webp" srcset="https://img.example/b-1x.webp 1x, https://img.example/b-3x.webp 3x, https://img.example/b-2x.webp 2x">
	</picture>
	<picture class="we-artwork--screenshot-platform-iphone">
		<img src="https://img.example/no-source.png">
	</picture>
	<div class="section__description"><p>Calm is the #1 app for sleep.</p></div>
	<dl>
		<dt>Seller</dt><dd>Calm.com, Inc.</dd>
		<dt>Size</dt><dd>245.6 MB</dd>
		<dt>Category</dt><dd>Health &amp; Fitness</dd>
	</dl>
	<section class="l-content-width section">
		<h2 class="section__headline">You Might Also Like</h2>
		<div class="l-row">` + lockups + `
			<a class="we-lockup" href="/us/app/nameless/id9"><div class="we-lockup__title"></div></a>
		</div>
	</section>
</body>
</html>`
}

func competitorHTML(keywords string) string {
	return `<html><head><meta name="keywords" content="` + keywords + `"></head><body></body></html>`
}
