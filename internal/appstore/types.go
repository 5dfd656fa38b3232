package appstore

// NotFound is the sentinel stored for any listing field missing from the page.
const NotFound = "Not Found"

// UnknownAppID is used when no numeric id can be found in the listing URL.
const UnknownAppID = "unknown_id"

// AppRecord holds the facts scraped from one app-store listing in one locale.
type AppRecord struct {
	AppID              string               `json:"appid"`
	AppURL             string               `json:"appurl"`
	AppName            string               `json:"appname"`
	AppSubtitle        string               `json:"appsubtitle"`
	Rating             string               `json:"rating"`
	Size               string               `json:"size"`
	Category           string               `json:"category"`
	Screenshots        []string             `json:"iphone_screenshots"`
	Description        string               `json:"description"`
	Keywords           []string             `json:"keywords"`
	Competitors        []Competitor         `json:"competitor_apps"`
	CompetitorKeywords []CompetitorKeywords `json:"competitor_apps_keywords"`
}

// Competitor is an entry of the listing's related-apps section.
type Competitor struct {
	Name string `json:"appname"`
	URL  string `json:"appurl"`
}

// CompetitorKeywords are the filtered meta keywords of one scraped competitor.
type CompetitorKeywords struct {
	Name     string   `json:"appname"`
	Keywords []string `json:"keywords"`
}
