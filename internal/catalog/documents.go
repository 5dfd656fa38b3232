package catalog

import (
	"strings"
	"time"

	"github.com/renderinc/keyword-planner/internal/appstore"
	"github.com/renderinc/keyword-planner/internal/keywords"
)

const (
	// AppCollection holds one facts document per ingested listing.
	AppCollection = "appDetails"
	// KeywordCollection holds the generated keyword sets, linked to facts by app_uid.
	KeywordCollection = "aiKeywords"

	// TimeLayout is the format of ingested_datetime and modified_datetime.
	TimeLayout = "2006-01-02 15:04:05"
)

// Collections lists every collection the catalog owns.
func Collections() []string {
	return []string{AppCollection, KeywordCollection}
}

// AppDocument is the stored facts document. It never carries the raw keyword
// lists; those live on the KeywordDocument.
type AppDocument struct {
	UID            string   `json:"uid"`
	AppID          string   `json:"appid"`
	Country        string   `json:"country"`
	AppURL         string   `json:"appurl"`
	AppName        string   `json:"appname"`
	AppSubtitle    string   `json:"appsubtitle"`
	Rating         string   `json:"rating"`
	Size           string   `json:"size"`
	Category       string   `json:"category"`
	Screenshots    []string `json:"iphone_screenshots"`
	Description    string   `json:"description"`
	CompetitorApps []string `json:"competitor_apps"`
	IngestedAt     string   `json:"ingested_datetime"`
	ModifiedAt     string   `json:"modified_datetime"`
}

// KeywordDocument is the stored keyword set of one scrape.
type KeywordDocument struct {
	UID                    string   `json:"uid"`
	AppUID                 string   `json:"app_uid"`
	AppID                  string   `json:"appid"`
	Country                string   `json:"country"`
	Keywords               []string `json:"keywords"`
	CompetitorApps         []string `json:"competitor_apps"`
	CompetitorAppsKeywords []string `json:"competitor_apps_keywords"`
	AIKeywords             []string `json:"ai_keywords"`
	AICompKeywords         []string `json:"ai_comp_keywords"`
	IngestedAt             string   `json:"ingested_datetime"`
	ModifiedAt             string   `json:"modified_datetime"`
}

func newAppDocument(record *appstore.AppRecord, uid, country string, now time.Time) *AppDocument {
	competitors := make([]string, 0, len(record.Competitors))
	for _, c := range record.Competitors {
		competitors = append(competitors, c.Name+" ("+c.URL+")")
	}

	stamp := now.Format(TimeLayout)
	return &AppDocument{
		UID:            uid,
		AppID:          record.AppID,
		Country:        country,
		AppURL:         record.AppURL,
		AppName:        record.AppName,
		AppSubtitle:    record.AppSubtitle,
		Rating:         record.Rating,
		Size:           record.Size,
		Category:       record.Category,
		Screenshots:    nonNil(record.Screenshots),
		Description:    record.Description,
		CompetitorApps: competitors,
		IngestedAt:     stamp,
		ModifiedAt:     stamp,
	}
}

func newKeywordDocument(set *keywords.KeywordSet, record *appstore.AppRecord, uid, appUID, appID, country string, now time.Time) *KeywordDocument {
	doc := &KeywordDocument{
		UID:                    uid,
		AppUID:                 appUID,
		AppID:                  appID,
		Country:                country,
		Keywords:               []string{},
		CompetitorApps:         []string{},
		CompetitorAppsKeywords: []string{},
		AIKeywords:             nonNil(set.AppKeywords),
		AICompKeywords:         set.FlattenCompetitors(),
	}

	if record != nil {
		doc.Keywords = nonNil(record.Keywords)
		for _, c := range record.Competitors {
			doc.CompetitorApps = append(doc.CompetitorApps, c.Name)
		}
		for _, ck := range record.CompetitorKeywords {
			doc.CompetitorAppsKeywords = append(doc.CompetitorAppsKeywords, ck.Name+": "+strings.Join(ck.Keywords, ", "))
		}
	}

	stamp := now.Format(TimeLayout)
	doc.IngestedAt = stamp
	doc.ModifiedAt = stamp
	return doc
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
