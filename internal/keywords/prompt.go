package keywords

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/renderinc/keyword-planner/internal/appstore"
)

// SystemPrompt is the fixed instruction sent with every synthesis request.
const SystemPrompt = `You are a helpful assistant and a brilliant SEO engineer.
Analyze the given iOS app category, description, and competitor apps.
In response, return the top 30 keywords for the app and the top 10 keywords for each of
its competitors. The data must be in the following JSON format:
{
    "aikeywords": {
        "appKeywords": ["keyword1", "keyword2", ...],
        "compKeywords": {
            "comp_app1_name": ["keyword1", "keyword2", ...],
            "comp_app2_name": ["keyword1", "keyword2", ...]
        }
    }
}
Ensure all keywords are relevant and optimized for App Store Optimization (ASO).
Do not add generic keywords under any circumstances.
Only return the JSON object, with no other text.`

// UserMessage renders the listing facts the model works from.
func UserMessage(record *appstore.AppRecord) string {
	competitors := make(map[string][]string, len(record.CompetitorKeywords))
	for _, ck := range record.CompetitorKeywords {
		competitors[ck.Name] = ck.Keywords
	}
	// map keys marshal sorted, so the message is stable for a given record
	compJSON, err := json.Marshal(competitors)
	if err != nil {
		compJSON = []byte("{}")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "App Name: %s\n", record.AppName)
	fmt.Fprintf(&b, "App Subtitle: %s\n", record.AppSubtitle)
	fmt.Fprintf(&b, "Category: %s\n", record.Category)
	fmt.Fprintf(&b, "Description: %s\n", record.Description)
	fmt.Fprintf(&b, "Existing Keywords: %s\n", strings.Join(record.Keywords, ", "))
	fmt.Fprintf(&b, "Competitor Apps and their Keywords: %s\n", compJSON)
	return b.String()
}
