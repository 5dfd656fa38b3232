package keywords

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// MaxAppKeywords caps the keyword list kept for the app itself.
	MaxAppKeywords = 30
	// MaxCompetitorKeywords caps the keyword list kept per competitor.
	MaxCompetitorKeywords = 10
)

// ExtractJSON returns the text between the first '{' and the last '}' of reply, inclusive.
// ok is false when the reply holds no such pair.
func ExtractJSON(reply string) (string, bool) {
	start := strings.IndexByte(reply, '{')
	end := strings.LastIndexByte(reply, '}')
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return reply[start : end+1], true
}

type replyEnvelope struct {
	AIKeywords *struct {
		AppKeywords  *[]string          `json:"appKeywords"`
		CompKeywords map[string][]string `json:"compKeywords"`
	} `json:"aikeywords"`
}

// ParseReply extracts and validates the keyword payload from a free-form model reply.
// It never returns a partially filled set: any miss yields an error wrapping ErrInvalidReply.
func ParseReply(reply string) (*KeywordSet, error) {
	raw, ok := ExtractJSON(reply)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in reply", ErrInvalidReply)
	}

	var env replyEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}
	if env.AIKeywords == nil {
		return nil, fmt.Errorf("%w: missing aikeywords", ErrInvalidReply)
	}
	if env.AIKeywords.AppKeywords == nil {
		return nil, fmt.Errorf("%w: missing aikeywords.appKeywords", ErrInvalidReply)
	}

	set := &KeywordSet{
		AppKeywords:        capList(*env.AIKeywords.AppKeywords, MaxAppKeywords),
		CompetitorKeywords: make(map[string][]string, len(env.AIKeywords.CompKeywords)),
	}
	for name, kws := range env.AIKeywords.CompKeywords {
		set.CompetitorKeywords[name] = capList(kws, MaxCompetitorKeywords)
	}
	return set, nil
}

func capList(list []string, limit int) []string {
	if list == nil {
		return []string{}
	}
	if len(list) > limit {
		return list[:limit]
	}
	return list
}
