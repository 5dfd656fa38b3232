// Package keywords turns scraped listing facts into ASO keyword suggestions with one model call.
package keywords

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/renderinc/keyword-planner/internal/appstore"
	"github.com/renderinc/keyword-planner/internal/llm"
	"github.com/renderinc/keyword-planner/internal/logger"
)

var (
	// ErrSynthesis is matched by every keyword generation failure.
	ErrSynthesis = errors.New("keyword synthesis")
	// ErrInvalidReply means the model answered but the reply had no usable keyword payload.
	ErrInvalidReply = errors.New("invalid model reply")
)

// SynthesisError wraps a failed generation for one app.
type SynthesisError struct {
	AppID string
	Err   error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesize keywords for %s: %v", e.AppID, e.Err)
}

func (e *SynthesisError) Unwrap() []error {
	return []error{ErrSynthesis, e.Err}
}

// KeywordSet is the validated model output for one app.
type KeywordSet struct {
	AppKeywords        []string            `json:"appKeywords"`
	CompetitorKeywords map[string][]string `json:"compKeywords"`
}

// FlattenCompetitors renders the competitor mapping as "name: kw1, kw2" strings, ordered by name.
func (s *KeywordSet) FlattenCompetitors() []string {
	names := make([]string, 0, len(s.CompetitorKeywords))
	for name := range s.CompetitorKeywords {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, name+": "+strings.Join(s.CompetitorKeywords[name], ", "))
	}
	return out
}

// Synthesizer asks a chat model for keyword suggestions.
type Synthesizer struct {
	model llm.ChatModel
	log   logger.Logger
}

// NewSynthesizer creates a new synthesizer
func NewSynthesizer(model llm.ChatModel, log logger.Logger) *Synthesizer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Synthesizer{model: model, log: log}
}

// Synthesize calls the model once (no retry) and validates its reply.
func (s *Synthesizer) Synthesize(ctx context.Context, record *appstore.AppRecord) (*KeywordSet, error) {
	if record == nil {
		return nil, &SynthesisError{Err: errors.New("nil app record")}
	}

	start := time.Now()
	reply, err := s.model.Complete(ctx, SystemPrompt, UserMessage(record))
	if err != nil {
		s.log.Warn("Model call failed",
			logger.String("app_id", record.AppID),
			logger.String("model", s.model.Name()),
			logger.Error(err),
		)
		return nil, &SynthesisError{AppID: record.AppID, Err: err}
	}

	set, err := ParseReply(reply)
	if err != nil {
		s.log.Warn("Unusable model reply",
			logger.String("app_id", record.AppID),
			logger.String("model", s.model.Name()),
			logger.Int("reply_len", len(reply)),
			logger.Error(err),
		)
		return nil, &SynthesisError{AppID: record.AppID, Err: err}
	}

	s.log.Info("Keywords generated",
		logger.String("app_id", record.AppID),
		logger.String("model", s.model.Name()),
		logger.Int("app_keywords", len(set.AppKeywords)),
		logger.Int("competitors", len(set.CompetitorKeywords)),
		logger.Duration("took", time.Since(start)),
	)
	return set, nil
}
