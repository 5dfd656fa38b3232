package keywords

import (
	"context"
	"errors"
	"testing"

	"github.com/renderinc/keyword-planner/internal/appstore"
	"github.com/renderinc/keyword-planner/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	reply  string
	err    error
	calls  int
	system string
	user   string
}

func (f *fakeModel) Complete(ctx context.Context, system, user string) (string, error) {
	f.calls++
	f.system = system
	f.user = user
	return f.reply, f.err
}

func (f *fakeModel) Name() string { return "fake:model" }

func sampleRecord() *appstore.AppRecord {
	return &appstore.AppRecord{
		AppID:       "123456789",
		AppName:     "Calm",
		AppSubtitle: "Sleep Stories",
		Category:    "Health & Fitness",
		Description: "Meditate and sleep better.",
		Keywords:    []string{"sleep", "meditation"},
		CompetitorKeywords: []appstore.CompetitorKeywords{
			{Name: "Headspace", Keywords: []string{"mindfulness", "focus"}},
		},
	}
}

func TestSynthesize(t *testing.T) {
	model := &fakeModel{reply: "```json\n{\"aikeywords\":{\"appKeywords\":[\"a\",\"b\"],\"compKeywords\":{\"Comp1\":[\"x\"]}}}\n```"}
	s := NewSynthesizer(model, logger.NewNop())

	set, err := s.Synthesize(context.Background(), sampleRecord())
	require.NoError(t, err)

	assert.Equal(t, 1, model.calls)
	assert.Equal(t, SystemPrompt, model.system)
	assert.Contains(t, model.user, "App Name: Calm\n")
	assert.Contains(t, model.user, "Existing Keywords: sleep, meditation\n")
	assert.Contains(t, model.user, `Competitor Apps and their Keywords: {"Headspace":["mindfulness","focus"]}`)
	assert.Equal(t, []string{"a", "b"}, set.AppKeywords)
	assert.Equal(t, []string{"Comp1: x"}, set.FlattenCompetitors())
}

func TestSynthesize_ModelError(t *testing.T) {
	cause := errors.New("connection refused")
	model := &fakeModel{err: cause}
	s := NewSynthesizer(model, nil)

	set, err := s.Synthesize(context.Background(), sampleRecord())
	assert.Nil(t, set)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSynthesis)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrInvalidReply)
	assert.Equal(t, 1, model.calls)

	var synthErr *SynthesisError
	require.ErrorAs(t, err, &synthErr)
	assert.Equal(t, "123456789", synthErr.AppID)
}

func TestSynthesize_InvalidReply(t *testing.T) {
	model := &fakeModel{reply: "Sorry, I can't produce JSON right now."}
	s := NewSynthesizer(model, nil)

	set, err := s.Synthesize(context.Background(), sampleRecord())
	assert.Nil(t, set)
	assert.ErrorIs(t, err, ErrSynthesis)
	assert.ErrorIs(t, err, ErrInvalidReply)
	assert.Equal(t, 1, model.calls)
}

func TestSynthesize_NilRecord(t *testing.T) {
	model := &fakeModel{}
	_, err := NewSynthesizer(model, nil).Synthesize(context.Background(), nil)
	assert.ErrorIs(t, err, ErrSynthesis)
	assert.Zero(t, model.calls)
}

func TestUserMessage_NoCompetitors(t *testing.T) {
	msg := UserMessage(&appstore.AppRecord{AppName: "Solo"})
	assert.Contains(t, msg, "Existing Keywords: \n")
	assert.Contains(t, msg, "Competitor Apps and their Keywords: {}\n")
}
