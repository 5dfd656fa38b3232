package catalog

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/renderinc/keyword-planner/internal/appstore"
	"github.com/renderinc/keyword-planner/internal/keywords"
	"github.com/renderinc/keyword-planner/internal/logger"
	"github.com/renderinc/keyword-planner/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBackend_EndToEnd(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	backend, err := OpenLocal(dir, logger.NewNop())
	require.NoError(t, err)

	c := New(backend, logger.NewNop())
	require.NoError(t, c.EnsureSchema(ctx))

	record := sampleRecord()
	uid, err := c.UpsertAppRecord(ctx, record, "us")
	require.NoError(t, err)

	set := &keywords.KeywordSet{
		AppKeywords:        []string{"guided meditation", "sleep sounds"},
		CompetitorKeywords: map[string][]string{"Comp1": {"focus"}},
	}
	require.NoError(t, c.UpsertKeywordSet(ctx, set, record, uid, record.AppID, "us"))

	app, kw := c.Lookup(ctx, record.AppURL, "us")
	require.NotNil(t, app)
	require.NotNil(t, kw)
	assert.Equal(t, uid, app.UID)
	assert.Equal(t, "Calm", app.AppName)
	assert.Equal(t, uid, kw.AppUID)
	assert.Equal(t, []string{"Comp1: focus"}, kw.AICompKeywords)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{AppCollection: 1, KeywordCollection: 1}, stats)

	hits, err := c.Search(ctx, KeywordCollection, "sounds", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, KeywordCollection, hits[0].Collection)
	assert.NotEmpty(t, hits[0].Fragments)

	var doc KeywordDocument
	require.NoError(t, json.Unmarshal(hits[0].Document, &doc))
	assert.Equal(t, uid, doc.AppUID)

	hits, err = c.Search(ctx, "", "meditation", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	require.NoError(t, c.Close())

	// reopen: documents persist and the index can be rebuilt from SQLite
	backend, err = OpenLocal(dir, nil)
	require.NoError(t, err)
	defer backend.Close()

	n, err := backend.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	app, kw = New(backend, nil).Lookup(ctx, record.AppURL, "us")
	assert.NotNil(t, app)
	assert.NotNil(t, kw)
}

func TestLookup_UnknownAppIDDoesNotJoinAcrossApps(t *testing.T) {
	ctx := context.Background()
	backend, err := OpenLocal(t.TempDir(), logger.NewNop())
	require.NoError(t, err)
	c := New(backend, logger.NewNop())
	defer c.Close()

	idless := func(name string) *appstore.AppRecord {
		rec := sampleRecord()
		rec.AppID = appstore.UnknownAppID
		rec.AppName = name
		rec.AppURL = "https://apps.apple.com/us/app/" + strings.ToLower(name)
		return rec
	}
	alpha, bravo := idless("Alpha"), idless("Bravo")

	alphaUID, err := c.UpsertAppRecord(ctx, alpha, "us")
	require.NoError(t, err)
	require.NoError(t, c.UpsertKeywordSet(ctx, &keywords.KeywordSet{AppKeywords: []string{"alpha kw"}}, alpha, alphaUID, alpha.AppID, "us"))

	bravoUID, err := c.UpsertAppRecord(ctx, bravo, "us")
	require.NoError(t, err)
	require.NoError(t, c.UpsertKeywordSet(ctx, &keywords.KeywordSet{AppKeywords: []string{"bravo kw"}}, bravo, bravoUID, bravo.AppID, "us"))

	app, kw := c.Lookup(ctx, alpha.AppURL, "us")
	require.NotNil(t, app)
	assert.Equal(t, "Alpha", app.AppName)
	assert.Nil(t, kw)
}

func TestLocalBackend_SearchDropsStaleEntries(t *testing.T) {
	ctx := context.Background()
	backend, err := OpenLocal(t.TempDir(), logger.NewNop())
	require.NoError(t, err)
	defer backend.Close()

	require.NoError(t, backend.index.IndexDocument(&search.IndexedDocument{
		Collection: AppCollection,
		ID:         "ghost",
		Title:      "Ghost",
		Text:       "phantom listing",
	}))

	hits, err := backend.Search(ctx, AppCollection, "phantom", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	results, err := backend.index.Search("phantom", "", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}
