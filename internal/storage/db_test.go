package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestEnsureCollection(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	created, err := db.EnsureCollection(ctx, "appDetails")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = db.EnsureCollection(ctx, "appDetails")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = db.EnsureCollection(ctx, "aiKeywords")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestUpsertAndGet(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	doc := &Document{
		Collection: "appDetails",
		ID:         "u1",
		AppURL:     "https://apps.apple.com/us/app/calm/id1",
		AppID:      "1",
		Country:    "us",
		Body:       `{"appname":"Calm"}`,
		ModifiedAt: "2024-01-01 10:00:00",
	}
	require.NoError(t, db.Upsert(ctx, doc))

	got, err := db.Get(ctx, "appDetails", "u1")
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	doc.Body = `{"appname":"Calm 2"}`
	doc.ModifiedAt = "2024-01-02 10:00:00"
	require.NoError(t, db.Upsert(ctx, doc))

	got, err = db.Get(ctx, "appDetails", "u1")
	require.NoError(t, err)
	assert.Equal(t, `{"appname":"Calm 2"}`, got.Body)

	count, err := db.Count(ctx, "appDetails")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGet_Missing(t *testing.T) {
	db := openTestDB(t)

	got, err := db.Get(context.Background(), "appDetails", "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFind(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	docs := []*Document{
		{Collection: "appDetails", ID: "old", AppURL: "u", AppID: "1", Country: "us", Body: "{}", ModifiedAt: "2024-01-01 00:00:00"},
		{Collection: "appDetails", ID: "new", AppURL: "u", AppID: "1", Country: "us", Body: "{}", ModifiedAt: "2024-02-01 00:00:00"},
		{Collection: "appDetails", ID: "gb", AppURL: "u", AppID: "1", Country: "gb", Body: "{}", ModifiedAt: "2024-03-01 00:00:00"},
		{Collection: "aiKeywords", ID: "kw", AppID: "1", Country: "us", Body: "{}", ModifiedAt: "2024-03-01 00:00:00"},
	}
	for _, d := range docs {
		require.NoError(t, db.Upsert(ctx, d))
	}

	found, err := db.Find(ctx, "appDetails", Filter{AppURL: "u", Country: "us"}, 0)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "new", found[0].ID)
	assert.Equal(t, "old", found[1].ID)

	found, err = db.Find(ctx, "appDetails", Filter{AppURL: "u", Country: "us"}, 1)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "new", found[0].ID)

	found, err = db.Find(ctx, "aiKeywords", Filter{AppID: "1", Country: "us"}, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "kw", found[0].ID)

	found, err = db.Find(ctx, "appDetails", Filter{AppURL: "other"}, 0)
	require.NoError(t, err)
	assert.Empty(t, found)

	all, err := db.List(ctx, "appDetails")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
