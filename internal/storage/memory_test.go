package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSetDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.Get(ctx, "things", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Set(ctx, "things", "t1", Doc{"name": "first"}))

	doc, err := m.Get(ctx, "things", "t1")
	require.NoError(t, err)
	assert.Equal(t, "first", doc["name"])
	assert.Equal(t, "t1", doc["id"], "set stamps the id field")

	// the returned copy must not alias the stored document
	doc["name"] = "mutated"
	again, err := m.Get(ctx, "things", "t1")
	require.NoError(t, err)
	assert.Equal(t, "first", again["name"])

	require.NoError(t, m.Delete(ctx, "things", "t1"))
	_, err = m.Get(ctx, "things", "t1")
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting a missing document is not an error
	require.NoError(t, m.Delete(ctx, "things", "t1"))
}

func TestMemory_AddGeneratesDistinctIDs(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	a, err := m.Add(ctx, "things", Doc{"n": 1})
	require.NoError(t, err)
	b, err := m.Add(ctx, "things", Doc{"n": 2})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	doc, err := m.Get(ctx, "things", a)
	require.NoError(t, err)
	assert.Equal(t, a, doc["id"])
}

func TestMemory_UpdateOperators(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "users", "u1", Doc{
		"friends": []any{"a"},
		"score":   float64(2),
	}))

	err := m.Update(ctx, "users", "missing", Set("name", "x"))
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Update(ctx, "users", "u1",
		Set("name", "mira"),
		Union("friends", "b", "a"),
		Increment("score", 3),
	))

	doc, err := m.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, "mira", doc["name"])
	assert.ElementsMatch(t, []any{"a", "b"}, doc["friends"])
	assert.Equal(t, float64(5), doc["score"])

	require.NoError(t, m.Update(ctx, "users", "u1", Remove("friends", "a")))
	doc, err = m.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, []any{"b"}, doc["friends"])
}

func TestMemory_QueryFiltersOrderAndLimit(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "vibes", "v1", Doc{"userId": "u1", "timestamp": float64(30)}))
	require.NoError(t, m.Set(ctx, "vibes", "v2", Doc{"userId": "u2", "timestamp": float64(10)}))
	require.NoError(t, m.Set(ctx, "vibes", "v3", Doc{"userId": "u1", "timestamp": float64(20)}))

	docs, err := m.Query(ctx, "vibes", Query{Filters: []Filter{Where("userId", "u1")}})
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = m.Query(ctx, "vibes", Query{OrderBy: "timestamp", Desc: true})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "v1", docs[0]["id"])
	assert.Equal(t, "v3", docs[1]["id"])
	assert.Equal(t, "v2", docs[2]["id"])

	docs, err = m.Query(ctx, "vibes", Query{OrderBy: "timestamp", Limit: 2})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "v2", docs[0]["id"])

	docs, err = m.Query(ctx, "empty", Query{})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemory_CountAndDeleteWhere(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "posts", "p1", Doc{"communityId": "c1"}))
	require.NoError(t, m.Set(ctx, "posts", "p2", Doc{"communityId": "c1"}))
	require.NoError(t, m.Set(ctx, "posts", "p3", Doc{"communityId": "c2"}))

	n, err := m.Count(ctx, "posts")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = m.Count(ctx, "posts", Where("communityId", "c1"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, m.DeleteWhere(ctx, "posts", Where("communityId", "c1")))
	n, err = m.Count(ctx, "posts")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, m.DeleteWhere(ctx, "posts"))
	n, err = m.Count(ctx, "posts")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemory_RunTransaction(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	err := m.RunTransaction(ctx, "users", "missing", func(Doc) (Doc, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Set(ctx, "users", "u1", Doc{"likes": float64(1)}))

	require.NoError(t, m.RunTransaction(ctx, "users", "u1", func(doc Doc) (Doc, error) {
		likes, _ := doc["likes"].(float64)
		doc["likes"] = likes + 1
		return doc, nil
	}))

	doc, err := m.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, float64(2), doc["likes"])

	boom := errors.New("boom")
	err = m.RunTransaction(ctx, "users", "u1", func(Doc) (Doc, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	doc, err = m.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, float64(2), doc["likes"], "failed transaction leaves the document untouched")
}

func TestMemory_SubscribeDeliversInitialAndChanges(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "vibes", "v1", Doc{"userId": "u1"}))

	var snapshots [][]Doc
	cancel, err := m.Subscribe(ctx, "vibes", Query{}, func(docs []Doc) {
		snapshots = append(snapshots, docs)
	})
	require.NoError(t, err)
	defer cancel()

	require.Len(t, snapshots, 1, "subscription fires immediately")
	assert.Len(t, snapshots[0], 1)

	require.NoError(t, m.Set(ctx, "vibes", "v2", Doc{"userId": "u2"}))
	require.Len(t, snapshots, 2)
	assert.Len(t, snapshots[1], 2)

	// writes to other collections do not wake this subscription
	require.NoError(t, m.Set(ctx, "users", "u1", Doc{}))
	assert.Len(t, snapshots, 2)

	cancel()
	require.NoError(t, m.Set(ctx, "vibes", "v3", Doc{"userId": "u3"}))
	assert.Len(t, snapshots, 2, "cancelled subscription stays quiet")
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	type entity struct {
		ID   string   `json:"id"`
		Name string   `json:"name"`
		Tags []string `json:"tags,omitempty"`
	}

	doc, err := Encode(entity{ID: "e1", Name: "thing", Tags: []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, "thing", doc["name"])

	var out entity
	require.NoError(t, Decode(doc, &out))
	assert.Equal(t, "e1", out.ID)
	assert.Equal(t, []string{"a"}, out.Tags)

	all, err := DecodeAll[entity]([]Doc{doc, doc})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
