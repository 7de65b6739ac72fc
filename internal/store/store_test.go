// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/els-search/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(types.StoreConfig{Path: filepath.Join(t.TempDir(), "data", "history.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleEntries() []types.Entry {
	return []types.Entry{
		{"eid": "2-s2.0-85000000001", "dc:title": "Feline locomotion", "citedby-count": "12"},
		{"dc:identifier": "SCOPUS_ID:85000000002", "dc:title": "Cats and dogs"},
		{"prism:doi": "10.1000/xyz"},
	}
}

func TestSaveAndLoad(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec, err := s.Save(ctx, types.SearchRecord{
		Query:        "TITLE(cats)",
		Index:        "scopus",
		URI:          "https://api.elsevier.com/content/search/scopus?query=TITLE%28cats%29",
		TotalResults: 3,
		Complete:     true,
	}, sampleEntries())
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, 3, rec.Retrieved)
	assert.False(t, rec.ExecutedAt.IsZero())

	got, entries, err := s.Load(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "TITLE(cats)", got.Query)
	assert.Equal(t, "scopus", got.Index)
	assert.Equal(t, 3, got.TotalResults)
	assert.True(t, got.Complete)
	assert.WithinDuration(t, rec.ExecutedAt, got.ExecutedAt, time.Millisecond)

	require.Len(t, entries, 3)
	assert.Equal(t, "Feline locomotion", entries[0].String("dc:title"))
	assert.Equal(t, "12", entries[0].String("citedby-count"))
	assert.Equal(t, "10.1000/xyz", entries[2].String("prism:doi"))
}

func TestLoadUnknown(t *testing.T) {
	s := testStore(t)
	_, _, err := s.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, q := range []string{"first", "second", "third"} {
		_, err := s.Save(ctx, types.SearchRecord{
			Query:      q,
			Index:      "scidir",
			URI:        "u",
			ExecutedAt: base.Add(time.Duration(i) * time.Hour),
		}, nil)
		require.NoError(t, err)
	}

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Query)
	assert.Equal(t, "first", all[2].Query)
	assert.Equal(t, 0, all[0].Retrieved)

	limited, err := s.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestDeleteCascades(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec, err := s.Save(ctx, types.SearchRecord{Query: "q", Index: "scopus", URI: "u"}, sampleEntries())
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, rec.ID))

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT count(*) FROM entries WHERE search_id = ?`, rec.ID).Scan(&n))
	assert.Zero(t, n)

	assert.ErrorIs(t, s.Delete(ctx, rec.ID), ErrNotFound)
}

func TestIdentifier(t *testing.T) {
	assert.Equal(t, "2-s2.0-1", identifier(types.Entry{"eid": "2-s2.0-1", "dc:identifier": "SCOPUS_ID:1"}))
	assert.Equal(t, "SCOPUS_ID:1", identifier(types.Entry{"dc:identifier": "SCOPUS_ID:1"}))
	assert.Equal(t, "S0001", identifier(types.Entry{"pii": "S0001"}))
	assert.Empty(t, identifier(types.Entry{}))
}
