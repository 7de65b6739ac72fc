// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/els-search/internal/search"
	"github.com/pdiddy/els-search/pkg/types"
)

const testBase = "fake://api/"

// singlePage answers every request with n entries and a total of n.
// Requests whose URI contains "fail" get a transport error.
func singlePage(n int) search.ExecutorFunc {
	return func(_ context.Context, uri string) (*search.Page, error) {
		if strings.Contains(uri, "fail") {
			return nil, &search.TransportError{URI: uri, StatusCode: 500}
		}
		entries := make([]types.Entry, n)
		for i := range entries {
			entries[i] = types.Entry{"dc:title": uri}
		}
		return &search.Page{TotalResults: search.IntPtr(n), Entries: entries}, nil
	}
}

func TestRunOutcomesInFileOrder(t *testing.T) {
	qf := &QueryFile{Searches: []SearchSpec{
		{Name: "cats", Query: "cats"},
		{Query: "dogs", Index: "sciencedirect"},
		{Name: "birds", Query: "birds", View: "COMPLETE"},
	}}

	outcomes, err := Run(context.Background(), qf, singlePage(3), Options{
		BaseURL:      testBase,
		DefaultIndex: "scopus",
		Workers:      3,
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.Equal(t, []string{"cats", "search-2", "birds"},
		[]string{outcomes[0].Label, outcomes[1].Label, outcomes[2].Label})
	for _, o := range outcomes {
		require.NoError(t, o.Err, o.Label)
		require.NotNil(t, o.Session)
		assert.Equal(t, 3, o.Session.NumResults())
		assert.True(t, o.Session.HasAllResults())
		assert.NotNil(t, o.Session.Table())
	}
	assert.Equal(t, "scopus", outcomes[0].Session.Index(), "default index applies")
	assert.Equal(t, "sciencedirect", outcomes[1].Session.Index())
	assert.Equal(t, testBase+"scopus?query=cats", outcomes[0].Session.URI())
	assert.Contains(t, outcomes[2].Session.Results()[0].String("dc:title"), "&view=COMPLETE")
	assert.Zero(t, Failed(outcomes))
}

func TestRunIsolatesFailures(t *testing.T) {
	qf := &QueryFile{Searches: []SearchSpec{
		{Query: "ok"},
		{Query: "fail"},
		{Query: "   "},
		{Query: "also ok"},
	}}

	outcomes, err := Run(context.Background(), qf, singlePage(1), Options{
		BaseURL:      testBase,
		DefaultIndex: "scopus",
		Workers:      2,
	})
	require.NoError(t, err)

	assert.NoError(t, outcomes[0].Err)
	var te *search.TransportError
	assert.ErrorAs(t, outcomes[1].Err, &te)
	assert.NotNil(t, outcomes[1].Session, "session exists for execution failures")
	assert.ErrorIs(t, outcomes[2].Err, search.ErrInvalidArgument)
	assert.Nil(t, outcomes[2].Session, "rejected specs have no session")
	assert.NoError(t, outcomes[3].Err)
	assert.Equal(t, 2, Failed(outcomes))
}

func TestRunMissingIndex(t *testing.T) {
	qf := &QueryFile{Searches: []SearchSpec{{Query: "cats"}}}
	outcomes, err := Run(context.Background(), qf, singlePage(1), Options{BaseURL: testBase})
	require.NoError(t, err)
	assert.ErrorIs(t, outcomes[0].Err, search.ErrInvalidArgument)
}

func TestRunBoundsConcurrency(t *testing.T) {
	var (
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	exec := search.ExecutorFunc(func(_ context.Context, _ string) (*search.Page, error) {
		mu.Lock()
		active++
		maxSeen = max(maxSeen, active)
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
		return &search.Page{TotalResults: search.IntPtr(0), Entries: []types.Entry{}}, nil
	})

	qf := &QueryFile{Workers: 2}
	for range 8 {
		qf.Searches = append(qf.Searches, SearchSpec{Query: "q", Index: "scopus"})
	}

	// The file's worker count overrides the option.
	outcomes, err := Run(context.Background(), qf, exec, Options{BaseURL: testBase, Workers: 8})
	require.NoError(t, err)
	assert.Zero(t, Failed(outcomes))
	assert.LessOrEqual(t, maxSeen, 2)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	exec := search.ExecutorFunc(func(_ context.Context, _ string) (*search.Page, error) {
		atomic.AddInt32(&calls, 1)
		return &search.Page{TotalResults: search.IntPtr(0), Entries: []types.Entry{}}, nil
	})

	qf := &QueryFile{Searches: []SearchSpec{{Query: "a", Index: "scopus"}, {Query: "b", Index: "scopus"}}}
	outcomes, err := Run(ctx, qf, exec, Options{BaseURL: testBase})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, Failed(outcomes))
	assert.Zero(t, atomic.LoadInt32(&calls))
	for _, o := range outcomes {
		assert.True(t, errors.Is(o.Err, context.Canceled))
	}
}

// --- query files ---

func TestQueryFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.yaml")
	want := &QueryFile{
		Workers: 3,
		Searches: []SearchSpec{
			{Name: "ml", Query: "TITLE-ABS-KEY(machine learning)", Index: "scopus", All: true, Cursor: true, View: "COMPLETE", Count: 200},
			{Query: "heart", Index: "sciencedirect"},
		},
	}
	require.NoError(t, WriteQueryFile(path, want))

	got, err := ReadQueryFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReadQueryFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "q.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
searches:
  - query: "AUTHLASTNAME(Einstein)"
    all: true
  - name: reviews
    query: "DOCTYPE(re)"
    index: scopus
`), 0o644))
	qf, err := ReadQueryFile(path)
	require.NoError(t, err)
	require.Len(t, qf.Searches, 2)
	assert.True(t, qf.Searches[0].All)
	assert.Equal(t, "search-1", qf.Searches[0].Label(0))
	assert.Equal(t, "reviews", qf.Searches[1].Label(1))

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("searches: []\n"), 0o644))
	_, err = ReadQueryFile(empty)
	assert.ErrorContains(t, err, "lists no searches")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("searches: {"), 0o644))
	_, err = ReadQueryFile(bad)
	assert.ErrorContains(t, err, "parsing query file")

	_, err = ReadQueryFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "reading query file")
}
