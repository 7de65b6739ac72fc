// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"

	"github.com/pdiddy/els-search/pkg/types"
)

// Executor performs one GET against a fully-formed request URI and returns
// the parsed page. HTTP status handling, authentication and retries are the
// executor's concern.
type Executor interface {
	Exec(ctx context.Context, uri string) (*Page, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, uri string) (*Page, error)

// Exec calls f(ctx, uri).
func (f ExecutorFunc) Exec(ctx context.Context, uri string) (*Page, error) { return f(ctx, uri) }

// TableBuilder converts entries into a table.
type TableBuilder interface {
	Build(entries []types.Entry) (*types.Table, error)
}

// ProgressFunc observes pagination progress after each page.
type ProgressFunc func(fetched, total int)

// Link is one entry of a page's link collection.
type Link struct {
	Ref  string `json:"@ref"`
	Href string `json:"@href"`
}

// RefNext is the relation marking the subsequent page.
const RefNext = "next"

// Page is one parsed search response. A nil TotalResults or a nil Entries
// slice means the field was absent from the response; an empty, non-nil
// Entries is a valid empty page.
type Page struct {
	TotalResults *int
	Entries      []types.Entry
	Links        []Link
}

// Next returns the href of the first link whose relation is "next".
func (p *Page) Next() (string, bool) {
	for _, l := range p.Links {
		if l.Ref == RefNext && l.Href != "" {
			return l.Href, true
		}
	}
	return "", false
}

func (p *Page) validate(uri string) error {
	if p == nil {
		return fmt.Errorf("%w: empty response for %s", ErrMalformedResponse, uri)
	}
	if p.TotalResults == nil {
		return fmt.Errorf("%w: no total result count in response for %s", ErrMalformedResponse, uri)
	}
	if *p.TotalResults < 0 {
		return fmt.Errorf("%w: negative total result count %d for %s", ErrMalformedResponse, *p.TotalResults, uri)
	}
	if p.Entries == nil {
		return fmt.Errorf("%w: no entries in response for %s", ErrMalformedResponse, uri)
	}
	return nil
}

// IntPtr returns a pointer to n. Executors use it to fill Page.TotalResults.
func IntPtr(n int) *int { return &n }
