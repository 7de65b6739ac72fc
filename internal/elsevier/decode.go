// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package elsevier

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pdiddy/els-search/internal/search"
	"github.com/pdiddy/els-search/pkg/types"
)

// Field names of the search response envelope. Keys containing ':' or '@'
// are read through Map() rather than gjson paths so they need no escaping.
const (
	keyResults = "search-results"
	keyTotal   = "opensearch:totalResults"
	keyEntry   = "entry"
	keyLink    = "link"
	keyRef     = "@ref"
	keyHref    = "@href"
	keyError   = "error"
	keyFA      = "@_fa"
)

// DecodePage parses a search response body. Absent fields are left nil
// in the returned page so the session can report a malformed response;
// only bodies that are not JSON at all fail here.
func DecodePage(body []byte) (*search.Page, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: response is not valid JSON", search.ErrMalformedResponse)
	}

	root := gjson.GetBytes(body, keyResults)
	if !root.Exists() || !root.IsObject() {
		return &search.Page{}, nil
	}
	fields := root.Map()

	page := &search.Page{}

	if total, ok := fields[keyTotal]; ok {
		n, err := parseTotal(total)
		if err != nil {
			return nil, err
		}
		page.TotalResults = &n
	}

	if entry, ok := fields[keyEntry]; ok && entry.IsArray() {
		page.Entries = make([]types.Entry, 0, len(entry.Array()))
		for _, e := range entry.Array() {
			m, ok := e.Value().(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: entry is %s, want an object", search.ErrMalformedResponse, e.Type)
			}
			page.Entries = append(page.Entries, types.Entry(m))
		}
	}

	// An empty result set, or a cursor page past the last served entry,
	// still carries one placeholder entry holding only an "error" field.
	if page.Entries != nil {
		page.Entries = dropPlaceholders(page.Entries)
	}

	if link, ok := fields[keyLink]; ok {
		switch {
		case link.IsArray():
			link.ForEach(func(_, l gjson.Result) bool {
				page.Links = append(page.Links, decodeLink(l))
				return true
			})
		case link.IsObject():
			page.Links = append(page.Links, decodeLink(link))
		}
	}

	return page, nil
}

// parseTotal reads the total count, which the API sends as a string.
func parseTotal(r gjson.Result) (int, error) {
	switch r.Type {
	case gjson.Number:
		if r.Num != float64(int(r.Num)) {
			return 0, fmt.Errorf("%w: total result count %s is not an integer", search.ErrMalformedResponse, r.Raw)
		}
		return int(r.Num), nil
	case gjson.String:
		n, err := strconv.Atoi(strings.TrimSpace(r.Str))
		if err != nil {
			return 0, fmt.Errorf("%w: total result count %q is not an integer", search.ErrMalformedResponse, r.Str)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: total result count has type %s", search.ErrMalformedResponse, r.Type)
	}
}

func decodeLink(l gjson.Result) search.Link {
	lm := l.Map()
	return search.Link{Ref: lm[keyRef].String(), Href: lm[keyHref].String()}
}

func dropPlaceholders(entries []types.Entry) []types.Entry {
	out := entries[:0]
	for _, e := range entries {
		if isPlaceholder(e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// isPlaceholder reports an entry carrying "error" and nothing else but "@_fa".
func isPlaceholder(e types.Entry) bool {
	if _, ok := e[keyError]; !ok {
		return false
	}
	for k := range e {
		if k != keyError && k != keyFA {
			return false
		}
	}
	return true
}

// serviceError extracts the provider's message from an error body. The
// API uses a "service-error" envelope for most failures and a bare
// "error-response" for authentication problems.
func serviceError(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	for _, path := range []string{
		"service-error.status.statusText",
		"error-response.error-message",
		"error-response.error-code",
	} {
		if v := gjson.GetBytes(body, path); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
