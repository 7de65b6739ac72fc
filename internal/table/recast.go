// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package table reshapes raw search entries into a table and writes it in
// the formats the CLI offers.
package table

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/pdiddy/els-search/pkg/types"
)

// Columns the API sends with a fixed meaning.
const (
	colFA        = "@_fa"
	colLink      = "link"
	linkPrefix   = "link_"
	coverDateFmt = "2006-01-02"
)

// dateColumns hold ISO dates and are parsed into time.Time.
var dateColumns = map[string]bool{
	"prism:coverDate": true,
	"load-date":       true,
}

// intColumns hold counts the API sends as strings.
var intColumns = map[string]bool{
	"citedby-count":  true,
	"document-count": true,
	"openaccess":     true,
}

// Recast builds a table whose columns are the union of entry keys in
// first-seen order. Scalar values keep their type, "link" arrays are
// spread into one link_<ref> column per relation, known date and count
// columns are parsed, and other nested values become compact JSON.
type Recast struct{}

// Build implements search.TableBuilder.
func (Recast) Build(entries []types.Entry) (*types.Table, error) {
	var columns []string
	index := make(map[string]int)
	addColumn := func(name string) {
		if _, ok := index[name]; !ok {
			index[name] = len(columns)
			columns = append(columns, name)
		}
	}

	flat := make([]map[string]any, len(entries))
	for i, e := range entries {
		row, err := flatten(e)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		flat[i] = row
		for _, k := range orderedKeys(e, row) {
			addColumn(k)
		}
	}

	t := &types.Table{Columns: columns, Rows: make([][]any, len(flat))}
	for i, row := range flat {
		cells := make([]any, len(columns))
		for k, v := range row {
			cells[index[k]] = v
		}
		t.Rows[i] = cells
	}
	return t, nil
}

// orderedKeys returns the flattened keys of row with source keys sorted
// and link columns in link array order.
func orderedKeys(e types.Entry, row map[string]any) []string {
	var keys []string
	for _, k := range sortedKeys(e) {
		if k == colLink {
			for _, ref := range linkRefs(e[k]) {
				keys = append(keys, linkPrefix+ref)
			}
			continue
		}
		if _, ok := row[k]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

func sortedKeys(e types.Entry) []string {
	return slices.Sorted(maps.Keys(e))
}

func flatten(e types.Entry) (map[string]any, error) {
	row := make(map[string]any, len(e))
	for k, v := range e {
		switch {
		case k == colFA:
			continue
		case k == colLink:
			for ref, href := range linkHrefs(v) {
				row[linkPrefix+ref] = href
			}
			continue
		case dateColumns[k]:
			row[k] = parseDate(v)
			continue
		case intColumns[k]:
			row[k] = parseInt(v)
			continue
		}

		switch val := v.(type) {
		case nil, string, bool, float64, int, int64:
			row[k] = val
		default:
			data, err := json.Marshal(val)
			if err != nil {
				return nil, fmt.Errorf("encoding column %s: %w", k, err)
			}
			row[k] = string(data)
		}
	}
	return row, nil
}

// linkRefs returns the @ref values of a link array in order.
func linkRefs(v any) []string {
	items, _ := v.([]any)
	var refs []string
	seen := make(map[string]bool)
	for _, it := range items {
		m, _ := it.(map[string]any)
		ref, _ := m["@ref"].(string)
		if ref == "" || seen[ref] {
			continue
		}
		seen[ref] = true
		refs = append(refs, ref)
	}
	return refs
}

// linkHrefs maps each @ref of a link array to its first @href.
func linkHrefs(v any) map[string]string {
	items, _ := v.([]any)
	out := make(map[string]string)
	for _, it := range items {
		m, _ := it.(map[string]any)
		ref, _ := m["@ref"].(string)
		href, _ := m["@href"].(string)
		if ref == "" {
			continue
		}
		if _, ok := out[ref]; !ok {
			out[ref] = href
		}
	}
	return out
}

// parseDate returns a time.Time for an ISO date string and v unchanged
// otherwise.
func parseDate(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	t, err := time.Parse(coverDateFmt, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, s); err != nil {
			return v
		}
	}
	return t
}

// parseInt returns an int for numeric strings and numbers, and v unchanged
// otherwise.
func parseInt(v any) any {
	switch val := v.(type) {
	case string:
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	case float64:
		return int(val)
	}
	return v
}
