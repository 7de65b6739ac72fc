// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for els-search.
// Entries and tables flow from the search core to the table writers and
// the history store; config structs are filled by the CLI from viper.
package types

import "time"

// Entry is one raw search-result record exactly as the API returned it,
// before any tabular normalization. Keys keep their namespaced form
// (e.g. "dc:title", "prism:coverDate").
type Entry map[string]any

// String returns the value of key when it holds a string, or "".
func (e Entry) String(key string) string {
	if s, ok := e[key].(string); ok {
		return s
	}
	return ""
}

// Table is the tabular projection of a sequence of entries. Rows are in
// entry order and every row has exactly len(Columns) cells; a nil cell
// means the entry did not carry that column.
type Table struct {
	Columns []string `json:"columns" yaml:"columns"`
	Rows    [][]any  `json:"rows" yaml:"rows"`
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Column returns the index of the named column, or -1.
func (t *Table) Column(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// SearchRecord summarizes one executed search as kept in the history store.
type SearchRecord struct {
	// ID is a UUID assigned when the search is saved.
	ID string `json:"id" yaml:"id"`

	// Query is the opaque search expression.
	Query string `json:"query" yaml:"query"`

	// Index is the searched collection (e.g. "scopus", "sciencedirect").
	Index string `json:"index" yaml:"index"`

	// URI is the base request URI the search was built from.
	URI string `json:"uri" yaml:"uri"`

	// TotalResults is the provider-reported number of matches.
	TotalResults int `json:"total_results" yaml:"total_results"`

	// Retrieved is the number of entries actually fetched.
	Retrieved int `json:"retrieved" yaml:"retrieved"`

	// Complete reports whether every matching entry was fetched.
	Complete bool `json:"complete" yaml:"complete"`

	// ExecutedAt is when the search finished.
	ExecutedAt time.Time `json:"executed_at" yaml:"executed_at"`
}
