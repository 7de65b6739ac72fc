// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search runs a query against one index of the Elsevier search API
// and pages through its results.
//
// A Session is built from a query and an index without any network
// activity. Execute fetches the first page through an Executor and, when
// asked for everything, follows the "next" links the API advertises until
// the reported total is reached or, for indexes without cursor support,
// the 5,000-result ceiling stops it.
package search

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/pdiddy/els-search/internal/table"
	"github.com/pdiddy/els-search/pkg/types"
)

const (
	// DefaultBaseURL is the root of the Elsevier search endpoints.
	DefaultBaseURL = "https://api.elsevier.com/content/search/"

	// DefaultPageSize is the count requested per page when none is given.
	DefaultPageSize = 25

	// ResultCeiling is the most results offset-paginated indexes will serve.
	ResultCeiling = 5000
)

// cursorIndexes lists the indexes that paginate with an opaque cursor and
// have no retrieval ceiling.
var cursorIndexes = map[string]bool{
	"scopus": true,
}

// IsCursorCapable reports whether index supports cursor-based pagination.
func IsCursorCapable(index string) bool { return cursorIndexes[index] }

// ExecuteOptions controls one Execute call. The zero value fetches a single
// page of DefaultPageSize entries.
type ExecuteOptions struct {
	// GetAll follows "next" links until every result (or the ceiling) is fetched.
	GetAll bool

	// UseCursor adds cursor=* to the first request.
	UseCursor bool

	// View selects the response view; empty omits the parameter.
	View string

	// Count is the page size; 0 means DefaultPageSize.
	Count int

	// Builder produces the result table; nil means table.Recast.
	Builder TableBuilder

	// Progress, when set, is called after every page.
	Progress ProgressFunc

	// Logger receives per-page debug output; nil discards it.
	Logger *zap.Logger
}

// Session is one search: a query against an index and the results
// retrieved for it. A Session must not be shared between goroutines while
// Execute runs; overlapping calls fail with ErrExecuteInProgress.
type Session struct {
	query         string
	index         string
	uri           string
	cursorCapable bool

	totalResults int
	results      []types.Entry
	table        *types.Table

	running atomic.Bool
}

// New creates a session against DefaultBaseURL.
func New(query, index string) (*Session, error) {
	return NewWithBase(DefaultBaseURL, query, index)
}

// NewWithBase creates a session whose request URI is rooted at base
// instead of DefaultBaseURL. The URI is
// base + index + "?query=" + url.QueryEscape(query).
func NewWithBase(base, query, index string) (*Session, error) {
	if strings.TrimSpace(index) == "" {
		return nil, fmt.Errorf("%w: index is empty", ErrInvalidArgument)
	}
	if url.PathEscape(index) != index {
		return nil, fmt.Errorf("%w: index %q contains characters not allowed in a path segment", ErrInvalidArgument, index)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrInvalidArgument)
	}
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	return &Session{
		query:         query,
		index:         index,
		uri:           base + index + "?query=" + url.QueryEscape(query),
		cursorCapable: IsCursorCapable(index),
		totalResults:  -1,
	}, nil
}

// Query returns the search expression.
func (s *Session) Query() string { return s.query }

// Index returns the target index.
func (s *Session) Index() string { return s.index }

// URI returns the base request URI, without cursor, view or count.
func (s *Session) URI() string { return s.uri }

// CursorCapable reports whether the index paginates without a ceiling.
func (s *Session) CursorCapable() bool { return s.cursorCapable }

// TotalResults returns the provider-reported number of matches, or -1
// before the first successful page. It can exceed what is retrievable.
func (s *Session) TotalResults() int { return s.totalResults }

// NumResults returns how many entries have been retrieved.
func (s *Session) NumResults() int { return len(s.results) }

// Results returns a copy of the retrieved entries in retrieval order.
func (s *Session) Results() []types.Entry {
	out := make([]types.Entry, len(s.results))
	copy(out, s.results)
	return out
}

// Table returns the table built at the end of the last successful Execute,
// or nil.
func (s *Session) Table() *types.Table { return s.table }

// UpperLimitReached reports whether the retrieval ceiling stops further
// paging. Cursor-capable indexes never reach it.
func (s *Session) UpperLimitReached() bool {
	if s.cursorCapable {
		return false
	}
	return len(s.results) >= ResultCeiling
}

// HasAllResults reports whether every matching entry was retrieved. A
// session stopped by the ceiling reports false.
func (s *Session) HasAllResults() bool {
	return s.totalResults >= 0 && len(s.results) == s.totalResults
}

// RequestURI returns the URI of the first request Execute would issue for opts.
func (s *Session) RequestURI(opts ExecuteOptions) string {
	var b strings.Builder
	b.WriteString(s.uri)
	if opts.UseCursor {
		b.WriteString("&cursor=*")
	}
	if opts.View != "" {
		b.WriteString("&view=")
		b.WriteString(url.QueryEscape(opts.View))
	}
	count := opts.Count
	if count == 0 {
		count = DefaultPageSize
	}
	b.WriteString("&count=")
	b.WriteString(strconv.Itoa(count))
	return b.String()
}

// Execute runs the search. Each call starts over: previous results, total
// and table are discarded before the first request. On failure the entries
// from pages fetched so far stay available through Results; the table is
// only rebuilt when every page succeeded.
//
// Cancellation of ctx is checked between page fetches.
func (s *Session) Execute(ctx context.Context, exec Executor, opts ExecuteOptions) error {
	if exec == nil {
		return fmt.Errorf("%w: nil executor", ErrInvalidArgument)
	}
	if opts.Count < 0 {
		return fmt.Errorf("%w: negative page size %d", ErrInvalidArgument, opts.Count)
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrExecuteInProgress
	}
	defer s.running.Store(false)

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("index", s.index))

	if opts.UseCursor && !s.cursorCapable {
		log.Warn("cursor pagination requested on an index without cursor support")
	}

	s.results = nil
	s.totalResults = -1
	s.table = nil

	uri := s.RequestURI(opts)
	page, err := s.fetch(ctx, exec, uri)
	if err != nil {
		return err
	}
	s.totalResults = *page.TotalResults
	s.appendPage(page, log)
	s.report(opts.Progress)
	log.Debug("first page fetched",
		zap.Int("total", s.totalResults),
		zap.Int("fetched", len(s.results)))

	if opts.GetAll {
		if err := s.paginate(ctx, exec, page, opts.Progress, log); err != nil {
			return err
		}
	}

	builder := opts.Builder
	if builder == nil {
		builder = table.Recast{}
	}
	tbl, err := builder.Build(s.Results())
	if err != nil {
		return fmt.Errorf("building result table: %w", err)
	}
	s.table = tbl
	return nil
}

// paginate follows "next" links from page until no more results are
// needed.
func (s *Session) paginate(ctx context.Context, exec Executor, page *Page, progress ProgressFunc, log *zap.Logger) error {
	for len(s.results) < s.totalResults && !s.UpperLimitReached() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("search interrupted with %d of %d results fetched: %w",
				len(s.results), s.totalResults, err)
		}

		next, ok := page.Next()
		if !ok {
			return fmt.Errorf("%w: %d of %d results fetched",
				ErrMissingContinuation, len(s.results), s.totalResults)
		}

		var err error
		page, err = s.fetch(ctx, exec, next)
		if err != nil {
			return err
		}

		before := len(s.results)
		s.appendPage(page, log)
		if len(s.results) == before {
			// An empty page would never advance the loop.
			return fmt.Errorf("%w: page %s has no entries with %d of %d results fetched",
				ErrMalformedResponse, next, before, s.totalResults)
		}
		s.report(progress)
		log.Debug("page fetched",
			zap.Int("fetched", len(s.results)),
			zap.Int("total", s.totalResults))
	}

	if s.UpperLimitReached() && len(s.results) < s.totalResults {
		log.Info("retrieval ceiling reached",
			zap.Int("ceiling", ResultCeiling),
			zap.Int("total", s.totalResults))
	}
	return nil
}

func (s *Session) fetch(ctx context.Context, exec Executor, uri string) (*Page, error) {
	page, err := exec.Exec(ctx, uri)
	if err != nil {
		return nil, asTransportError(uri, err)
	}
	if err := page.validate(uri); err != nil {
		return nil, err
	}
	return page, nil
}

// appendPage adds the page's entries, dropping any that would take the
// results past the reported total or, without cursor support, the ceiling.
func (s *Session) appendPage(page *Page, log *zap.Logger) {
	limit := s.totalResults
	if !s.cursorCapable && limit > ResultCeiling {
		limit = ResultCeiling
	}
	entries := page.Entries
	room := max(limit-len(s.results), 0)
	if len(entries) > room {
		log.Debug("dropping entries beyond the retrievable limit",
			zap.Int("received", len(entries)),
			zap.Int("kept", room))
		entries = entries[:room]
	}
	s.results = append(s.results, entries...)
}

func (s *Session) report(progress ProgressFunc) {
	if progress != nil {
		progress(len(s.results), s.totalResults)
	}
}
