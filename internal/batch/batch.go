// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch runs the searches listed in a query file. Each search is
// an independent session; sessions run on a bounded worker pool and a
// failing search does not stop the others.
package batch

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/els-search/internal/search"
)

// QueryFile is the on-disk list of searches.
type QueryFile struct {
	// Workers overrides the configured worker count when positive.
	Workers  int          `yaml:"workers,omitempty"`
	Searches []SearchSpec `yaml:"searches"`
}

// SearchSpec describes one search in a query file.
type SearchSpec struct {
	// Name labels the search in output; defaults to its position.
	Name   string `yaml:"name,omitempty"`
	Query  string `yaml:"query"`
	Index  string `yaml:"index,omitempty"`
	All    bool   `yaml:"all,omitempty"`
	Cursor bool   `yaml:"cursor,omitempty"`
	View   string `yaml:"view,omitempty"`
	Count  int    `yaml:"count,omitempty"`
}

// Label returns Name, or a positional label when Name is empty.
func (s SearchSpec) Label(i int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("search-%d", i+1)
}

// ReadQueryFile loads a query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	if len(qf.Searches) == 0 {
		return nil, fmt.Errorf("query file %s lists no searches", path)
	}
	return &qf, nil
}

// WriteQueryFile saves a query file to disk.
func WriteQueryFile(path string, qf *QueryFile) error {
	data, err := yaml.Marshal(qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Options configures a batch run.
type Options struct {
	// BaseURL roots every session's request URI; empty means search.DefaultBaseURL.
	BaseURL string

	// DefaultIndex applies to specs without an index.
	DefaultIndex string

	// Workers bounds concurrent sessions (default 1).
	Workers int

	// Builder is passed to every Execute.
	Builder search.TableBuilder

	Logger *zap.Logger
}

// Outcome is the result of one search. Session is nil when the search was
// rejected before execution; Err is nil on success.
type Outcome struct {
	Label    string
	Spec     SearchSpec
	Session  *search.Session
	Err      error
	Duration time.Duration
}

// Run executes every search in qf through exec and returns outcomes in
// file order. exec must be safe for concurrent use. Run only returns an
// error for a cancelled context; per-search failures are in the outcomes.
func Run(ctx context.Context, qf *QueryFile, exec search.Executor, opts Options) ([]Outcome, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	workers := opts.Workers
	if qf.Workers > 0 {
		workers = qf.Workers
	}
	if workers <= 0 {
		workers = 1
	}

	outcomes := make([]Outcome, len(qf.Searches))

	var g errgroup.Group
	g.SetLimit(workers)

	for i, spec := range qf.Searches {
		outcomes[i] = Outcome{Label: spec.Label(i), Spec: spec}
		g.Go(func() error {
			out := &outcomes[i]
			if err := ctx.Err(); err != nil {
				out.Err = err
				return nil
			}

			index := spec.Index
			if index == "" {
				index = opts.DefaultIndex
			}
			sess, err := search.NewWithBase(opts.BaseURL, spec.Query, index)
			if err != nil {
				out.Err = err
				return nil
			}
			out.Session = sess

			searchLog := log.With(zap.String("search", out.Label))
			start := time.Now()
			out.Err = sess.Execute(ctx, exec, search.ExecuteOptions{
				GetAll:    spec.All,
				UseCursor: spec.Cursor,
				View:      spec.View,
				Count:     spec.Count,
				Builder:   opts.Builder,
				Logger:    searchLog,
			})
			out.Duration = time.Since(start)

			if out.Err != nil {
				searchLog.Warn("search failed",
					zap.Int("fetched", sess.NumResults()),
					zap.Error(out.Err))
			} else {
				searchLog.Info("search finished",
					zap.Int("fetched", sess.NumResults()),
					zap.Int("total", sess.TotalResults()),
					zap.Duration("took", out.Duration))
			}
			return nil
		})
	}

	_ = g.Wait()
	return outcomes, ctx.Err()
}

// Failed counts outcomes with an error.
func Failed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
