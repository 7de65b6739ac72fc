// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/els-search/internal/elsevier"
	"github.com/pdiddy/els-search/internal/search"
	"github.com/pdiddy/els-search/internal/store"
	"github.com/pdiddy/els-search/internal/table"
	"github.com/pdiddy/els-search/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run a query against an Elsevier search index",
	Long: `Search sends a query to one Elsevier search index and writes the
results. By default only the first page is fetched; --all follows the
API's "next" links until every result is retrieved. Indexes without
cursor support (everything except scopus) stop at 5,000 results.

If a later page fails, the results already retrieved are still written
when --output names a file.

Query syntax is passed through untouched, e.g.
  els-search search --query 'TITLE-ABS-KEY(graphene) AND PUBYEAR > 2020' --all`,
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	query, _ := cmd.Flags().GetString("query")
	opts, index := searchOptionsFromFlags(cmd)

	formatName, _ := cmd.Flags().GetString("format")
	format, err := table.ParseFormat(formatName)
	if err != nil {
		return err
	}

	var proj *table.Projection
	if expr, _ := cmd.Flags().GetString("jq"); expr != "" {
		proj, err = table.CompileProjection(expr)
		if err != nil {
			return err
		}
		opts.Builder = proj
	}

	sess, err := search.NewWithBase(cfg.API.BaseURL, query, index)
	if err != nil {
		return err
	}
	client, err := elsevier.NewClient(cfg.API, nil, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts.Progress = progressPrinter(os.Stderr)
	opts.Logger = logger

	outPath, _ := cmd.Flags().GetString("output")

	logger.Debug("executing search", zap.String("uri", sess.RequestURI(opts)))
	if err := sess.Execute(ctx, client, opts); err != nil {
		fmt.Fprintln(os.Stderr)
		fmt.Fprintf(os.Stderr, "Retrieved %d of %d results before failing.\n", sess.NumResults(), max(sess.TotalResults(), 0))
		if outPath != "" {
			if werr := writePartial(outPath, format, proj, sess.Results()); werr != nil {
				logger.Warn("writing partial results", zap.String("path", outPath), zap.Error(werr))
			}
		}
		return err
	}
	fmt.Fprintln(os.Stderr)
	reportLimits(sess)

	if save, _ := cmd.Flags().GetBool("save"); save {
		rec, err := saveSession(ctx, sess)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved as %s\n", rec.ID)
	}

	entries := sess.Results()
	if proj != nil {
		if entries, err = proj.Apply(entries); err != nil {
			return err
		}
	}

	return writeOutput(outPath, format, sess.Table(), entries)
}

// writePartial writes the entries gathered before a failed search to
// path so completed pages are not lost. Nothing is written when no
// entries arrived.
func writePartial(path string, format table.Format, proj *table.Projection, entries []types.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	var builder search.TableBuilder = table.Recast{}
	if proj != nil {
		builder = proj
	}
	tbl, err := builder.Build(entries)
	if err != nil {
		return err
	}
	if proj != nil {
		if entries, err = proj.Apply(entries); err != nil {
			return err
		}
	}
	return writeOutput(path, format, tbl, entries)
}

// searchOptionsFromFlags merges command flags over the configured search
// defaults. Only flags the user set override config values.
func searchOptionsFromFlags(cmd *cobra.Command) (search.ExecuteOptions, string) {
	d := cfg.Search
	f := cmd.Flags()

	index := d.Index
	if f.Changed("index") {
		index, _ = f.GetString("index")
	}
	opts := search.ExecuteOptions{
		GetAll:    d.GetAll,
		UseCursor: d.UseCursor,
		View:      d.View,
		Count:     d.Count,
	}
	if f.Changed("all") {
		opts.GetAll, _ = f.GetBool("all")
	}
	if f.Changed("cursor") {
		opts.UseCursor, _ = f.GetBool("cursor")
	}
	if f.Changed("view") {
		opts.View, _ = f.GetString("view")
	}
	if f.Changed("count") {
		opts.Count, _ = f.GetInt("count")
	}
	return opts, index
}

// progressPrinter redraws a single status line on w after every page.
func progressPrinter(w io.Writer) search.ProgressFunc {
	start := time.Now()
	return func(fetched, total int) {
		pct := 100.0
		if total > 0 {
			pct = float64(fetched) / float64(total) * 100
		}
		fmt.Fprintf(w, "\rFetched %d of %d results (%.0f%%) in %s",
			fetched, total, pct, time.Since(start).Round(time.Second))
	}
}

func reportLimits(sess *search.Session) {
	switch {
	case sess.HasAllResults():
		return
	case sess.UpperLimitReached():
		fmt.Fprintf(os.Stderr, "Stopped at the %d-result limit of the %s index (%d matches).\n",
			search.ResultCeiling, sess.Index(), sess.TotalResults())
	default:
		fmt.Fprintf(os.Stderr, "Showing %d of %d results; use --all to fetch the rest.\n",
			sess.NumResults(), sess.TotalResults())
	}
}

func saveSession(ctx context.Context, sess *search.Session) (types.SearchRecord, error) {
	st, err := store.NewStore(cfg.Store)
	if err != nil {
		return types.SearchRecord{}, err
	}
	defer st.Close()
	return st.Save(ctx, recordFor(sess), sess.Results())
}

func recordFor(sess *search.Session) types.SearchRecord {
	return types.SearchRecord{
		Query:        sess.Query(),
		Index:        sess.Index(),
		URI:          sess.URI(),
		TotalResults: sess.TotalResults(),
		Complete:     sess.HasAllResults(),
		ExecutedAt:   time.Now().UTC(),
	}
}

// writeOutput writes to path, or to stdout when path is empty. Paths
// ending in .zst or .gz are compressed.
func writeOutput(path string, format table.Format, tbl *types.Table, entries []types.Entry) error {
	if path == "" {
		return table.Write(os.Stdout, format, tbl, entries)
	}
	f, err := table.CreateFile(path)
	if err != nil {
		return err
	}
	if err := table.Write(f, format, tbl, entries); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %d rows to %s\n", tbl.Len(), path)
	return nil
}

func addSearchFlags(cmd *cobra.Command) {
	d := types.DefaultConfig().Search
	cmd.Flags().String("index", d.Index, "index to search (scopus, sciencedirect, ...)")
	cmd.Flags().Bool("all", d.GetAll, "fetch every page (up to 5,000 results for non-scopus indexes)")
	cmd.Flags().Bool("cursor", d.UseCursor, "use cursor pagination (scopus only)")
	cmd.Flags().String("view", d.View, "response view, e.g. STANDARD or COMPLETE")
	cmd.Flags().Int("count", d.Count, "results per page")
}

func init() {
	searchCmd.Flags().String("query", "", "search expression in the index's query syntax")
	_ = searchCmd.MarkFlagRequired("query")
	addSearchFlags(searchCmd)
	searchCmd.Flags().String("format", string(table.FormatText), fmt.Sprintf("output format %v", table.Formats))
	searchCmd.Flags().StringP("output", "o", "", "write results to a file instead of stdout (.zst or .gz to compress)")
	searchCmd.Flags().String("jq", "", "jq expression applied to each entry before tabulation")
	searchCmd.Flags().Bool("save", false, "record the search and its entries in the history store")

	rootCmd.AddCommand(searchCmd)
}
