// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/els-search/internal/batch"
	"github.com/pdiddy/els-search/internal/elsevier"
	"github.com/pdiddy/els-search/internal/store"
)

var batchCmd = &cobra.Command{
	Use:   "batch <query-file>",
	Short: "Run every search listed in a YAML query file",
	Long: `Batch reads a YAML query file and runs each search as its own session
on a small worker pool. A failing search does not stop the others; the
command exits non-zero when any search failed.

Example query file:

  workers: 2
  searches:
    - name: graphene
      query: TITLE-ABS-KEY(graphene)
      all: true
    - query: heart failure
      index: sciencedirect`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func runBatch(cmd *cobra.Command, args []string) error {
	qf, err := batch.ReadQueryFile(args[0])
	if err != nil {
		return err
	}

	client, err := elsevier.NewClient(cfg.API, nil, logger)
	if err != nil {
		return err
	}

	workers := cfg.Batch.Workers
	if cmd.Flags().Changed("workers") {
		workers, _ = cmd.Flags().GetInt("workers")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	outcomes, err := batch.Run(ctx, qf, client, batch.Options{
		BaseURL:      cfg.API.BaseURL,
		DefaultIndex: cfg.Search.Index,
		Workers:      workers,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		if err := saveOutcomes(ctx, outcomes); err != nil {
			return err
		}
	}

	fmt.Println(summaryTable(outcomes))
	if n := batch.Failed(outcomes); n > 0 {
		return fmt.Errorf("%d of %d searches failed", n, len(outcomes))
	}
	return nil
}

// saveOutcomes records every successful search; failures are skipped.
func saveOutcomes(ctx context.Context, outcomes []batch.Outcome) error {
	st, err := store.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	for i := range outcomes {
		o := &outcomes[i]
		if o.Err != nil || o.Session == nil {
			continue
		}
		rec, err := st.Save(ctx, recordFor(o.Session), o.Session.Results())
		if err != nil {
			return fmt.Errorf("saving %s: %w", o.Label, err)
		}
		logger.Info("search saved", zap.String("search", o.Label), zap.String("id", rec.ID))
	}
	return nil
}

func summaryTable(outcomes []batch.Outcome) string {
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		fetched, total, status := "-", "-", "ok"
		if o.Session != nil {
			fetched = strconv.Itoa(o.Session.NumResults())
			if o.Session.TotalResults() >= 0 {
				total = strconv.Itoa(o.Session.TotalResults())
			}
		}
		switch {
		case o.Err != nil:
			status = o.Err.Error()
		case o.Session.UpperLimitReached() && !o.Session.HasAllResults():
			status = "limit reached"
		case !o.Session.HasAllResults():
			status = "partial"
		}
		rows = append(rows, []string{o.Label, fetched, total, o.Duration.Round(time.Millisecond).String(), status})
	}

	return renderTable([]string{"Search", "Fetched", "Total", "Took", "Status"}, rows)
}

// renderTable draws a bordered table with bold headers.
func renderTable(headers []string, rows [][]string) string {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == lgtable.HeaderRow {
				return header
			}
			return cell
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}

func init() {
	batchCmd.Flags().Int("workers", 0, "searches to run at once (default from config)")
	batchCmd.Flags().Bool("save", false, "record successful searches in the history store")

	rootCmd.AddCommand(batchCmd)
}
