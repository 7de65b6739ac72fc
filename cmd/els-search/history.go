// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/els-search/internal/store"
	"github.com/pdiddy/els-search/internal/table"
	"github.com/pdiddy/els-search/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect searches saved with --save",
	Long: `History manages the local SQLite database of saved searches. Saved
entries can be re-exported in any output format without calling the API.`,
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved searches, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	st, err := store.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.List(context.Background(), limit)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Println("No saved searches.")
		return nil
	}
	fmt.Println(historyTable(records))
	fmt.Printf("%d searches\n", len(records))
	return nil
}

func historyTable(records []types.SearchRecord) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		complete := "no"
		if r.Complete {
			complete = "yes"
		}
		query := r.Query
		if len([]rune(query)) > 40 {
			query = string([]rune(query)[:37]) + "..."
		}
		rows = append(rows, []string{
			r.ID,
			r.ExecutedAt.Local().Format("2006-01-02 15:04"),
			r.Index,
			query,
			strconv.Itoa(r.Retrieved) + "/" + strconv.Itoa(r.TotalResults),
			complete,
		})
	}

	return renderTable([]string{"ID", "Executed", "Index", "Query", "Retrieved", "Complete"}, rows)
}

// --- show subcommand ---

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print the entries of a saved search",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	formatName, _ := cmd.Flags().GetString("format")
	format, err := table.ParseFormat(formatName)
	if err != nil {
		return err
	}

	st, err := store.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, entries, err := st.Load(context.Background(), args[0])
	if err != nil {
		return err
	}

	if expr, _ := cmd.Flags().GetString("jq"); expr != "" {
		if entries, err = table.Project(entries, expr); err != nil {
			return err
		}
	}
	tbl, err := table.Recast{}.Build(entries)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "%s on %s: %d of %d results, saved %s\n",
		rec.Query, rec.Index, rec.Retrieved, rec.TotalResults, rec.ExecutedAt.Local().Format("2006-01-02 15:04"))

	outPath, _ := cmd.Flags().GetString("output")
	return writeOutput(outPath, format, tbl, entries)
}

// --- delete subcommand ---

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a saved search and its entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.NewStore(cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Delete(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "maximum searches to list (0 for all)")
	historyListCmd.Flags().Bool("json", false, "output as JSON")

	historyShowCmd.Flags().String("format", string(table.FormatText), fmt.Sprintf("output format %v", table.Formats))
	historyShowCmd.Flags().StringP("output", "o", "", "write results to a file instead of stdout")
	historyShowCmd.Flags().String("jq", "", "jq expression applied to each entry before tabulation")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)

	rootCmd.AddCommand(historyCmd)
}
