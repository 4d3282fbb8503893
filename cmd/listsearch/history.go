// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/listsearch/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past search runs recorded in the history database",
	Long: `History lists runs recorded by "search --history-db" (or history_db in the
config file), newest first. Use --run to print the messages of one run.`,
	RunE: runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.String("db", "", "history database (default: history_db from config)")
	f.String("author", "", "only runs for this author name")
	f.Int("year", 0, "only runs for this year")
	f.Int("month", 0, "only runs for this month")
	f.Int("limit", 20, "maximum number of runs to list")
	f.Int64("run", 0, "print the messages of this run")
	f.Bool("json", false, "output as JSON")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		path = viper.GetString("history_db")
	}
	if path == "" {
		return fmt.Errorf("no history database: set --db or history_db")
	}

	store, err := history.NewStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if runID, _ := cmd.Flags().GetInt64("run"); runID != 0 {
		msgs, err := store.Messages(ctx, runID)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(os.Stdout, msgs)
		}
		formatMessages(os.Stdout, msgs)
		return nil
	}

	opts := history.ListOptions{}
	opts.Author, _ = cmd.Flags().GetString("author")
	opts.Year, _ = cmd.Flags().GetInt("year")
	month, _ := cmd.Flags().GetInt("month")
	opts.Month = time.Month(month)
	opts.Limit, _ = cmd.Flags().GetInt("limit")

	runs, err := store.ListRuns(ctx, opts)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(os.Stdout, runs)
	}
	formatRuns(os.Stdout, runs)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatRuns(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	fmt.Fprintf(w, "%-5s  %-7s  %-20s  %-5s  %-7s  %-7s  %-6s  %s\n",
		"Run", "Month", "Author", "Total", "Patched", "Replied", "Others", "Recorded")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, r := range runs {
		author := r.Author
		if len(author) > 20 {
			author = author[:17] + "..."
		}
		fmt.Fprintf(w, "%-5d  %04d-%02d  %-20s  %-5d  %-7d  %-7d  %-6d  %s\n",
			r.ID, r.Year, int(r.Month), author, r.Total, r.Patched, r.Replied, r.Others,
			r.CreatedAt.Local().Format("2006-01-02 15:04"))
		for _, e := range r.Errors {
			fmt.Fprintf(w, "       warning: %s\n", e)
		}
	}
}

func formatMessages(w io.Writer, msgs []history.Message) {
	if len(msgs) == 0 {
		fmt.Fprintln(w, "No messages recorded for this run.")
		return
	}
	for _, m := range msgs {
		date := "unknown"
		if !m.Date.IsZero() {
			date = m.Date.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%-10s  %-8s  %-20s  %s\n", date, m.Bucket, m.Source, m.Subject)
	}
}
