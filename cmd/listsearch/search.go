// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/listsearch/internal/archive"
	"github.com/pdiddy/listsearch/internal/history"
	"github.com/pdiddy/listsearch/internal/httputil"
	"github.com/pdiddy/listsearch/internal/report"
	"github.com/pdiddy/listsearch/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search mailing-list archives for an author's messages in one month",
	Long: `Search fetches the selected archives for the given month, keeps the
messages sent from the author's addresses, merges them by Message-ID and
prints them grouped by subject as patches, replies and others.

Pipermail, HyperKitty and Red Hat internal lists are given as URL=list, or
just list to use the archiver's default installation:

  listsearch search --name "Jane Doe" --email jane@example.com \
    --year 2020 --month 6 --lkml --spinics linux-mm \
    --pipermail http://lists.infradead.org/pipermail/=kexec`,
	RunE: runSearch,
}

// flagKeys maps search flags to their configuration keys.
var flagKeys = map[string]string{
	"name":               "name",
	"email":              "email",
	"year":               "year",
	"month":              "month",
	"lkml":               "lkml",
	"spinics":            "spinics",
	"timeout":            "http.timeout",
	"user-agent":         "http.user_agent",
	"rate-limit-retries": "http.rate_limit_retries",
	"parallel":           "parallel",
	"spinics-exhaustive": "spinics_exhaustive",
	"history-db":         "history_db",
}

func init() {
	f := searchCmd.Flags()
	f.String("name", "", "author display name as shown by the archives")
	f.StringSlice("email", nil, "author email address (repeatable or comma-separated)")
	f.Int("year", 0, "year to search")
	f.Int("month", 0, "month to search (1-12)")
	f.Bool("lkml", false, "search the LKML hypermail archive")
	f.StringSlice("spinics", nil, "Spinics list name (repeatable)")
	f.StringArray("pipermail", nil, "Pipermail list as URL=list or list (repeatable)")
	f.StringArray("hyperkitty", nil, "HyperKitty list as URL=list or list (repeatable)")
	f.StringArray("rh-internal", nil, "Red Hat internal list as URL=list or list (repeatable)")
	f.Duration("timeout", 10*time.Second, "timeout for each fetch")
	f.String("user-agent", "listsearch/"+version, "User-Agent header for archive requests")
	f.Int("rate-limit-retries", 0, "retries for HTTP 429 responses")
	f.Bool("parallel", false, "search independent archives concurrently")
	f.Bool("spinics-exhaustive", false, "scan every Spinics page instead of stopping at the first older message")
	f.String("history-db", "", "record the run in this SQLite file")
	f.Bool("json", false, "print the report as JSON")
	f.StringP("output", "o", "", "also write the report to this YAML file")

	for flag, key := range flagKeys {
		viper.BindPFlag(key, f.Lookup(flag))
	}

	rootCmd.AddCommand(searchCmd)
}

// loadConfig merges config file, environment and flags into a Config.
// Archive flags add lists to the ones from the config file.
func loadConfig(cmd *cobra.Command) (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}

	for flag, dst := range map[string]*[]types.ListGroup{
		"pipermail":   &cfg.Pipermail,
		"hyperkitty":  &cfg.HyperKitty,
		"rh-internal": &cfg.RHInternal,
	} {
		values, _ := cmd.Flags().GetStringArray(flag)
		*dst = append(*dst, parseListFlags(values)...)
	}
	return cfg, nil
}

// parseListFlags turns "URL=list" or "list" values into list groups.
func parseListFlags(values []string) []types.ListGroup {
	var groups []types.ListGroup
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		g := types.ListGroup{Lists: []string{v}}
		if i := strings.LastIndex(v, "="); i >= 0 {
			g.URL, g.Lists[0] = v[:i], v[i+1:]
		}
		groups = append(groups, g)
	}
	return groups
}

func runSearch(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	req, err := cfg.Request()
	if err != nil {
		return err
	}
	if len(req.Sources) == 0 {
		return fmt.Errorf("no archives selected: use --lkml, --spinics, --pipermail, --hyperkitty or --rh-internal")
	}

	fmt.Fprintf(os.Stderr, "Searching for %s <%s>\n", req.AuthorName, strings.Join(req.AuthorEmails, ", "))

	ctx := context.Background()
	deps := archive.Deps{
		Fetcher:           httputil.NewClient(cfg.HTTP, logger),
		Logger:            logger,
		SpinicsExhaustive: cfg.SpinicsExhaustive,
	}
	results, err := archive.Harvest(ctx, req, deps, cfg.Parallel)
	if err != nil {
		return err
	}

	rep := report.Aggregate(results)

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		if err := report.FormatJSON(rep, os.Stdout); err != nil {
			return err
		}
	} else {
		report.FormatText(rep, os.Stdout)
	}

	if path, _ := cmd.Flags().GetString("output"); path != "" {
		if err := report.WriteReportFile(path, req, rep); err != nil {
			return err
		}
		logger.Info("report written", "path", path)
	}

	if cfg.HistoryDB != "" {
		if err := recordRun(ctx, cfg.HistoryDB, req, rep, results); err != nil {
			logger.Warn("history not recorded", "db", cfg.HistoryDB, "error", err)
		}
	}
	return nil
}

func recordRun(ctx context.Context, path string, req types.SearchRequest, rep types.Report, results []types.SourceResult) error {
	store, err := history.NewStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	merged, _, _ := report.Merge(results)
	_, err = store.SaveRun(ctx, req, rep, merged)
	return err
}
