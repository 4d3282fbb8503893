// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pdiddy/listsearch/pkg/types"
)

// FormatText writes the report in the classic layout: every subject under
// "Messages:", then the bucket sections, then a one-line summary. Subjects
// seen more than once carry a right-aligned "[count]".
func FormatText(rep types.Report, w io.Writer) {
	section := func(title string, list []types.AggregatedEmail) {
		fmt.Fprintln(w, title)
		for _, agg := range list {
			writeEntry(w, agg)
		}
	}
	section("Messages:", rep.Messages)
	section("Patches:", rep.Patched)
	section("Replied:", rep.Replied)
	section("Others:", rep.Others)

	fmt.Fprintf(w, "%d message(s) found, %d patched, %d replied, %d others\n",
		rep.Total, rep.PatchedCount, rep.RepliedCount, rep.OthersCount)
	if rep.DuplicatesDropped > 0 {
		fmt.Fprintf(w, "(%d duplicates dropped)\n", rep.DuplicatesDropped)
	}
	for _, e := range rep.SourceErrors {
		fmt.Fprintf(w, "warning: %s\n", e)
	}
}

func writeEntry(w io.Writer, agg types.AggregatedEmail) {
	count := ""
	if agg.Count > 1 {
		count = fmt.Sprintf("[%d]", agg.Count)
	}
	fmt.Fprintf(w, "%8s %s %s\n", count, formatDate(agg.LatestDate), agg.Subject)
}

// FormatJSON writes the report as indented JSON to w.
func FormatJSON(rep types.Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
