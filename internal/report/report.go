// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report merges per-source harvests into one classified report and
// renders it as text, JSON, or a YAML report file.
package report

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/pdiddy/listsearch/pkg/types"
)

var (
	replyRe       = regexp.MustCompile(`(?i)^re:|\sre:\s`)
	patchRe       = regexp.MustCompile(`(?i)\bpatch\b`)
	coverLetterRe = regexp.MustCompile(`\s0+/\d`)
)

// Merge unions the record maps of results in slice order. The first source
// to report a message ID keeps it; later copies are counted as duplicates.
// Sources that failed contribute their partial records and an entry in the
// returned error list.
func Merge(results []types.SourceResult) (merged map[string]types.EmailRecord, dups int, sourceErrors []string) {
	merged = make(map[string]types.EmailRecord)
	for _, r := range results {
		if r.Err != nil {
			sourceErrors = append(sourceErrors, fmt.Sprintf("%s: %v", r.Source, r.Err))
		}
		// Map iteration order is random; sort ids so the merge is deterministic.
		ids := make([]string, 0, len(r.Records))
		for id := range r.Records {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if _, ok := merged[id]; ok {
				dups++
				continue
			}
			merged[id] = r.Records[id]
		}
	}
	return merged, dups, sourceErrors
}

// Group collapses records sharing an identical subject. Count is the number
// of message IDs per subject and LatestDate the newest parsed date. The
// result is sorted ascending by date, undated subjects last, ties by subject.
func Group(records map[string]types.EmailRecord) []types.AggregatedEmail {
	bySubject := make(map[string]*types.AggregatedEmail)
	for _, rec := range records {
		agg, ok := bySubject[rec.Subject]
		if !ok {
			agg = &types.AggregatedEmail{Subject: rec.Subject}
			bySubject[rec.Subject] = agg
		}
		agg.Count++
		if rec.HasDate() && rec.Date.After(agg.LatestDate) {
			agg.LatestDate = rec.Date
		}
	}

	out := make([]types.AggregatedEmail, 0, len(bySubject))
	for _, agg := range bySubject {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.LatestDate.IsZero() != b.LatestDate.IsZero() {
			return !a.LatestDate.IsZero()
		}
		if !a.LatestDate.Equal(b.LatestDate) {
			return a.LatestDate.Before(b.LatestDate)
		}
		return a.Subject < b.Subject
	})
	return out
}

// Classify picks the bucket for a subject. Replies win over patches, and a
// "0/N" cover letter is never a patch.
func Classify(subject string) types.Bucket {
	switch {
	case replyRe.MatchString(subject):
		return types.BucketReplied
	case patchRe.MatchString(subject) && !coverLetterRe.MatchString(subject):
		return types.BucketPatched
	default:
		return types.BucketOthers
	}
}

// Aggregate merges, groups and classifies results into a Report.
func Aggregate(results []types.SourceResult) types.Report {
	merged, dups, sourceErrors := Merge(results)

	rep := types.Report{
		Messages:          Group(merged),
		Total:             len(merged),
		DuplicatesDropped: dups,
		SourceErrors:      sourceErrors,
	}
	for _, agg := range rep.Messages {
		switch Classify(agg.Subject) {
		case types.BucketReplied:
			rep.Replied = append(rep.Replied, agg)
			rep.RepliedCount += agg.Count
		case types.BucketPatched:
			rep.Patched = append(rep.Patched, agg)
			rep.PatchedCount += agg.Count
		default:
			rep.Others = append(rep.Others, agg)
			rep.OthersCount += agg.Count
		}
	}
	return rep
}

const dateFmt = "2006-01-02"

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format(dateFmt)
}
