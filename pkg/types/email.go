// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// EmailRecord is the canonical shape every archive adapter produces for one
// message sent by the author.
type EmailRecord struct {
	// MessageID is the archive-reported Message-ID without angle brackets.
	// It is the dedup key across all sources.
	MessageID string `json:"message_id" yaml:"message_id"`

	// Subject is whitespace-collapsed and may carry a synthesized "Re: " prefix.
	Subject string `json:"subject" yaml:"subject"`

	// Date is the archive-local calendar date. The zero value means the
	// archive's date text could not be parsed.
	Date time.Time `json:"date" yaml:"date"`

	// Source identifies the archive and list the record came from (e.g. "spinics/linux-mm").
	Source string `json:"source" yaml:"source"`
}

// HasDate reports whether the record carries a parsed date.
func (e EmailRecord) HasDate() bool {
	return !e.Date.IsZero()
}

// AggregatedEmail groups records sharing an identical subject string.
type AggregatedEmail struct {
	Subject string `json:"subject" yaml:"subject"`

	// LatestDate is the newest date seen for the subject, zero if none parsed.
	LatestDate time.Time `json:"latest_date" yaml:"latest_date"`

	// Count is the number of distinct message IDs sharing the subject.
	Count int `json:"count" yaml:"count"`
}

// Bucket is a report classification.
type Bucket string

const (
	BucketPatched Bucket = "patched"
	BucketReplied Bucket = "replied"
	BucketOthers  Bucket = "others"
)

// Report is the classified result of a run.
type Report struct {
	// Messages lists every aggregated subject, ascending by date.
	Messages []AggregatedEmail `json:"messages" yaml:"messages"`

	Patched []AggregatedEmail `json:"patched" yaml:"patched"`
	Replied []AggregatedEmail `json:"replied" yaml:"replied"`
	Others  []AggregatedEmail `json:"others" yaml:"others"`

	// Total is the number of distinct message IDs after merging.
	Total int `json:"total" yaml:"total"`

	// PatchedCount, RepliedCount and OthersCount sum the Count fields of
	// their bucket, not the number of distinct subjects.
	PatchedCount int `json:"patched_count" yaml:"patched_count"`
	RepliedCount int `json:"replied_count" yaml:"replied_count"`
	OthersCount  int `json:"others_count" yaml:"others_count"`

	// DuplicatesDropped counts records discarded because an earlier source
	// already reported the same message ID.
	DuplicatesDropped int `json:"duplicates_dropped" yaml:"duplicates_dropped"`

	// SourceErrors lists sources that aborted early, as "source: error".
	SourceErrors []string `json:"source_errors,omitempty" yaml:"source_errors,omitempty"`
}

// SourceResult is the outcome of harvesting one source. Records may be
// non-empty even when Err is set: a source that aborts keeps what it found.
type SourceResult struct {
	Source  Source
	Records map[string]EmailRecord
	Err     error
}
