// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for listsearch: the resolved
// search request, the canonical email record every archive adapter produces,
// and the aggregated report built from them.
package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrIncompleteRequest is returned when a request lacks the author name,
// author emails, year, or month. No network activity happens for such a request.
var ErrIncompleteRequest = errors.New("incomplete search request")

// SourceKind identifies which archiver format a Source is served by.
type SourceKind string

const (
	SourceLKML       SourceKind = "lkml"
	SourceSpinics    SourceKind = "spinics"
	SourcePipermail  SourceKind = "pipermail"
	SourceHyperKitty SourceKind = "hyperkitty"
	SourceRHInternal SourceKind = "rh_internal"
)

// Source is one mailing list on one archive installation.
type Source struct {
	// Kind selects the adapter.
	Kind SourceKind `json:"kind" yaml:"kind"`

	// BaseURL overrides the archiver's default base URL. Pipermail and
	// HyperKitty have many installations, so it is usually set for them.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// List is the mailing list name. Empty for LKML.
	List string `json:"list,omitempty" yaml:"list,omitempty"`
}

// String returns "kind/list" or just the kind when there is no list name.
func (s Source) String() string {
	if s.List == "" {
		return string(s.Kind)
	}
	return string(s.Kind) + "/" + s.List
}

// SearchRequest is the resolved input of a run. It is built once by the CLI
// and read-only afterwards.
type SearchRequest struct {
	AuthorName   string     `json:"author_name" yaml:"author_name"`
	AuthorEmails []string   `json:"author_emails" yaml:"author_emails"`
	Year         int        `json:"year" yaml:"year"`
	Month        time.Month `json:"month" yaml:"month"`
	Sources      []Source   `json:"sources" yaml:"sources"`
}

// Validate reports whether the request carries everything a run needs.
func (r SearchRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.AuthorName) == "" {
		missing = append(missing, "name")
	}
	if len(r.AuthorEmails) == 0 {
		missing = append(missing, "email")
	}
	if r.Year <= 0 {
		missing = append(missing, "year")
	}
	if r.Month == 0 {
		missing = append(missing, "month")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteRequest, strings.Join(missing, ", "))
	}
	if r.Month < time.January || r.Month > time.December {
		return fmt.Errorf("%w: month %d out of range 1-12", ErrIncompleteRequest, r.Month)
	}
	for _, e := range r.AuthorEmails {
		user, domain, ok := strings.Cut(e, "@")
		if !ok || user == "" || domain == "" {
			return fmt.Errorf("%w: invalid email address %q", ErrIncompleteRequest, e)
		}
	}
	return nil
}

// Window returns the half-open date range [first, last) covered by the
// request's year and month. December rolls over into January of year+1.
func (r SearchRequest) Window() (first, last time.Time) {
	first = time.Date(r.Year, r.Month, 1, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes month 13 to January of the next year.
	last = time.Date(r.Year, r.Month+1, 1, 0, 0, 0, 0, time.UTC)
	return first, last
}

// InWindow reports whether the calendar date of t falls inside Window.
// The comparison uses t's own calendar fields, so archive-local dates are
// not shifted by time zone conversion.
func (r SearchRequest) InWindow(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	first, last := r.Window()
	d := CalendarDate(t)
	return !d.Before(first) && d.Before(last)
}

// BeforeWindow reports whether the calendar date of t is earlier than the
// window's first day.
func (r SearchRequest) BeforeWindow(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	first, _ := r.Window()
	return CalendarDate(t).Before(first)
}

// CalendarDate truncates t to midnight UTC of its own calendar day.
func CalendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
