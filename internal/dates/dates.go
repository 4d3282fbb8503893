// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dates parses the free-form date text archives put in headers and
// listing pages.
package dates

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/net/html"
)

// tzNameSuffix matches a trailing parenthetical zone name such as "(EST)" or
// "(Pacific Standard Time)". It breaks most parsers when it follows an offset.
var tzNameSuffix = regexp.MustCompile(`\s*\([^()]*\)\s*$`)

// layouts lists formats seen in mail headers and hypermail/MHonArc pages,
// tried in order before the generic fallback.
var layouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04 -0700",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 MST",
	"Mon Jan 2 2006 15:04:05 MST",
	"Mon Jan 2 2006 15:04:05 -0700",
	"Mon Jan 2 2006 15:04:05",
	time.ANSIC,
	time.UnixDate,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Parse converts archive date text to a time. The reported calendar fields
// are the archive's local ones; no zone conversion is applied. ok is false
// when nothing recognizable was found.
func Parse(text string) (t time.Time, ok bool) {
	s := Normalize(text)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if t, err := dateparse.ParseIn(s, time.UTC); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Normalize unescapes HTML entities, drops a trailing "(Zone Name)" and
// surrounding parentheses, rewrites hypermail's "2020 - 12:00" separator,
// and collapses whitespace.
func Normalize(text string) string {
	s := html.UnescapeString(text)
	s = strings.Join(strings.Fields(s), " ")

	// Hypermail wraps the whole date in parentheses: "(Mon Jun 01 2020 - 03:04:05 EST)".
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") && strings.Count(s, "(") == 1 {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = tzNameSuffix.ReplaceAllString(s, "")
	s = strings.Replace(s, " - ", " ", 1)
	return s
}
