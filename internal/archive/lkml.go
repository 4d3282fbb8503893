// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/pdiddy/listsearch/internal/dates"
	"github.com/pdiddy/listsearch/internal/httputil"
	"github.com/pdiddy/listsearch/pkg/types"
)

// authorHeading matches the line that opens an author's section on a
// hypermail author.html page. The next one ends the current author's list.
var authorHeading = regexp.MustCompile(`^<li><strong>.*</strong>$`)

// LkmlAdapter harvests the hypermail LKML archive, which splits each month
// into week-numbered directories: 2006.0/, 2006.1/, ... Each has an
// author.html index and one page per message.
type LkmlAdapter struct {
	Fetcher httputil.Fetcher
	Logger  *slog.Logger
}

// Name returns the adapter identifier.
func (a *LkmlAdapter) Name() string { return string(types.SourceLKML) }

// FetchRecords walks week 0, 1, 2, ... of the requested month until a week
// is NotFound. Entries dated outside the request window are dropped, since
// boundary weeks spill into adjacent months.
func (a *LkmlAdapter) FetchRecords(ctx context.Context, req types.SearchRequest, src types.Source) (map[string]types.EmailRecord, error) {
	base := BaseURL(src)
	patterns := MaskedPatterns(req.AuthorName, req.AuthorEmails)
	escaped := make([]string, 0, 2*len(patterns))
	for _, p := range patterns {
		escaped = append(escaped, html.EscapeString(p), p)
	}

	records := make(map[string]types.EmailRecord)
	for week := 0; ; week++ {
		indexURL := fmt.Sprintf("%s%02d%02d.%d/author.html", base, req.Year%100, int(req.Month), week)
		page, err := a.Fetcher.Fetch(ctx, indexURL)
		if err != nil {
			if httputil.IsNotFound(err) {
				return records, nil
			}
			return records, fmt.Errorf("fetching week %d: %w", week, err)
		}

		for _, line := range authorEntries(page, req.AuthorName) {
			entry, err := parseLkmlEntry(line)
			if err != nil {
				a.Logger.Warn("skipping thread entry", "url", indexURL, "error", err)
				continue
			}
			if entry.Date.IsZero() {
				a.Logger.Debug("skipping entry with unparsable date", "url", indexURL, "subject", entry.Subject)
				continue
			}
			if !req.InWindow(entry.Date) {
				continue
			}

			detailURL, err := resolve(indexURL, entry.Href)
			if err != nil {
				a.Logger.Warn("skipping thread entry", "url", indexURL, "href", entry.Href, "error", err)
				continue
			}
			rec, ok := a.fetchDetail(ctx, detailURL, entry, escaped)
			if ok {
				records[rec.MessageID] = rec
			}
		}
	}
}

// fetchDetail confirms the message on its own page: it must carry a
// Message-Id and mention one of the author's masked addresses.
func (a *LkmlAdapter) fetchDetail(ctx context.Context, detailURL string, entry lkmlEntry, patterns []string) (types.EmailRecord, bool) {
	body, err := a.Fetcher.Fetch(ctx, detailURL)
	if err != nil {
		if httputil.IsNotFound(err) {
			a.Logger.Debug("message page missing", "url", detailURL)
		} else {
			a.Logger.Warn("message page unreachable", "url", detailURL, "error", err)
		}
		return types.EmailRecord{}, false
	}

	d := parseDetailPage(body)
	id := d.MessageID()
	if id == "" || !d.Mentions(patterns) {
		return types.EmailRecord{}, false
	}
	return types.EmailRecord{
		MessageID: id,
		Subject:   entry.Subject,
		Date:      types.CalendarDate(entry.Date),
		Source:    string(types.SourceLKML),
	}, true
}

// authorEntries returns the lines between the first line mentioning name
// and the next author heading.
func authorEntries(page []byte, name string) []string {
	var (
		lines   []string
		inside  bool
		needle  = html.EscapeString(name)
		scanner = bufio.NewScanner(bytes.NewReader(page))
	)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if !inside {
			if strings.Contains(line, name) || strings.Contains(line, needle) {
				inside = true
			}
			continue
		}
		if authorHeading.MatchString(strings.TrimSpace(line)) {
			break
		}
		if strings.HasPrefix(strings.TrimSpace(line), "<li>") {
			lines = append(lines, line)
		}
	}
	return lines
}

// lkmlEntry is one thread line of an author.html listing.
type lkmlEntry struct {
	Href    string
	Subject string
	// Date is zero when the listed date could not be parsed.
	Date time.Time
}

// parseLkmlEntry tokenizes a line such as
//
//	<li><a href="0123.html">[PATCH] foo</a>&nbsp;<a name="123"><em>(Mon Jun 01 2020 - 03:04:05 EST)</em></a>
//
// The first linked text is the subject, the first <em> or <i> text the date.
func parseLkmlEntry(line string) (lkmlEntry, error) {
	var (
		e                 lkmlEntry
		subject, dateText strings.Builder
		inLink, inDate    bool
		dateDone          bool
	)

	z := html.NewTokenizer(strings.NewReader(line))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		switch tt {
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			switch string(name) {
			case "a":
				if e.Href != "" {
					continue
				}
				for hasAttr {
					var key, val []byte
					key, val, hasAttr = z.TagAttr()
					if string(key) == "href" {
						e.Href = string(val)
						inLink = true
					}
				}
			case "em", "i":
				if !dateDone {
					inDate = true
				}
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "a":
				inLink = false
			case "em", "i":
				if inDate {
					inDate = false
					dateDone = true
				}
			}
		case html.TextToken:
			switch {
			case inLink:
				subject.Write(z.Text())
			case inDate:
				dateText.Write(z.Text())
			}
		}
	}

	e.Subject = collapse(subject.String())
	if e.Href == "" || e.Subject == "" {
		return lkmlEntry{}, fmt.Errorf("%w: no linked subject in %q", ErrParse, line)
	}
	if strings.TrimSpace(dateText.String()) == "" {
		return lkmlEntry{}, fmt.Errorf("%w: no date in %q", ErrParse, line)
	}
	if t, ok := dates.Parse(dateText.String()); ok {
		e.Date = t
	}
	return e, nil
}
