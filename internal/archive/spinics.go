// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/pdiddy/listsearch/internal/dates"
	"github.com/pdiddy/listsearch/internal/httputil"
	"github.com/pdiddy/listsearch/pkg/types"
)

// SpinicsAdapter harvests www.spinics.net list archives. A list's listing
// starts at maillist.html and continues with mail2.html, mail3.html, ...,
// newest messages first.
type SpinicsAdapter struct {
	Fetcher httputil.Fetcher
	Logger  *slog.Logger

	// Exhaustive scans every listing page instead of stopping at the first
	// message older than the window.
	Exhaustive bool
}

// Name returns the adapter identifier.
func (a *SpinicsAdapter) Name() string { return string(types.SourceSpinics) }

// FetchRecords pages through the list until a page is NotFound or, unless
// Exhaustive, until a message older than the window has been seen.
func (a *SpinicsAdapter) FetchRecords(ctx context.Context, req types.SearchRequest, src types.Source) (map[string]types.EmailRecord, error) {
	if src.List == "" {
		return nil, fmt.Errorf("spinics source needs a list name")
	}
	listDir := BaseURL(src) + src.List + "/"
	patterns := MaskedPatterns(req.AuthorName, req.AuthorEmails)
	sourceName := src.String()

	records := make(map[string]types.EmailRecord)
	for page := 1; ; page++ {
		pageURL := listDir + "maillist.html"
		if page > 1 {
			pageURL = fmt.Sprintf("%smail%d.html", listDir, page)
		}

		body, err := a.Fetcher.Fetch(ctx, pageURL)
		if err != nil {
			if httputil.IsNotFound(err) {
				return records, nil
			}
			return records, fmt.Errorf("fetching listing page %d: %w", page, err)
		}

		entries, err := parseSpinicsListing(body)
		if err != nil {
			a.Logger.Warn("skipping listing page", "url", pageURL, "error", err)
			continue
		}

		past := false
		for _, entry := range entries {
			if !containsAny(entry.From, patterns) {
				continue
			}
			detailURL, err := resolve(pageURL, entry.Href)
			if err != nil {
				a.Logger.Warn("skipping listing entry", "url", pageURL, "href", entry.Href, "error", err)
				continue
			}
			rec, older := a.fetchDetail(ctx, req, detailURL, entry, sourceName)
			if rec.MessageID != "" {
				records[rec.MessageID] = rec
			}
			if older && !a.Exhaustive {
				past = true
				break
			}
		}
		if past {
			a.Logger.Debug("reached messages older than the window", "url", pageURL)
			return records, nil
		}
	}
}

// fetchDetail reads a message page's X-Date and X-Message-Id pseudo-headers.
// It returns a record with an empty MessageID when the message should not be
// emitted, and older=true when the message predates the window.
func (a *SpinicsAdapter) fetchDetail(ctx context.Context, req types.SearchRequest, detailURL string, entry spinicsEntry, sourceName string) (rec types.EmailRecord, older bool) {
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
	date, ok := dates.Parse(d.Headers["Date"])
	if !ok {
		a.Logger.Debug("skipping message with unparsable date", "url", detailURL, "date", d.Headers["Date"])
		return types.EmailRecord{}, false
	}
	if req.BeforeWindow(date) {
		return types.EmailRecord{}, true
	}
	id := d.MessageID()
	if id == "" {
		a.Logger.Warn("skipping message without X-Message-Id", "url", detailURL)
		return types.EmailRecord{}, false
	}
	if !req.InWindow(date) {
		return types.EmailRecord{}, false
	}
	return types.EmailRecord{
		MessageID: id,
		Subject:   entry.Subject,
		Date:      types.CalendarDate(date),
		Source:    sourceName,
	}, false
}

// spinicsEntry is one thread entry of a listing page.
type spinicsEntry struct {
	Href    string
	Subject string
	// From is the masked sender, e.g. "Jane Doe <jane@xxxxxxxxxxx>".
	From string
}

// parseSpinicsListing extracts entries from a listing page. An entry is an
// <li> holding a link plus a nested <li> that starts with "From":
//
//	<li><strong><a name="01234" href="msg01234.html">Subject</a></strong>
//	<ul><li><em>From</em>: Jane Doe &lt;jane@xxxxxxxxxxx&gt;</li></ul></li>
func parseSpinicsListing(body []byte) ([]spinicsEntry, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	var entries []spinicsEntry
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Li {
			if e, ok := listingEntry(n); ok {
				entries = append(entries, e)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return entries, nil
}

func listingEntry(li *html.Node) (spinicsEntry, bool) {
	link := findLink(li)
	if link == nil {
		return spinicsEntry{}, false
	}
	from := findFromLine(li)
	if from == "" {
		return spinicsEntry{}, false
	}
	return spinicsEntry{
		Href:    attr(link, "href"),
		Subject: collapse(textContent(link)),
		From:    from,
	}, true
}

// findLink returns the first <a href> under n that is not inside a nested <li>.
func findLink(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if c.DataAtom == atom.Li {
			continue
		}
		if c.DataAtom == atom.A && attr(c, "href") != "" {
			return c
		}
		if found := findLink(c); found != nil {
			return found
		}
	}
	return nil
}

// findFromLine returns the sender text of the first nested <li> whose text
// starts with "From", with the label and separator removed.
func findFromLine(n *html.Node) string {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if c.DataAtom == atom.Li {
			text := collapse(textContent(c))
			if rest, ok := strings.CutPrefix(text, "From"); ok {
				return strings.Trim(rest, ": ")
			}
			continue
		}
		if from := findFromLine(c); from != "" {
			return from
		}
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
