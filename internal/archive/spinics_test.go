// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/listsearch/pkg/types"
)

const spinicsList = "http://spinics.test/lists/linux-mm/"

type listing struct {
	msg     int
	subject string
	from    string
}

func spinicsPage(entries ...listing) string {
	var b strings.Builder
	b.WriteString("<html><body><ul>\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "<li><strong><a name=\"%d\" href=\"msg%d.html\">%s</a></strong>\n", e.msg, e.msg, e.subject)
		fmt.Fprintf(&b, "<ul><li><em>From</em>: %s</li></ul>\n</li>\n", e.from)
	}
	b.WriteString("</ul></body></html>")
	return b.String()
}

func spinicsDetail(msg int, date string) string {
	return fmt.Sprintf("<html>\n<!--X-Date: %s -->\n<!--X-Message-Id: msg%d&#45;id@example.com -->\n</html>", date, msg)
}

const (
	jane = "Jane Doe &lt;jane@xxxxxxxxxxx&gt;"
	bob  = "Bob Roe &lt;bob@xxxxxxxxx&gt;"
)

func spinicsFixture() *fakeFetcher {
	return &fakeFetcher{pages: map[string]string{
		spinicsList + "maillist.html": spinicsPage(
			listing{101, "July thing", jane},
			listing{100, "[PATCH] newest", jane},
			listing{99, "not mine", bob},
		),
		spinicsList + "mail2.html": spinicsPage(
			listing{98, "Re: [PATCH] newest", jane},
			listing{97, "May thing", jane},
			listing{96, "out of order", jane},
		),
		spinicsList + "mail3.html": spinicsPage(
			listing{95, "first of June", jane},
		),
		spinicsList + "msg101.html": spinicsDetail(101, "Thu, 2 Jul 2020 10:00:00 &#45;0400"),
		spinicsList + "msg100.html": spinicsDetail(100, "Sat, 20 Jun 2020 10:00:00 &#45;0400"),
		spinicsList + "msg99.html":  spinicsDetail(99, "Sat, 20 Jun 2020 09:00:00 &#45;0400"),
		spinicsList + "msg98.html":  spinicsDetail(98, "Fri, 5 Jun 2020 10:00:00 +0000"),
		spinicsList + "msg97.html":  spinicsDetail(97, "Sat, 30 May 2020 10:00:00 +0000"),
		spinicsList + "msg96.html":  spinicsDetail(96, "Wed, 3 Jun 2020 10:00:00 +0000"),
		spinicsList + "msg95.html":  spinicsDetail(95, "Mon, 1 Jun 2020 10:00:00 +0000"),
	}}
}

func TestSpinicsStopsAfterOlderMessage(t *testing.T) {
	f := spinicsFixture()
	a := &SpinicsAdapter{Fetcher: f, Logger: discardLogger()}
	src := types.Source{Kind: types.SourceSpinics, BaseURL: "http://spinics.test/lists/", List: "linux-mm"}

	records, err := a.FetchRecords(context.Background(), janeRequest(src), src)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "[PATCH] newest", records["msg100-id@example.com"].Subject)
	assert.Equal(t, "2020-06-20", records["msg100-id@example.com"].Date.Format("2006-01-02"))
	assert.Equal(t, "Re: [PATCH] newest", records["msg98-id@example.com"].Subject)
	assert.Equal(t, "spinics/linux-mm", records["msg98-id@example.com"].Source)

	assert.False(t, f.fetched(spinicsList+"msg99.html"), "other authors are not followed")
	assert.False(t, f.fetched(spinicsList+"msg96.html"), "entries after the older message are suppressed")
	assert.False(t, f.fetched(spinicsList+"mail3.html"), "later pages are suppressed")
}

func TestSpinicsExhaustiveScansAllPages(t *testing.T) {
	f := spinicsFixture()
	a := &SpinicsAdapter{Fetcher: f, Logger: discardLogger(), Exhaustive: true}
	src := types.Source{Kind: types.SourceSpinics, BaseURL: "http://spinics.test/lists/", List: "linux-mm"}

	records, err := a.FetchRecords(context.Background(), janeRequest(src), src)
	require.NoError(t, err)

	assert.Len(t, records, 4)
	for _, id := range []string{"msg100-id@example.com", "msg98-id@example.com", "msg96-id@example.com", "msg95-id@example.com"} {
		assert.Contains(t, records, id)
	}
	assert.NotContains(t, records, "msg97-id@example.com")
	assert.NotContains(t, records, "msg101-id@example.com")
	assert.True(t, f.fetched(spinicsList+"mail4.html"))
}

func TestSpinicsMissingList(t *testing.T) {
	f := &fakeFetcher{}
	a := &SpinicsAdapter{Fetcher: f, Logger: discardLogger()}
	src := types.Source{Kind: types.SourceSpinics, BaseURL: "http://spinics.test/lists/", List: "nope"}

	records, err := a.FetchRecords(context.Background(), janeRequest(src), src)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, []string{"http://spinics.test/lists/nope/maillist.html"}, f.calls)
}

func TestSpinicsUnreachableListingAborts(t *testing.T) {
	f := spinicsFixture()
	f.unreachable = map[string]bool{spinicsList + "mail2.html": true}
	a := &SpinicsAdapter{Fetcher: f, Logger: discardLogger()}
	src := types.Source{Kind: types.SourceSpinics, BaseURL: "http://spinics.test/lists/", List: "linux-mm"}

	records, err := a.FetchRecords(context.Background(), janeRequest(src), src)
	assert.Error(t, err)
	assert.Contains(t, records, "msg100-id@example.com")
}

func TestParseSpinicsListing(t *testing.T) {
	page := `<html><body><ul>
<li><strong><a name="10" href="msg10.html">Top &amp; level</a></strong>
<ul>
<li><em>From</em>: Jane Doe &lt;jane@xxxxxxxxxxx&gt;</li>
<li><strong><a name="11" href="msg11.html">Re: Top &amp; level</a></strong>
<ul><li><em>From</em>: Bob Roe &lt;bob@xxxxxxxxx&gt;</li></ul>
</li>
</ul>
</li>
<li>no link here</li>
</ul></body></html>`

	entries, err := parseSpinicsListing([]byte(page))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, spinicsEntry{Href: "msg10.html", Subject: "Top & level", From: "Jane Doe <jane@xxxxxxxxxxx>"}, entries[0])
	assert.Equal(t, spinicsEntry{Href: "msg11.html", Subject: "Re: Top & level", From: "Bob Roe <bob@xxxxxxxxx>"}, entries[1])
}
