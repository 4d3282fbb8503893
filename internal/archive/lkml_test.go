// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/listsearch/internal/httputil"
	"github.com/pdiddy/listsearch/pkg/types"
)

const lkmlBase = "http://lkml.test/hypermail/linux/kernel/"

const lkmlWeek0 = `<html><body>
<ul>
<li><strong>Bob Roe</strong>
<ul>
<li><a href="0001.html">bob thing</a>&nbsp;<a name="1"><em>(Mon Jun 01 2020 - 01:00:00 EST)</em></a>
</ul>
<li><strong>Jane Doe</strong>
<ul>
<li><a href="0002.html">[PATCH 1/2] mm: fix</a>&nbsp;<a name="2"><em>(Mon Jun 01 2020 - 03:04:05 EST)</em></a>
<li><a href="0003.html">late May thing</a>&nbsp;<a name="3"><em>(Sun May 31 2020 - 23:00:00 EST)</em></a>
<li>broken entry without link
<li><a href="0004.html">Re: [PATCH 1/2] mm: fix</a>&nbsp;<a name="4"><em>(Tue Jun 02 2020 - 08:00:00 EST)</em></a>
</ul>
<li><strong>Zed Zee</strong>
<ul>
<li><a href="0005.html">zed</a>&nbsp;<a name="5"><em>(Tue Jun 02 2020 - 08:00:00 EST)</em></a>
</ul>
</ul>
</body></html>`

const lkmlWeek4 = `<html><body>
<ul>
<li><strong>Jane Doe</strong>
<ul>
<li><a href="0100.html">[PATCH 0/3] cover</a>&nbsp;<a name="100"><em>(Wed Jul 01 2020 - 00:10:00 EST)</em></a>
<li><a href="0101.html">Re: lost</a>&nbsp;<a name="101"><em>(Tue Jun 30 2020 - 10:00:00 EST)</em></a>
<li><a href="0102.html">Re: question</a>&nbsp;<a name="102"><em>(Mon Jun 29 2020 - 10:00:00 EST)</em></a>
</ul>
</ul>
</body></html>`

func lkmlDetail(id, from string) string {
	return "<html>\n<!--X-Message-Id: " + id + " -->\n<!--X-Date: whatever -->\n" +
		"<ul><li><em>From</em>: " + from + "</li></ul>\n</html>"
}

func lkmlFixture() *fakeFetcher {
	return &fakeFetcher{
		pages: map[string]string{
			lkmlBase + "2006.0/author.html": lkmlWeek0,
			lkmlBase + "2006.0/0002.html":   lkmlDetail("20200601&#45;patch1@example.com", "Jane Doe &lt;jane@xxxxxxxxxxx&gt;"),
			lkmlBase + "2006.0/0003.html":   lkmlDetail("may@example.com", "Jane Doe &lt;jane@xxxxxxxxxxx&gt;"),
			lkmlBase + "2006.0/0004.html":   lkmlDetail("other@example.com", "Jane Doe &lt;jane@xxxxxxx&gt;"),
			lkmlBase + "2006.1/author.html": lkmlWeek4,
			lkmlBase + "2006.1/0100.html":   lkmlDetail("july@example.com", "Jane Doe &lt;jane@xxxxxxxxxxx&gt;"),
			lkmlBase + "2006.1/0102.html":   lkmlDetail("q@example.com", "Jane Doe &lt;jane@xxxxxxxxxxx&gt;"),
		},
		unreachable: map[string]bool{
			lkmlBase + "2006.1/0101.html": true,
		},
	}
}

func TestLkmlFetchRecords(t *testing.T) {
	f := lkmlFixture()
	a := &LkmlAdapter{Fetcher: f, Logger: discardLogger()}
	src := types.Source{Kind: types.SourceLKML, BaseURL: lkmlBase}

	records, err := a.FetchRecords(context.Background(), janeRequest(src), src)
	require.NoError(t, err)

	require.Len(t, records, 2)
	patch := records["20200601-patch1@example.com"]
	assert.Equal(t, "[PATCH 1/2] mm: fix", patch.Subject)
	assert.Equal(t, "2020-06-01", patch.Date.Format("2006-01-02"))
	assert.Equal(t, "lkml", patch.Source)

	reply := records["q@example.com"]
	assert.Equal(t, "Re: question", reply.Subject)
	assert.Equal(t, "2020-06-29", reply.Date.Format("2006-01-02"))

	// Out-of-window entries are never followed.
	assert.False(t, f.fetched(lkmlBase+"2006.0/0003.html"))
	assert.False(t, f.fetched(lkmlBase+"2006.1/0100.html"))
	// Other authors' entries are never followed.
	assert.False(t, f.fetched(lkmlBase+"2006.0/0001.html"))
	assert.False(t, f.fetched(lkmlBase+"2006.0/0005.html"))
	// The first missing week ends the walk.
	assert.True(t, f.fetched(lkmlBase+"2006.2/author.html"))
	assert.False(t, f.fetched(lkmlBase+"2006.3/author.html"))
}

func TestLkmlAbortsOnUnreachableWeek(t *testing.T) {
	f := lkmlFixture()
	f.unreachable[lkmlBase+"2006.1/author.html"] = true
	a := &LkmlAdapter{Fetcher: f, Logger: discardLogger()}
	src := types.Source{Kind: types.SourceLKML, BaseURL: lkmlBase}

	records, err := a.FetchRecords(context.Background(), janeRequest(src), src)
	require.Error(t, err)
	assert.True(t, errors.Is(err, httputil.ErrUnreachable))
	assert.Contains(t, records, "20200601-patch1@example.com")
	assert.False(t, f.fetched(lkmlBase+"2006.2/author.html"))
}

func TestLkmlDecemberUsesTwoDigitYear(t *testing.T) {
	f := &fakeFetcher{}
	a := &LkmlAdapter{Fetcher: f, Logger: discardLogger()}
	src := types.Source{Kind: types.SourceLKML, BaseURL: lkmlBase}
	req := janeRequest(src)
	req.Year, req.Month = 2005, 12

	records, err := a.FetchRecords(context.Background(), req, src)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, []string{lkmlBase + "0512.0/author.html"}, f.calls)
}

func TestAuthorEntries(t *testing.T) {
	lines := authorEntries([]byte(lkmlWeek0), "Jane Doe")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "0002.html")
	assert.Contains(t, lines[3], "0004.html")

	assert.Empty(t, authorEntries([]byte(lkmlWeek0), "Nobody Here"))
}

func TestParseLkmlEntry(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		href     string
		subject  string
		date     string
		parseErr bool
	}{
		{
			name:    "hypermail entry",
			line:    `<li><a href="0002.html">[PATCH 1/2] mm: fix</a>&nbsp;<a name="2"><em>(Mon Jun 01 2020 - 03:04:05 EST)</em></a>`,
			href:    "0002.html",
			subject: "[PATCH 1/2] mm: fix",
			date:    "2020-06-01",
		},
		{
			name:    "anchor before link and escaped subject",
			line:    `<li><a name="7"></a><a href="0007.html"><strong>Re: a &amp; b</strong></a> <i>Tue Jun 02 2020 - 08:00:00 EST</i>`,
			href:    "0007.html",
			subject: "Re: a & b",
			date:    "2020-06-02",
		},
		{
			name:    "unparsable date kept as zero",
			line:    `<li><a href="0008.html">x</a> <em>someday</em>`,
			href:    "0008.html",
			subject: "x",
		},
		{
			name:     "no link",
			line:     `<li>broken entry without link`,
			parseErr: true,
		},
		{
			name:     "no date",
			line:     `<li><a href="0009.html">x</a>`,
			parseErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := parseLkmlEntry(tt.line)
			if tt.parseErr {
				assert.ErrorIs(t, err, ErrParse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.href, e.Href)
			assert.Equal(t, tt.subject, e.Subject)
			if tt.date == "" {
				assert.True(t, e.Date.IsZero())
			} else {
				assert.Equal(t, tt.date, e.Date.Format("2006-01-02"))
			}
		})
	}
}
