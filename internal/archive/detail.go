// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// pseudoHeader matches the comment-encoded headers hypermail and MHonArc
// embed in message pages, e.g. "<!--X-Message-Id: 20200601&#45;1@x -->".
var pseudoHeader = regexp.MustCompile(`<!--X-([A-Za-z-]+):\s*(.*?)\s*-->`)

// detailPage is the part of a per-message page adapters care about.
type detailPage struct {
	// Headers maps canonical pseudo-header names ("Message-Id", "Date") to
	// their first value, HTML entities decoded.
	Headers map[string]string

	// Lines are the raw page lines.
	Lines []string
}

func parseDetailPage(body []byte) detailPage {
	d := detailPage{Headers: make(map[string]string)}
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		d.Lines = append(d.Lines, line)
		for _, m := range pseudoHeader.FindAllStringSubmatch(line, -1) {
			key := canonicalPseudo(m[1])
			if _, seen := d.Headers[key]; !seen {
				d.Headers[key] = html.UnescapeString(m[2])
			}
		}
	}
	return d
}

// MessageID returns the X-Message-Id value without angle brackets.
func (d detailPage) MessageID() string {
	return strings.Trim(collapse(d.Headers["Message-Id"]), "<>")
}

// Mentions reports whether any line contains one of patterns verbatim.
func (d detailPage) Mentions(patterns []string) bool {
	for _, line := range d.Lines {
		if containsAny(line, patterns) {
			return true
		}
	}
	return false
}

func canonicalPseudo(name string) string {
	parts := strings.Split(strings.ToLower(name), "-")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "-")
}
