// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mbox splits decompressed mbox archives into messages and turns the
// author's messages into EmailRecords.
package mbox

import (
	"bufio"
	"bytes"
	"log/slog"
	"regexp"
	"strings"
	"time"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/pdiddy/listsearch/internal/dates"
	"github.com/pdiddy/listsearch/pkg/types"
)

// Message is one message of an mbox stream.
type Message struct {
	// Envelope is the "From " separator line.
	Envelope string

	// Header holds the first occurrence of every header field, with folded
	// continuation lines joined by a single space.
	Header mail.Header

	// Lines are all lines after the envelope, headers included.
	Lines []string
}

var (
	headerLine = regexp.MustCompile(`^([!-9;-~]+):[ \t]*(.*)$`)
	replyRe    = regexp.MustCompile(`(?i)^re:|\sre:\s`)
	diffOld    = regexp.MustCompile(`^--- `)
	diffNew    = regexp.MustCompile(`^\+\+\+ `)
	diffHunk   = regexp.MustCompile(`^@@ `)
)

// Split breaks an mbox stream at "From " lines that start the stream or
// follow a blank line.
func Split(data []byte) []Message {
	var (
		msgs    []Message
		cur     *Message
		prevBlk = true
	)
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if prevBlk && strings.HasPrefix(line, "From ") {
			if cur != nil {
				msgs = append(msgs, finish(cur))
			}
			cur = &Message{Envelope: line}
			prevBlk = false
			continue
		}
		prevBlk = line == ""
		if cur != nil {
			cur.Lines = append(cur.Lines, line)
		}
	}
	if cur != nil {
		msgs = append(msgs, finish(cur))
	}
	return msgs
}

func finish(m *Message) Message {
	m.Header = parseHeader(m.Lines)
	return *m
}

// parseHeader reads the header block up to the first blank line. A line that
// does not look like "token: value" continues the previous field.
func parseHeader(lines []string) mail.Header {
	var h mail.Header
	type field struct {
		key, value string
	}
	var fields []field
	for _, line := range lines {
		if line == "" {
			break
		}
		if m := headerLine.FindStringSubmatch(line); m != nil {
			fields = append(fields, field{key: m[1], value: strings.TrimSpace(m[2])})
			continue
		}
		if len(fields) == 0 {
			continue
		}
		last := &fields[len(fields)-1]
		if cont := strings.TrimSpace(line); cont != "" {
			last.value = strings.TrimSpace(last.value + " " + cont)
		}
	}
	for _, f := range fields {
		if !h.Has(f.key) {
			h.Add(f.key, f.value)
		}
	}
	return h
}

// Body returns the lines after the header block.
func (m Message) Body() []string {
	for i, line := range m.Lines {
		if line == "" {
			return m.Lines[i+1:]
		}
	}
	return nil
}

// Subject returns the decoded, whitespace-collapsed Subject header.
func (m Message) Subject() string {
	s, err := m.Header.Subject()
	if err != nil {
		s = m.Header.Get("Subject")
	}
	return collapse(s)
}

// MessageID returns the Message-ID without angle brackets.
func (m Message) MessageID() string {
	return strings.Trim(collapse(m.Header.Get("Message-Id")), "<>")
}

// Date parses the Date header. The zero time means it could not be parsed.
func (m Message) Date() time.Time {
	raw := m.Header.Get("Date")
	if raw == "" {
		return time.Time{}
	}
	if t, ok := dates.Parse(raw); ok {
		return t
	}
	return time.Time{}
}

// InReplyTo returns the In-Reply-To header without angle brackets.
func (m Message) InReplyTo() string {
	return strings.Trim(collapse(m.Header.Get("In-Reply-To")), "<>")
}

// HasDiff reports whether the message embeds a unified diff: a "--- " line
// followed by "+++ " and then an "@@ " hunk header.
func (m Message) HasDiff() bool {
	for i := 0; i+2 < len(m.Lines); i++ {
		if diffOld.MatchString(m.Lines[i]) &&
			diffNew.MatchString(m.Lines[i+1]) &&
			diffHunk.MatchString(m.Lines[i+2]) {
			return true
		}
	}
	return false
}

// From returns the envelope line and From header used for author matching.
func (m Message) From() string {
	return m.Envelope + "\n" + m.Header.Get("From")
}

// IsReplySubject reports whether subject already reads as a reply.
func IsReplySubject(subject string) bool {
	return replyRe.MatchString(subject)
}

// AddressPatterns returns each address in its plain form and in the
// "user at domain" form some archives use to defeat scrapers.
func AddressPatterns(emails []string) []string {
	patterns := make([]string, 0, 2*len(emails))
	for _, e := range emails {
		patterns = append(patterns, e)
	}
	for _, e := range emails {
		patterns = append(patterns, strings.Replace(e, "@", " at ", 1))
	}
	return patterns
}

// Parser turns an mbox archive into EmailRecords for one author.
type Parser struct {
	// Source is stamped on every record (e.g. "pipermail/kexec").
	Source string
	Logger *slog.Logger
}

// Parse returns the author's messages keyed by Message-ID. Address matching
// is case-insensitive. Messages without a Message-ID are skipped; messages
// with an unparsable date are kept with a zero date.
func (p Parser) Parse(data []byte, emails []string) map[string]types.EmailRecord {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	patterns := AddressPatterns(emails)
	for i := range patterns {
		patterns[i] = strings.ToLower(patterns[i])
	}

	records := make(map[string]types.EmailRecord)
	for _, msg := range Split(data) {
		if !matchesAny(strings.ToLower(msg.From()), patterns) {
			continue
		}

		id := msg.MessageID()
		if id == "" {
			logger.Warn("skipping message without Message-ID", "source", p.Source, "envelope", msg.Envelope)
			continue
		}

		subject := msg.Subject()
		if msg.InReplyTo() != "" && !IsReplySubject(subject) && !msg.HasDiff() {
			subject = "Re: " + subject
		}

		date := msg.Date()
		if date.IsZero() {
			logger.Debug("unparsable date", "source", p.Source, "message_id", id, "date", msg.Header.Get("Date"))
		} else {
			date = types.CalendarDate(date)
		}

		records[id] = types.EmailRecord{
			MessageID: id,
			Subject:   subject,
			Date:      date,
			Source:    p.Source,
		}
	}
	return records
}

func matchesAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
