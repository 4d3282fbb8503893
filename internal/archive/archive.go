// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive harvests an author's messages from public mailing-list
// archives. Each archiver format (hypermail weekly listings, Spinics paginated
// listings, gzip-compressed mbox downloads) has an Adapter that turns the
// archive's pages into EmailRecords keyed by Message-ID.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/pdiddy/listsearch/internal/httputil"
	"github.com/pdiddy/listsearch/pkg/types"
)

// ErrParse marks a page or entry whose structure did not match the
// archive's expected format. The affected unit is skipped.
var ErrParse = errors.New("unexpected page structure")

// Default base URLs per archiver. Source.BaseURL overrides them.
const (
	DefaultLKMLBase       = "http://lkml.iu.edu/hypermail/linux/kernel/"
	DefaultSpinicsBase    = "http://www.spinics.net/lists/"
	DefaultPipermailBase  = "http://lists.infradead.org/pipermail/"
	DefaultHyperKittyBase = "https://lists.fedoraproject.org/archives/"
	DefaultRHInternalBase = "http://post-office.corp.redhat.com/archives/"
)

// Adapter harvests one source. Implementations return whatever records
// they gathered even when they also return an error.
type Adapter interface {
	Name() string
	FetchRecords(ctx context.Context, req types.SearchRequest, src types.Source) (map[string]types.EmailRecord, error)
}

// Deps carries what adapters need from the caller.
type Deps struct {
	Fetcher httputil.Fetcher
	Logger  *slog.Logger

	// SpinicsExhaustive disables the Spinics early exit.
	SpinicsExhaustive bool
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// NewAdapter returns the adapter for kind.
func NewAdapter(kind types.SourceKind, deps Deps) (Adapter, error) {
	if deps.Fetcher == nil {
		return nil, fmt.Errorf("no fetcher configured")
	}
	switch kind {
	case types.SourceLKML:
		return &LkmlAdapter{Fetcher: deps.Fetcher, Logger: deps.logger()}, nil
	case types.SourceSpinics:
		return &SpinicsAdapter{Fetcher: deps.Fetcher, Logger: deps.logger(), Exhaustive: deps.SpinicsExhaustive}, nil
	case types.SourcePipermail, types.SourceHyperKitty, types.SourceRHInternal:
		return &GzipMboxAdapter{Kind: kind, Fetcher: deps.Fetcher, Logger: deps.logger()}, nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}
}

// BaseURL returns src.BaseURL, or the archiver default, with a trailing slash.
func BaseURL(src types.Source) string {
	base := strings.TrimSpace(src.BaseURL)
	if base == "" {
		switch src.Kind {
		case types.SourceLKML:
			base = DefaultLKMLBase
		case types.SourceSpinics:
			base = DefaultSpinicsBase
		case types.SourcePipermail:
			base = DefaultPipermailBase
		case types.SourceHyperKitty:
			base = DefaultHyperKittyBase
		case types.SourceRHInternal:
			base = DefaultRHInternalBase
		}
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base
}

// MaskedPatterns builds the "Name <user@xxxx>" strings HTML archives show in
// place of the author's addresses. The domain is replaced by as many 'x'
// characters as it has, so its length is preserved.
func MaskedPatterns(name string, emails []string) []string {
	patterns := make([]string, 0, len(emails))
	for _, e := range emails {
		user, domain, ok := strings.Cut(e, "@")
		if !ok {
			continue
		}
		patterns = append(patterns, fmt.Sprintf("%s <%s@%s>", name, user, strings.Repeat("x", len(domain))))
	}
	return patterns
}

// resolve joins a link found on page pageURL into an absolute URL.
func resolve(pageURL, href string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

func containsAny(s string, patterns []string) bool {
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
