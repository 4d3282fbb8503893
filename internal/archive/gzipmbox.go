// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/pdiddy/listsearch/internal/httputil"
	"github.com/pdiddy/listsearch/internal/mbox"
	"github.com/pdiddy/listsearch/pkg/types"
)

// GzipMboxAdapter harvests archivers that publish one gzip-compressed mbox
// per list and month: Pipermail (Mailman 2), HyperKitty (Mailman 3) and the
// Red Hat internal archive. Only the download URL differs between them.
type GzipMboxAdapter struct {
	Kind    types.SourceKind
	Fetcher httputil.Fetcher
	Logger  *slog.Logger
}

// Name returns the adapter identifier.
func (a *GzipMboxAdapter) Name() string { return string(a.Kind) }

// ArchiveURL builds the monthly download URL for src.
//
//	pipermail, rh_internal: <base><list>/2020-June.txt.gz
//	hyperkitty:             <base>list/<list>@<host>/export/<list>@<host>-2020-06.mbox.gz?start=2020-06-01&end=2020-07-01
func (a *GzipMboxAdapter) ArchiveURL(req types.SearchRequest, src types.Source) (string, error) {
	if src.List == "" {
		return "", fmt.Errorf("%s source needs a list name", a.Kind)
	}
	base := BaseURL(types.Source{Kind: a.Kind, BaseURL: src.BaseURL})

	switch a.Kind {
	case types.SourcePipermail, types.SourceRHInternal:
		return fmt.Sprintf("%s%s/%d-%s.txt.gz", base, src.List, req.Year, req.Month), nil
	case types.SourceHyperKitty:
		u, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("parsing base URL %q: %w", base, err)
		}
		addr := src.List + "@" + u.Hostname()
		first, last := req.Window()
		return fmt.Sprintf("%slist/%s/export/%s-%d-%02d.mbox.gz?start=%s&end=%s",
			base, addr, addr, req.Year, int(req.Month),
			first.Format("2006-01-02"), last.Format("2006-01-02")), nil
	default:
		return "", fmt.Errorf("unknown mbox archiver %q", a.Kind)
	}
}

// FetchRecords downloads, decompresses and parses the month's archive. A
// NotFound archive yields no records and no error.
func (a *GzipMboxAdapter) FetchRecords(ctx context.Context, req types.SearchRequest, src types.Source) (map[string]types.EmailRecord, error) {
	archiveURL, err := a.ArchiveURL(req, src)
	if err != nil {
		return nil, err
	}

	compressed, err := a.Fetcher.Fetch(ctx, archiveURL)
	if err != nil {
		if httputil.IsNotFound(err) {
			a.Logger.Debug("no archive for month", "url", archiveURL)
			return map[string]types.EmailRecord{}, nil
		}
		return nil, fmt.Errorf("downloading archive: %w", err)
	}

	data, err := httputil.Gunzip(compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, archiveURL, err)
	}

	p := mbox.Parser{Source: src.String(), Logger: a.Logger}
	return p.Parse(data, req.AuthorEmails), nil
}
