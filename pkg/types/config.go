package types

import (
	"strings"
	"time"
)

// HTTPConfig holds settings for archive fetches.
type HTTPConfig struct {
	// Timeout bounds every single fetch (default 10s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// RateLimitRetries is how many times an HTTP 429 is retried with
	// exponential backoff. Zero disables retries.
	RateLimitRetries int `json:"rate_limit_retries" yaml:"rate_limit_retries" mapstructure:"rate_limit_retries"`
}

// HarvestConfig holds settings for running adapters over the configured sources.
type HarvestConfig struct {
	// Parallel runs independent sources concurrently. Merge order stays the
	// configured source order.
	Parallel bool `json:"parallel" yaml:"parallel" mapstructure:"parallel"`

	// SpinicsExhaustive disables the reverse-chronological early exit and
	// scans every listing page, filtering by date instead.
	SpinicsExhaustive bool `json:"spinics_exhaustive" yaml:"spinics_exhaustive" mapstructure:"spinics_exhaustive"`
}

// ListGroup names lists hosted by one archive installation.
type ListGroup struct {
	// URL is the installation's base URL. Empty selects the archiver default.
	URL string `json:"url" yaml:"url" mapstructure:"url"`

	Lists []string `json:"lists" yaml:"lists" mapstructure:"lists"`
}

// Config is the on-disk configuration file, overlaid by environment
// variables and command-line flags.
type Config struct {
	Name  string   `json:"name" yaml:"name" mapstructure:"name"`
	Email []string `json:"email" yaml:"email" mapstructure:"email"`
	Year  int      `json:"year" yaml:"year" mapstructure:"year"`
	Month int      `json:"month" yaml:"month" mapstructure:"month"`

	LKML       bool        `json:"lkml" yaml:"lkml" mapstructure:"lkml"`
	Spinics    []string    `json:"spinics" yaml:"spinics" mapstructure:"spinics"`
	Pipermail  []ListGroup `json:"pipermail" yaml:"pipermail" mapstructure:"pipermail"`
	HyperKitty []ListGroup `json:"hyperkitty" yaml:"hyperkitty" mapstructure:"hyperkitty"`
	RHInternal []ListGroup `json:"rh_internal" yaml:"rh_internal" mapstructure:"rh_internal"`

	HTTP HTTPConfig `json:"http" yaml:"http" mapstructure:"http"`

	HarvestConfig `yaml:",inline" mapstructure:",squash"`

	// HistoryDB is the SQLite file runs are recorded in. Empty disables history.
	HistoryDB string `json:"history_db" yaml:"history_db" mapstructure:"history_db"`
}

// Request resolves the configuration into a validated SearchRequest.
// Sources are ordered LKML, Pipermail, HyperKitty, RHInternal, Spinics,
// which is also the merge order.
func (c Config) Request() (SearchRequest, error) {
	req := SearchRequest{
		AuthorName: strings.TrimSpace(c.Name),
		Year:       c.Year,
		Month:      time.Month(c.Month),
	}
	for _, e := range c.Email {
		// Config files commonly carry "a@x, b@y" in a single entry.
		for _, part := range strings.Split(e, ",") {
			if part = strings.TrimSpace(part); part != "" {
				req.AuthorEmails = append(req.AuthorEmails, part)
			}
		}
	}
	if err := req.Validate(); err != nil {
		return SearchRequest{}, err
	}

	if c.LKML {
		req.Sources = append(req.Sources, Source{Kind: SourceLKML})
	}
	req.Sources = appendGroups(req.Sources, SourcePipermail, c.Pipermail)
	req.Sources = appendGroups(req.Sources, SourceHyperKitty, c.HyperKitty)
	req.Sources = appendGroups(req.Sources, SourceRHInternal, c.RHInternal)
	for _, l := range c.Spinics {
		if l = strings.TrimSpace(l); l != "" {
			req.Sources = append(req.Sources, Source{Kind: SourceSpinics, List: l})
		}
	}
	return req, nil
}

func appendGroups(dst []Source, kind SourceKind, groups []ListGroup) []Source {
	for _, g := range groups {
		for _, l := range g.Lists {
			if l = strings.TrimSpace(l); l != "" {
				dst = append(dst, Source{Kind: kind, BaseURL: strings.TrimSpace(g.URL), List: l})
			}
		}
	}
	return dst
}
