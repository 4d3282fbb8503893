// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pdiddy/listsearch/pkg/types"
)

// Failure kinds returned inside *FetchError. Match them with errors.Is.
var (
	// ErrNotFound means the archive has no such resource. Adapters use it
	// as the normal end-of-pagination signal.
	ErrNotFound = errors.New("not found")

	// ErrUnreachable means the transport failed before any HTTP status
	// was received (DNS, TCP, TLS, timeout).
	ErrUnreachable = errors.New("unreachable")
)

// FetchError describes a failed fetch.
type FetchError struct {
	URL string
	// Kind is ErrNotFound or ErrUnreachable.
	Kind error
	// Status is the HTTP status for ErrNotFound, 0 otherwise.
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %v (HTTP %d)", e.URL, e.Kind, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.URL, e.Kind)
}

// Is lets errors.Is(err, ErrNotFound) and errors.Is(err, ErrUnreachable) work.
func (e *FetchError) Is(target error) bool { return e.Kind == target }

func (e *FetchError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a NotFound fetch failure.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Fetcher retrieves a URL body. Adapters depend on this interface so tests
// can substitute canned pages.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

const defaultTimeout = 10 * time.Second

// Client is the HTTP-backed Fetcher.
type Client struct {
	HTTP   *http.Client
	Config types.HTTPConfig
	Logger *slog.Logger
}

// NewClient returns a Client whose per-fetch timeout comes from cfg
// (10s when unset).
func NewClient(cfg types.HTTPConfig, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		HTTP:   &http.Client{Timeout: cfg.Timeout},
		Config: cfg,
		Logger: logger,
	}
}

// Fetch GETs url and returns its body. Any HTTP status of 400 or above is
// reported as ErrNotFound, matching how the archives signal a missing page;
// transport failures are ErrUnreachable.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	c.Logger.Debug("fetching", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Kind: ErrUnreachable, Err: err}
	}
	if c.Config.UserAgent != "" {
		req.Header.Set("User-Agent", c.Config.UserAgent)
	}

	resp, err := DoWithRetry(ctx, c.HTTP, req, c.Config.RateLimitRetries, c.Logger)
	if err != nil {
		return nil, &FetchError{URL: url, Kind: ErrUnreachable, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		io.Copy(io.Discard, resp.Body)
		c.Logger.Debug("not found", "url", url, "status", resp.StatusCode)
		return nil, &FetchError{URL: url, Kind: ErrNotFound, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Kind: ErrUnreachable, Err: fmt.Errorf("reading body: %w", err)}
	}
	return body, nil
}

var gzipMagic = []byte{0x1f, 0x8b}

// Gunzip decompresses a gzip payload. Data without the gzip magic bytes is
// returned unchanged, since some servers transparently decode .gz files.
func Gunzip(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, gzipMagic) {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}
	return out, nil
}
