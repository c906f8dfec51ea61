// Package httpfetch copies media from http(s) URLs, file:// URLs or local
// paths into a request workspace.
package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var ErrUnsupportedScheme = errors.New("unsupported locator scheme")

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.Code)
}

// Permanent reports whether retrying the same request cannot help.
func (e *StatusError) Permanent() bool {
	return e.Code >= 400 && e.Code < 500 && e.Code != http.StatusTooManyRequests && e.Code != http.StatusRequestTimeout
}

type Fetcher struct {
	client *http.Client
}

func New(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch writes the locator's bytes to destPath. The file only appears once
// complete, so a retried or repeated fetch leaves the same result.
func (f *Fetcher) Fetch(ctx context.Context, locator, destPath string) error {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return fmt.Errorf("%w: empty locator", ErrUnsupportedScheme)
	}
	u, err := url.Parse(locator)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Plain paths, including Windows drive letters.
		return f.copyLocal(ctx, locator, destPath)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return f.download(ctx, u.String(), destPath)
	case "file":
		return f.copyLocal(ctx, u.Path, destPath)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

func (f *Fetcher) download(ctx context.Context, rawURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &StatusError{URL: rawURL, Code: resp.StatusCode}
	}
	return writeAtomic(ctx, resp.Body, destPath)
}

func (f *Fetcher) copyLocal(ctx context.Context, path, destPath string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer src.Close()
	return writeAtomic(ctx, src, destPath)
}

func writeAtomic(ctx context.Context, r io.Reader, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(destPath), "."+filepath.Base(destPath)+".*.part")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, ctxReader{ctx: ctx, r: r}); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", destPath, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), destPath)
}

// ctxReader stops local copies once the request is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
