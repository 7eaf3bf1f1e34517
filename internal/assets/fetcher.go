package assets

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// DefaultMaxSize caps a single download.
const DefaultMaxSize = 200 << 20

// HTTPFetcher streams assets over HTTP into a temp file and renames it into
// place, so an interrupted download never leaves a partial file behind.
type HTTPFetcher struct {
	Client  *http.Client
	MaxSize int64
	// AllowLoopback permits loopback hosts, which are rejected by default.
	AllowLoopback bool
}

// NewHTTPFetcher returns a fetcher with a bounded client that refuses to be
// redirected to loopback or cloud metadata hosts.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	f := &HTTPFetcher{MaxSize: DefaultMaxSize}
	f.Client = &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return f.checkHost(req.URL.Hostname())
		},
	}
	return f
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL, dir, filename string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme: %s (only http/https)", parsed.Scheme)
	}
	if err := f.checkHost(parsed.Hostname()); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	dest := filepath.Join(dir, filename)
	tmp, err := os.CreateTemp(dir, ".notionsite-dl-*")
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	limit := f.MaxSize
	if limit <= 0 {
		limit = DefaultMaxSize
	}
	n, err := io.Copy(tmp, io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return "", fmt.Errorf("read body failed: %w", err)
	}
	if n > limit {
		return "", fmt.Errorf("file too large: exceeds %d bytes", limit)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return "", fmt.Errorf("rename: %w", err)
	}
	success = true
	return dest, nil
}

// checkHost rejects loopback and cloud metadata addresses.
func (f *HTTPFetcher) checkHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return nil //nolint:nilerr // let http.Client handle DNS failures
		}
		ip = ips[0]
	}

	if ip.IsLoopback() && !f.AllowLoopback {
		return fmt.Errorf("blocked host: loopback address %s", host)
	}
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("blocked host: cloud metadata address %s", host)
	}
	return nil
}
