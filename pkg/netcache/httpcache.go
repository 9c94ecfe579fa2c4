package netcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/natefinch/atomic"
)

// Cache provides a simple persistent HTTP cache with ETag/Last-Modified support.
type Cache struct {
	Dir    string
	Client *http.Client

	// Retries is the number of attempts made for an uncached URL.
	Retries int
	// Backoff is the delay before the second attempt; it doubles after each
	// failed attempt.
	Backoff time.Duration

	Logger *slog.Logger
}

// New returns a new Cache with a reasonable default HTTP client.
func New(dir string) *Cache {
	return &Cache{
		Dir: dir,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
		Retries: 3,
		Backoff: 2 * time.Second,
	}
}

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.Code)
}

type meta struct {
	URL          string `json:"url"`
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	// Optional server-provided filename hint
	Filename string `json:"filename,omitempty"`
	// DataFile is the basename of the cached payload file
	DataFile string `json:"data_file"`
}

func (c *Cache) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Cache) client() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return http.DefaultClient
}

// Get fetches the URL into the cache and returns a local file path.
// If the cache is valid, it is reused without downloading.
// Returns (path, fromCache, error).
func (c *Cache) Get(ctx context.Context, url string) (string, bool, error) {
	key := hash(url)
	mpath := filepath.Join(c.Dir, key+".json")
	var m meta
	var haveMeta bool
	if b, err := os.ReadFile(mpath); err == nil {
		_ = json.Unmarshal(b, &m)
		if m.URL == url && m.DataFile != "" && fileExists(filepath.Join(c.Dir, m.DataFile)) {
			haveMeta = true
		}
	}

	if haveMeta {
		path, fresh, err := c.revalidate(ctx, url, mpath, m)
		if err == nil {
			return path, !fresh, nil
		}
		var se *StatusError
		if errors.As(err, &se) && se.Code < 500 {
			return "", false, err
		}
		// Serve the stale copy when the origin cannot be reached or fails.
		c.logger().Warn("revalidation failed, using cached copy", "url", url, "error", err)
		return filepath.Join(c.Dir, m.DataFile), true, nil
	}

	attempts := c.Retries
	if attempts < 1 {
		attempts = 1
	}
	delay := c.Backoff
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			c.logger().Debug("retrying download", "url", url, "attempt", attempt+1, "delay", delay, "error", lastErr)
			select {
			case <-ctx.Done():
				return "", false, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		path, err := c.fetch(ctx, url, mpath, nil)
		if err == nil {
			return path, false, nil
		}
		lastErr = err
		var se *StatusError
		if errors.As(err, &se) && se.Code < 500 {
			break
		}
	}
	return "", false, lastErr
}

// Fetch returns the body of url, going through the cache.
func (c *Cache) Fetch(ctx context.Context, url string) ([]byte, error) {
	path, _, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// revalidate issues a conditional GET for a cached entry. fresh reports
// whether a new body was downloaded.
func (c *Cache) revalidate(ctx context.Context, url, mpath string, m meta) (path string, fresh bool, err error) {
	hdr := http.Header{}
	if m.ETag != "" {
		hdr.Set("If-None-Match", m.ETag)
	}
	if m.LastModified != "" {
		hdr.Set("If-Modified-Since", m.LastModified)
	}
	path, err = c.fetch(ctx, url, mpath, hdr)
	if errors.Is(err, errNotModified) {
		c.logger().Debug("cache hit", "url", url)
		return filepath.Join(c.Dir, m.DataFile), false, nil
	}
	if err != nil {
		return "", false, err
	}
	return path, true, nil
}

var errNotModified = errors.New("not modified")

func (c *Cache) fetch(ctx context.Context, url, mpath string, hdr http.Header) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := c.client().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && hdr != nil {
		return "", errNotModified
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{URL: url, Code: resp.StatusCode}
	}

	dataFile := hash(url) + ".data"
	path := filepath.Join(c.Dir, dataFile)
	start := time.Now()
	n, err := streamToFile(resp.Body, path)
	if err != nil {
		return "", fmt.Errorf("caching %s: %w", url, err)
	}
	c.logger().Debug("downloaded",
		"url", url,
		"name", contentFilename(url, resp),
		"size", humanize.IBytes(uint64(n)),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	nm := meta{
		URL:          url,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		Filename:     contentFilename(url, resp),
		DataFile:     dataFile,
	}
	if err := writeMeta(mpath, nm); err != nil {
		return "", err
	}
	return path, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func streamToFile(r io.Reader, dst string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}
	cr := &countingReader{r: r}
	if err := atomic.WriteFile(dst, cr); err != nil {
		return 0, err
	}
	return cr.n, nil
}

func writeMeta(path string, m meta) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(path, strings.NewReader(string(b)))
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

// contentFilename tries to derive a filename from headers or URL path.
func contentFilename(url string, resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if i := strings.Index(cd, "filename="); i >= 0 {
			if v := strings.Trim(cd[i+9:], "\"'"); v != "" {
				return v
			}
		}
	}
	slash := strings.LastIndex(url, "/")
	if slash >= 0 && slash+1 < len(url) {
		return url[slash+1:]
	}
	return "download"
}
