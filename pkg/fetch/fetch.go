// Package fetch downloads the waste collection schedule page.
package fetch

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/harrisonrobin/wastecal/pkg/logger"
)

const (
	DefaultURL = "https://web5.karlsruhe.de/service/abfall/akal/akal.php"
	UserAgent  = "wastecal/1.0 (github.com/harrisonrobin/wastecal)"
	Timeout    = 30 * time.Second

	// StreetParam is the query parameter that selects the street.
	StreetParam = "strasse"
)

// StatusError is returned for any response other than 200 OK.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetching %s: unexpected status code: %d", e.URL, e.Code)
}

// Client fetches the schedule page for a street.
type Client struct {
	client  *http.Client
	baseURL string
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.client = c }
}

func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.client.Timeout = d }
}

// New creates a Client for baseURL, falling back to DefaultURL when empty.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	c := &Client{
		client:  &http.Client{Timeout: Timeout},
		baseURL: baseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the page address for street.
func (c *Client) URL(street string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing source url: %w", err)
	}
	if street != "" {
		q := u.Query()
		q.Set(StreetParam, street)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Fetch returns the page body converted to UTF-8. The caller closes it.
func (c *Client) Fetch(ctx context.Context, street string) (io.ReadCloser, error) {
	target, err := c.URL(street)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept-Encoding", "gzip")

	logger.Debug("fetching schedule", "url", target)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &StatusError{URL: target, Code: resp.StatusCode}
	}

	var body io.Reader = resp.Body
	var gz *gzip.Reader
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") && !resp.Uncompressed {
		gz, err = gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("decompressing page: %w", err)
		}
		body = gz
	}

	utf8, err := charset.NewReader(body, resp.Header.Get("Content-Type"))
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("decoding page charset: %w", err)
	}

	logger.Info("fetched schedule", "url", target, "content_type", resp.Header.Get("Content-Type"))
	return &pageBody{Reader: utf8, gz: gz, raw: resp.Body}, nil
}

type pageBody struct {
	io.Reader
	gz  *gzip.Reader
	raw io.Closer
}

func (b *pageBody) Close() error {
	if b.gz != nil {
		b.gz.Close()
	}
	return b.raw.Close()
}
