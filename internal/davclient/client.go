// Package davclient is a minimal WebDAV-style transport for the
// propagator: DELETE/MKCOL/MOVE/PROPPATCH/HEAD plus chunked PUT and
// ranged GET, built on github.com/imroc/req/v3.
package davclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/imroc/req/v3"
	"github.com/tyljohnny/davsync/internal/version"
)

// Config configures a Client.
type Config struct {
	BaseURL    string
	AuthToken  string
	RetryCount int
	Timeout    time.Duration
}

// Client issues WebDAV verbs against BaseURL.
type Client struct {
	http    *req.Client
	baseURL string
}

// New builds a Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("davclient: base url required")
	}
	retries := cfg.RetryCount
	if retries == 0 {
		retries = 3
	}

	c := req.C().
		SetBaseURL(cfg.BaseURL).
		SetCommonRetryCount(retries).
		SetCommonRetryFixedInterval(1 * time.Second).
		SetUserAgent("davsync/" + version.Version)

	if cfg.AuthToken != "" {
		c.SetCommonHeader("Authorization", "Bearer "+cfg.AuthToken)
	}

	return &Client{http: c, baseURL: strings.TrimRight(cfg.BaseURL, "/")}, nil
}

// Close does nothing; idle connections of the underlying HTTP client are
// not closed by it.
func (c *Client) Close() {
}

// ResourceURL percent-escapes relPath and appends it to the base URL,
// preserving '/' as a path separator.
func (c *Client) ResourceURL(relPath string) string {
	segments := strings.Split(relPath, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return c.baseURL + "/" + strings.Join(segments, "/")
}

func (c *Client) request(ctx context.Context) *req.Request {
	return c.http.R().SetContext(ctx)
}
